package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/bbb-collector/internal/extract"
)

// Session is an open page session. Navigate and Extract failures are
// *model.NavigationError and *model.ExtractionError; Close never fails.
type Session interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Extract(ctx context.Context, instruction string, schema extract.Schema, out any) error
	Close(ctx context.Context)
}

// Opener opens page sessions. A missing credential must surface as a
// *model.ConfigurationError.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (Session, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}
