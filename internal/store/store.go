// Package store persists collection runs and the businesses they produced.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/bbb-collector/internal/model"
)

// SourceBrowser tags records collected by the browser pipeline.
const SourceBrowser = "browser"

const defaultLimit = 100

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// BusinessFilter specifies criteria for listing stored businesses.
type BusinessFilter struct {
	RunID      string `json:"run_id,omitempty"`
	Source     string `json:"source,omitempty"`
	BusinessID string `json:"business_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

func (f BusinessFilter) limit() int {
	if f.Limit <= 0 {
		return defaultLimit
	}
	return f.Limit
}

// Store is the persistence sink for collection runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, baseURL string, pages int) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats *model.RunStats) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Businesses
	SaveBusinesses(ctx context.Context, runID, source string, records []model.BusinessRecord) (int, error)
	ListBusinesses(ctx context.Context, filter BusinessFilter) ([]model.StoredBusiness, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var businessColumns = []string{
	"id", "run_id", "business_id", "name", "phone", "address", "url",
	"accreditation_status", "principal_contact", "source", "scraped_at",
}

// businessRows converts records to rows in businessColumns order. All rows of
// one save share scraped_at.
func businessRows(runID, source string, records []model.BusinessRecord, now time.Time) [][]any {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			uuid.NewString(), runID, r.BusinessID, r.Name, r.Phone, r.Address, r.URL,
			r.AccreditationStatus, r.PrincipalContact, source, now,
		})
	}
	return rows
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
