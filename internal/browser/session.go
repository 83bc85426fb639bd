// Package browser owns the lifecycle of one hosted browser session: create it
// through the Browserbase API, drive it over CDP, and release it.
package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/extract"
	"github.com/sells-group/bbb-collector/internal/model"
	"github.com/sells-group/bbb-collector/internal/resilience"
	"github.com/sells-group/bbb-collector/pkg/browserbase"
)

const closeTimeout = 15 * time.Second

// driver is the page-level control surface of a connected browser tab.
type driver interface {
	Navigate(ctx context.Context, url string) error
	WaitNetworkIdle(ctx context.Context, window time.Duration) error
	Content(ctx context.Context) (html, location string, err error)
	Close() error
}

// Session is one open hosted browser session with a single page handle.
// It is not safe for concurrent navigation.
type Session struct {
	id        string
	api       browserbase.Client
	drv       driver
	extractor extract.Extractor
	idle      time.Duration
	release   resilience.RetryConfig

	closeOnce sync.Once
}

// ID returns the hosted session id.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Navigate loads url and waits for the network to settle. Any failure,
// including the timeout expiring, is a *model.NavigationError.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := s.drv.Navigate(ctx, url); err != nil {
		return &model.NavigationError{URL: url, Err: err}
	}
	if err := s.drv.WaitNetworkIdle(ctx, s.idle); err != nil {
		return &model.NavigationError{URL: url, Err: err}
	}
	return nil
}

// Extract runs instruction against the currently loaded page and decodes the
// validated result into out. Failures are *model.ExtractionError.
func (s *Session) Extract(ctx context.Context, instruction string, schema extract.Schema, out any) error {
	html, location, err := s.drv.Content(ctx)
	if err != nil {
		return &model.ExtractionError{Schema: schema.Name, Err: err}
	}

	page, err := extract.Digest(html, location)
	if err != nil {
		return &model.ExtractionError{Schema: schema.Name, Err: err}
	}
	if bt := DetectBlock(page); bt != BlockNone {
		return &model.ExtractionError{Schema: schema.Name, Err: eris.Wrapf(ErrBlocked, "%s at %s", bt, location)}
	}

	return s.extractor.Extract(ctx, extract.Request{
		Instruction: instruction,
		Schema:      schema,
		Page:        page,
	}, out)
}

// Close disconnects from the browser and releases the hosted session. It is
// idempotent, tolerates a partially opened session, and never returns an
// error: failures are logged as *model.SessionCloseError.
func (s *Session) Close(ctx context.Context) {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()

		var errs []error
		if s.drv != nil {
			if err := s.drv.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.api != nil && s.id != "" {
			err := resilience.Do(ctx, s.release, func(ctx context.Context) error {
				return s.api.ReleaseSession(ctx, s.id)
			})
			if err != nil {
				errs = append(errs, err)
			}
		}

		if err := errors.Join(errs...); err != nil {
			zap.L().Error("browser: session close failed",
				zap.String("session_id", s.id),
				zap.Error(&model.SessionCloseError{SessionID: s.id, Err: err}),
			)
			return
		}
		zap.L().Debug("browser: session closed", zap.String("session_id", s.id))
	})
}
