package model

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports missing or invalid settings. It is fatal: a run
// that hits one aborts before any browser session opens.
type ConfigurationError struct {
	Missing []string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return "configuration: missing " + strings.Join(e.Missing, ", ")
	}
	return "configuration: " + e.Reason
}

// NavigationError reports a page load that failed or timed out.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ExtractionError reports an extraction whose result could not be obtained or
// validated against the requested schema.
type ExtractionError struct {
	Schema string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Schema, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SessionCloseError reports a failure releasing a browser session. It is
// only ever logged.
type SessionCloseError struct {
	SessionID string
	Err       error
}

func (e *SessionCloseError) Error() string {
	return fmt.Sprintf("close session %s: %v", e.SessionID, e.Err)
}

func (e *SessionCloseError) Unwrap() error { return e.Err }

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsNavigation reports whether err carries a NavigationError.
func IsNavigation(err error) bool {
	var ne *NavigationError
	return errors.As(err, &ne)
}

// IsExtraction reports whether err carries an ExtractionError.
func IsExtraction(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
