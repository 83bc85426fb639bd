package model

import "time"

// RunStatus represents the current state of a collection run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Stage names where a per-item failure can occur.
const (
	StageSearchPage = "search_page"
	StageDetail     = "detail"
	StageSession    = "session"
)

// Failure kinds, derived from the error that caused the failure.
const (
	FailureNavigation = "navigation"
	FailureExtraction = "extraction"
	FailureOther      = "other"
)

// Failure records one contained per-item failure.
type Failure struct {
	Stage  string `json:"stage"`
	Kind   string `json:"kind"`
	URL    string `json:"url,omitempty"`
	Page   int    `json:"page,omitempty"`
	Reason string `json:"reason"`
}

// NewFailure builds a Failure for err at stage, classifying it by kind.
func NewFailure(stage string, err error) Failure {
	return Failure{Stage: stage, Kind: FailureKind(err), Reason: err.Error()}
}

// FailureKind classifies err as a navigation, extraction or other failure.
func FailureKind(err error) string {
	switch {
	case IsNavigation(err):
		return FailureNavigation
	case IsExtraction(err):
		return FailureExtraction
	default:
		return FailureOther
	}
}

// RunStats summarizes what a pipeline run produced.
type RunStats struct {
	PagesRequested   int       `json:"pages_requested"`
	PagesFailed      int       `json:"pages_failed"`
	CandidatesFound  int       `json:"candidates_found"`
	UniqueCandidates int       `json:"unique_candidates"`
	Batches          int       `json:"batches"`
	BatchesFailed    int       `json:"batches_failed"`
	DetailFailures   int       `json:"detail_failures"`
	Records          int       `json:"records"`
	Failures         []Failure `json:"failures,omitempty"`
	Duration         string    `json:"duration,omitempty"`
}

// Run is one persisted invocation of the pipeline.
type Run struct {
	ID        string    `json:"id"`
	BaseURL   string    `json:"base_url"`
	Pages     int       `json:"pages"`
	Status    RunStatus `json:"status"`
	Stats     *RunStats `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoredBusiness is a BusinessRecord as persisted by the store. Its keys
// follow the embedded record's camelCase naming.
type StoredBusiness struct {
	ID        string    `json:"id"`
	RunID     string    `json:"runId"`
	Source    string    `json:"source"`
	ScrapedAt time.Time `json:"scrapedAt"`
	BusinessRecord
}
