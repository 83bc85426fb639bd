// Package pipeline discovers business detail pages across directory search
// results, deduplicates them by business identifier, and extracts each one in
// bounded browser sessions.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/model"
)

const (
	// DefaultBusinessesPerSession caps the detail pages fetched per session.
	DefaultBusinessesPerSession = 15
	// DefaultNavigationTimeout bounds one page load including network idle.
	DefaultNavigationTimeout = 30 * time.Second
	// DefaultRequestDelay spaces detail fetches within a session.
	DefaultRequestDelay = time.Second
)

// Options tune a Pipeline.
type Options struct {
	BusinessesPerSession int
	NavigationTimeout    time.Duration
	RequestDelay         time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		BusinessesPerSession: DefaultBusinessesPerSession,
		NavigationTimeout:    DefaultNavigationTimeout,
		RequestDelay:         DefaultRequestDelay,
	}
}

// Request is one pipeline invocation.
type Request struct {
	BaseURL    string
	TotalPages int
}

// Result is everything a run gathered.
type Result struct {
	Records []model.BusinessRecord
	Stats   model.RunStats
}

// Pipeline runs crawl, dedupe, chunk and batch extraction sequentially. At
// most one session is open at any time.
type Pipeline struct {
	opener Opener
	creds  model.Credentials
	opts   Options
}

// New creates a Pipeline. Zero-valued options fall back to defaults.
func New(opener Opener, creds model.Credentials, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.BusinessesPerSession <= 0 {
		opts.BusinessesPerSession = def.BusinessesPerSession
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = def.NavigationTimeout
	}
	if opts.RequestDelay < 0 {
		opts.RequestDelay = 0
	}
	return &Pipeline{opener: opener, creds: creds, opts: opts}
}

// Run executes one collection run. It returns an error only for
// configuration problems, detected before any session opens; every other
// failure shrinks the result instead.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.BaseURL == "" {
		req.BaseURL = DefaultSearchURL
	}
	if req.TotalPages <= 0 {
		req.TotalPages = DefaultTotalPages
	}

	if err := p.creds.Validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("base_url", req.BaseURL), zap.Int("pages", req.TotalPages))
	log.Info("pipeline: starting run")

	result := &Result{Stats: model.RunStats{PagesRequested: req.TotalPages}}
	stats := &result.Stats

	crawl, err := p.Crawl(ctx, req.BaseURL, req.TotalPages)
	if err != nil {
		return nil, err
	}
	stats.PagesFailed = crawl.PagesFailed
	stats.CandidatesFound = len(crawl.Candidates)
	stats.Failures = append(stats.Failures, crawl.Failures...)

	unique, _ := Dedupe(crawl.Candidates, nil)
	stats.UniqueCandidates = len(unique)
	log.Info("pipeline: candidates deduplicated",
		zap.Int("found", stats.CandidatesFound),
		zap.Int("unique", stats.UniqueCandidates),
	)

	chunks := Chunk(unique, p.opts.BusinessesPerSession)
	for i, chunk := range chunks {
		log.Info("pipeline: processing batch",
			zap.Int("batch", i+1),
			zap.Int("of", len(chunks)),
			zap.Int("count", len(chunk)),
		)

		batch, err := p.ProcessBatch(ctx, chunk)
		if err != nil {
			return nil, err
		}
		stats.Batches++
		if !batch.Opened {
			stats.BatchesFailed++
		}
		for _, f := range batch.Failures {
			if f.Stage == model.StageDetail {
				stats.DetailFailures++
			}
		}
		stats.Failures = append(stats.Failures, batch.Failures...)
		result.Records = append(result.Records, batch.Records...)
	}

	stats.Records = len(result.Records)
	stats.Duration = time.Since(start).Round(time.Millisecond).String()
	log.Info("pipeline: run complete",
		zap.Int("records", stats.Records),
		zap.Int("detail_failures", stats.DetailFailures),
		zap.Int("pages_failed", stats.PagesFailed),
		zap.String("duration", stats.Duration),
	)
	return result, nil
}
