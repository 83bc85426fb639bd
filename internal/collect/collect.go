// Package collect ties one pipeline run to the persistence sink: it records
// the run, executes the pipeline, saves the records, and closes the run.
package collect

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/model"
	"github.com/sells-group/bbb-collector/internal/pipeline"
	"github.com/sells-group/bbb-collector/internal/store"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Outcome is the result of a collection plus what was persisted.
type Outcome struct {
	RunID   string                 `json:"run_id,omitempty"`
	Records []model.BusinessRecord `json:"records"`
	Stats   model.RunStats         `json:"stats"`
	Saved   int                    `json:"saved"`
}

// Service runs the pipeline and persists its output. A nil store disables
// persistence.
type Service struct {
	runner Runner
	store  store.Store
	source string
}

// NewService creates a Service. st may be nil.
func NewService(runner Runner, st store.Store) *Service {
	return &Service{runner: runner, store: st, source: store.SourceBrowser}
}

// Collect runs the pipeline for req. When save is false or no store is
// configured, nothing is persisted. If the pipeline ran but persisting its
// records failed, the Outcome is returned together with the error.
func (s *Service) Collect(ctx context.Context, req pipeline.Request, save bool) (*Outcome, error) {
	if req.BaseURL == "" {
		req.BaseURL = pipeline.DefaultSearchURL
	}
	if req.TotalPages <= 0 {
		req.TotalPages = pipeline.DefaultTotalPages
	}
	persist := save && s.store != nil

	var run *model.Run
	if persist {
		var err error
		run, err = s.store.CreateRun(ctx, req.BaseURL, req.TotalPages)
		if err != nil {
			return nil, eris.Wrap(err, "collect: create run")
		}
	}

	res, err := s.runner.Run(ctx, req)
	if err != nil {
		s.fail(ctx, run, err)
		return nil, err
	}

	out := &Outcome{Records: res.Records, Stats: res.Stats}
	if out.Records == nil {
		out.Records = []model.BusinessRecord{}
	}
	if !persist {
		return out, nil
	}
	out.RunID = run.ID

	saved, err := s.store.SaveBusinesses(ctx, run.ID, s.source, res.Records)
	if err != nil {
		s.fail(ctx, run, err)
		return out, eris.Wrap(err, "collect: save businesses")
	}
	out.Saved = saved

	if err := s.store.CompleteRun(ctx, run.ID, &res.Stats); err != nil {
		return out, eris.Wrap(err, "collect: complete run")
	}

	zap.L().Info("collect: run saved",
		zap.String("run_id", run.ID),
		zap.Int("records", len(res.Records)),
		zap.Int("saved", saved),
	)
	return out, nil
}

func (s *Service) fail(ctx context.Context, run *model.Run, cause error) {
	if run == nil {
		return
	}
	if err := s.store.FailRun(context.WithoutCancel(ctx), run.ID, cause); err != nil {
		zap.L().Error("collect: mark run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}
