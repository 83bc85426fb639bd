package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bbb-collector/internal/model"
)

// BatchResult is what one session produced for one chunk.
type BatchResult struct {
	Records  []model.BusinessRecord
	Opened   bool
	Failures []model.Failure
}

// ProcessBatch opens one session and fetches every URL in chunk through it,
// in order. The session is closed on every exit path. A session that fails
// to open yields an empty result; the error is only returned when it is a
// *model.ConfigurationError.
func (p *Pipeline) ProcessBatch(ctx context.Context, chunk []model.CandidateURL) (BatchResult, error) {
	var res BatchResult

	s, err := p.opener.Open(ctx)
	if err != nil {
		if model.IsConfiguration(err) {
			return res, err
		}
		zap.L().Warn("pipeline: batch session failed to open",
			zap.Int("count", len(chunk)),
			zap.Error(err),
		)
		res.Failures = append(res.Failures, model.NewFailure(model.StageSession, err))
		return res, nil
	}
	defer s.Close(ctx)
	res.Opened = true

	limiter := p.limiter()
	for i, c := range chunk {
		if err := limiter.Wait(ctx); err != nil {
			zap.L().Warn("pipeline: batch interrupted", zap.Int("done", i), zap.Error(err))
			break
		}

		out := FetchDetail(ctx, s, c.URL, p.opts.NavigationTimeout)
		if !out.OK() {
			f := model.NewFailure(model.StageDetail, out.Err)
			f.URL = c.URL
			res.Failures = append(res.Failures, f)
			continue
		}
		res.Records = append(res.Records, out.Value)
	}
	return res, nil
}

// limiter spaces detail fetch starts within one session by RequestDelay.
func (p *Pipeline) limiter() *rate.Limiter {
	if p.opts.RequestDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.opts.RequestDelay), 1)
}
