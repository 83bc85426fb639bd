package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/extract"
	"github.com/sells-group/bbb-collector/internal/model"
)

// SearchInstruction asks for every detail-page link on a results page.
const SearchInstruction = "Extract the URL (href attribute) for ALL business cards on this search results page. Each business card has a link to its detail page."

var searchSchema = extract.Schema{
	Name: "search_results",
	Fields: []extract.Field{
		{
			Name: "list_of_businesses",
			Type: extract.TypeArray,
			Items: []extract.Field{
				{Name: "url", Type: extract.TypeURL, Description: "link to the business detail page"},
			},
		},
	},
}

type searchResults struct {
	Businesses []model.CandidateURL `json:"list_of_businesses" validate:"dive"`
}

// CrawlResult is the raw, not yet deduplicated output of a crawl.
type CrawlResult struct {
	Candidates  []model.CandidateURL
	PagesFailed int
	Opened      bool
	Failures    []model.Failure
}

// Crawl walks result pages 1..pages of base in one session and collects every
// candidate detail URL. A page that fails contributes nothing and the crawl
// moves on. Only configuration problems are returned as errors.
func (p *Pipeline) Crawl(ctx context.Context, base string, pages int) (CrawlResult, error) {
	var res CrawlResult

	// Resolve every page URL up front so a bad base fails before a session opens.
	urls := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		u, err := SearchPageURL(base, page)
		if err != nil {
			return res, err
		}
		urls = append(urls, u)
	}

	s, err := p.opener.Open(ctx)
	if err != nil {
		if model.IsConfiguration(err) {
			return res, err
		}
		zap.L().Warn("pipeline: search session failed to open", zap.Error(err))
		res.PagesFailed = pages
		res.Failures = append(res.Failures, model.NewFailure(model.StageSession, err))
		return res, nil
	}
	defer s.Close(ctx)
	res.Opened = true

	for i, pageURL := range urls {
		page := i + 1
		out := crawlPage(ctx, s, pageURL, p.opts.NavigationTimeout)
		if !out.OK() {
			zap.L().Warn("pipeline: search page failed",
				zap.Int("page", page),
				zap.String("url", pageURL),
				zap.Error(out.Err),
			)
			res.PagesFailed++
			f := model.NewFailure(model.StageSearchPage, out.Err)
			f.URL = pageURL
			f.Page = page
			res.Failures = append(res.Failures, f)
			continue
		}

		zap.L().Info("pipeline: search page crawled",
			zap.Int("page", page),
			zap.Int("count", len(out.Value)),
		)
		res.Candidates = append(res.Candidates, out.Value...)
	}
	return res, nil
}

func crawlPage(ctx context.Context, s Session, pageURL string, timeout time.Duration) Outcome[[]model.CandidateURL] {
	if err := s.Navigate(ctx, pageURL, timeout); err != nil {
		return absent[[]model.CandidateURL](err)
	}
	var found searchResults
	if err := s.Extract(ctx, SearchInstruction, searchSchema, &found); err != nil {
		return absent[[]model.CandidateURL](err)
	}
	return produced(found.Businesses)
}
