package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/model"
	"github.com/sells-group/bbb-collector/internal/resilience"
)

// Request is one extraction against a loaded page.
type Request struct {
	Instruction string
	Schema      Schema
	Page        Page
}

// Extractor returns validated structured data for a page. out must be a
// pointer to a struct whose json tags match the schema.
type Extractor interface {
	Extract(ctx context.Context, req Request, out any) error
}

// Prompt is a single model call.
type Prompt struct {
	System    string
	User      string
	MaxTokens int64
}

// Completer is a language model backend that answers with JSON text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Name() string
}

const systemPrompt = `You extract structured data from web pages.
Answer with a single JSON object that matches the requested schema exactly.
Use null for values that are not present on the page. Never invent data.
Do not wrap the JSON in prose.`

// ModelExtractor implements Extractor on top of a Completer.
type ModelExtractor struct {
	completer Completer
	validate  *validator.Validate
	retry     resilience.RetryConfig
	breaker   *resilience.CircuitBreaker
	maxChars  int
	maxTokens int64
}

// Option configures a ModelExtractor.
type Option func(*ModelExtractor)

// WithRetry overrides the retry policy for model calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(e *ModelExtractor) { e.retry = cfg }
}

// WithCircuitBreaker guards model calls with a breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(e *ModelExtractor) { e.breaker = cb }
}

// WithMaxContentChars caps the page text sent to the model.
func WithMaxContentChars(n int) Option {
	return func(e *ModelExtractor) { e.maxChars = n }
}

// WithMaxTokens caps the model response length.
func WithMaxTokens(n int64) Option {
	return func(e *ModelExtractor) { e.maxTokens = n }
}

// NewModelExtractor creates an extractor backed by the given completer.
func NewModelExtractor(c Completer, opts ...Option) *ModelExtractor {
	e := &ModelExtractor{
		completer: c,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		retry:     resilience.DefaultRetryConfig(),
		maxChars:  60000,
		maxTokens: 2048,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.retry.OnRetry == nil {
		e.retry.OnRetry = resilience.RetryLogger(c.Name(), "extract")
	}
	return e
}

// Extract asks the model for req.Schema and decodes the answer into out.
// Every failure is reported as a *model.ExtractionError.
func (e *ModelExtractor) Extract(ctx context.Context, req Request, out any) error {
	prompt := Prompt{
		System:    systemPrompt,
		User:      buildUserPrompt(req, e.maxChars),
		MaxTokens: e.maxTokens,
	}

	text, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (string, error) {
		if e.breaker == nil {
			return e.completer.Complete(ctx, prompt)
		}
		return resilience.ExecuteVal(ctx, e.breaker, func(ctx context.Context) (string, error) {
			return e.completer.Complete(ctx, prompt)
		})
	})
	if err != nil {
		return &model.ExtractionError{Schema: req.Schema.Name, Err: eris.Wrap(err, "model call")}
	}

	if err := json.Unmarshal([]byte(cleanJSON(text)), out); err != nil {
		zap.L().Debug("extract: undecodable model answer",
			zap.String("schema", req.Schema.Name),
			zap.String("answer", truncate(text, 500)),
		)
		return &model.ExtractionError{Schema: req.Schema.Name, Err: eris.Wrap(err, "decode answer")}
	}

	if err := e.validate.Struct(out); err != nil {
		return &model.ExtractionError{Schema: req.Schema.Name, Err: eris.Wrap(err, "validate answer")}
	}

	return nil
}

func buildUserPrompt(req Request, maxChars int) string {
	var b strings.Builder
	b.WriteString("Instruction:\n")
	b.WriteString(req.Instruction)
	b.WriteString("\n\nReturn JSON with exactly this shape:\n")
	b.WriteString(req.Schema.Describe())
	b.WriteString("\n\nPage:\n")
	b.WriteString(req.Page.Render(maxChars))
	return b.String()
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
