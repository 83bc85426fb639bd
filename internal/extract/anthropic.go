package extract

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bbb-collector/internal/resilience"
	"github.com/sells-group/bbb-collector/pkg/anthropic"
)

// DefaultAnthropicModel is the model used when none is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicCompleter answers prompts with a Claude model.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a completer from an Anthropic client.
func NewAnthropicCompleter(client anthropic.Client, modelName string) *AnthropicCompleter {
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	return &AnthropicCompleter{client: client, model: modelName}
}

// Name implements Completer.
func (c *AnthropicCompleter) Name() string { return "anthropic" }

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   p.MaxTokens,
		System:      []anthropic.SystemBlock{{Text: p.System, CacheControl: &anthropic.CacheControl{}}},
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	})
	if err != nil {
		if status := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(status) {
			return "", resilience.NewTransientError(err, status)
		}
		return "", err
	}

	resp.Usage.LogCost(c.model, "extract")

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", eris.New("anthropic: empty response")
	}
	return b.String(), nil
}
