package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bbb-collector/internal/model"
	"github.com/sells-group/bbb-collector/internal/resilience"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Name() string { return "mock" }

func (m *mockCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type detail struct {
	Name  string  `json:"name" validate:"required"`
	Phone *string `json:"phone"`
}

type listing struct {
	Items []model.CandidateURL `json:"items" validate:"dive"`
}

var detailSchema = Schema{
	Name: "detail",
	Fields: []Field{
		{Name: "name", Type: TypeString},
		{Name: "phone", Type: TypeString, Nullable: true},
	},
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestModelExtractor_DecodesAndValidates(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.MatchedBy(func(p Prompt) bool {
		return assert.Contains(t, p.User, "Extract the name") &&
			assert.Contains(t, p.User, "https://example.com/acme-1") &&
			assert.Contains(t, p.User, `"phone": "string or null"`)
	})).Return("```json\n{\"name\":\"Acme\",\"phone\":null}\n```", nil)

	e := NewModelExtractor(mc, WithRetry(fastRetry()))
	var out detail
	err := e.Extract(context.Background(), Request{
		Instruction: "Extract the name",
		Schema:      detailSchema,
		Page:        Page{URL: "https://example.com/acme-1", Text: "Acme"},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "Acme", out.Name)
	assert.Nil(t, out.Phone)
	mc.AssertExpectations(t)
}

func TestModelExtractor_ValidationFailure(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).Return(`{"name":null,"phone":"+15550001111"}`, nil)

	e := NewModelExtractor(mc, WithRetry(fastRetry()))
	var out detail
	err := e.Extract(context.Background(), Request{Schema: detailSchema}, &out)

	require.Error(t, err)
	assert.True(t, model.IsExtraction(err))
	assert.Contains(t, err.Error(), "validate answer")
}

func TestModelExtractor_URLValidation(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).Return(`{"items":[{"url":"not a url"}]}`, nil)

	e := NewModelExtractor(mc, WithRetry(fastRetry()))
	var out listing
	err := e.Extract(context.Background(), Request{Schema: Schema{Name: "listing"}}, &out)

	require.Error(t, err)
	assert.True(t, model.IsExtraction(err))
}

func TestModelExtractor_DecodeFailure(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).Return("I could not find anything.", nil)

	e := NewModelExtractor(mc, WithRetry(fastRetry()))
	var out detail
	err := e.Extract(context.Background(), Request{Schema: detailSchema}, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode answer")
}

func TestModelExtractor_RetriesTransient(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).
		Return("", resilience.NewTransientError(errors.New("overloaded"), 529)).Once()
	mc.On("Complete", mock.Anything, mock.Anything).Return(`{"name":"Acme"}`, nil).Once()

	e := NewModelExtractor(mc, WithRetry(fastRetry()))
	var out detail
	require.NoError(t, e.Extract(context.Background(), Request{Schema: detailSchema}, &out))
	assert.Equal(t, "Acme", out.Name)
	mc.AssertNumberOfCalls(t, "Complete", 2)
}

func TestModelExtractor_NonTransientNotRetried(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("invalid api key"))

	e := NewModelExtractor(mc, WithRetry(fastRetry()))
	var out detail
	err := e.Extract(context.Background(), Request{Schema: detailSchema}, &out)

	require.Error(t, err)
	assert.True(t, model.IsExtraction(err))
	mc.AssertNumberOfCalls(t, "Complete", 1)
}

func TestModelExtractor_CircuitOpen(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("down"))

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	e := NewModelExtractor(mc, WithRetry(fastRetry()), WithCircuitBreaker(cb))

	var out detail
	require.Error(t, e.Extract(context.Background(), Request{Schema: detailSchema}, &out))
	err := e.Extract(context.Background(), Request{Schema: detailSchema}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	mc.AssertNumberOfCalls(t, "Complete", 1)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":1} thanks", `{"a":1}`},
		{"no object", "nothing", "nothing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
