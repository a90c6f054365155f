package insight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeBackend struct {
	mu      sync.Mutex
	text    string
	err     error
	models  []string
	prompts []string
}

func (f *fakeBackend) GenerateText(_ context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

var loanRequest = calc.InsightRequest{
	Context: "Loan/Mortgage Calculation",
	Data: map[string]string{
		"LoanAmount":     "250000",
		"MonthlyPayment": "1266.71",
	},
}

func TestNewWithoutAPIKey(t *testing.T) {
	gen := New(context.Background(), config.InsightConfig{Enabled: true}, nil)
	assert.Equal(t, FallbackMissingCredentials, gen.Generate(context.Background(), loanRequest))
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
		want string
	}{
		{"model text", "**Refinance** when rates drop.", nil, "**Refinance** when rates drop."},
		{"empty text", "", nil, FallbackEmpty},
		{"whitespace text", "  \n", nil, FallbackEmpty},
		{"request failure", "", errors.New("quota exceeded"), FallbackUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{text: tt.text, err: tt.err}
			gen := newGenerator(backend, "", zap.NewNop())

			assert.Equal(t, tt.want, gen.Generate(context.Background(), loanRequest))
			require.Len(t, backend.models, 1, "no retry")
			assert.Equal(t, "gemini-2.5-flash", backend.models[0])
		})
	}
}

func TestGenerateLogsRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gen := newGenerator(&fakeBackend{err: errors.New("boom")}, "custom-model", zap.New(core))

	gen.Generate(context.Background(), loanRequest)

	failures := logs.FilterMessage("insight request failed").All()
	require.Len(t, failures, 1)
	fields := failures[0].ContextMap()
	assert.Equal(t, "insight.Generate", fields["op"])
	assert.Len(t, fields["request_id"], 36)
	assert.Equal(t, "Loan/Mortgage Calculation", fields["context"])
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(loanRequest)
	require.NoError(t, err)

	assert.Contains(t, prompt, "max 100 words")
	assert.Contains(t, prompt, "Context: Loan/Mortgage Calculation\n")
	assert.Contains(t, prompt, "Data: {\n  \"LoanAmount\": \"250000\",\n  \"MonthlyPayment\": \"1266.71\"\n}")
	assert.True(t, strings.HasPrefix(prompt, "You are a world-class financial advisor."))
}

func TestGeneratePassesPrompt(t *testing.T) {
	backend := &fakeBackend{text: "ok"}
	gen := newGenerator(backend, "m", zap.NewNop())
	gen.Generate(context.Background(), loanRequest)

	want, err := BuildPrompt(loanRequest)
	require.NoError(t, err)
	assert.Equal(t, []string{want}, backend.prompts)
	assert.Equal(t, []string{"m"}, backend.models)
}
