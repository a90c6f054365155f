// Package insight turns calculator insight requests into short advisory text
// using the Gemini API.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Fallback texts returned instead of an error.
const (
	FallbackMissingCredentials = "API Key is missing. Please provide a valid API key in the insight configuration or the INSIGHT_APIKEY environment variable to use insight features."
	FallbackUnavailable        = "Unable to generate insight at this time. Please try again later."
	FallbackEmpty              = "No insight generated."
)

const instructions = `You are a world-class financial advisor.
Analyze the following calculation results and provide a brief, actionable insight (max 100 words).
Use markdown for formatting. Focus on the implications of the numbers.`

// contentGenerator is the subset of the Gemini client the generator needs.
type contentGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

type genaiBackend struct {
	client *genai.Client
}

func (b *genaiBackend) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Generator produces insight text for calculator results.
type Generator struct {
	logger  *zap.Logger
	model   string
	backend contentGenerator
}

// static always answers with the same text.
type static string

func (s static) Generate(context.Context, calc.InsightRequest) string { return string(s) }

// New builds an insight generator from cfg. Without an API key, or when the
// client cannot be built, the returned generator answers with the matching
// fallback text.
func New(ctx context.Context, cfg config.InsightConfig, logger *zap.Logger) calc.InsightGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		logger.Warn("no insight API key configured",
			zap.String("op", "insight.New"),
		)
		return static(FallbackMissingCredentials)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logger.Error("failed to create insight client",
			zap.String("op", "insight.New"),
			zap.Error(err),
		)
		return static(FallbackUnavailable)
	}

	return newGenerator(&genaiBackend{client: client}, cfg.Model, logger)
}

func newGenerator(backend contentGenerator, model string, logger *zap.Logger) *Generator {
	if model == "" {
		model = constants.DefaultInsightModel
	}
	return &Generator{logger: logger, model: model, backend: backend}
}

// Generate asks the model for advice on req. Failures are logged and
// answered with a fallback text; there is no retry.
func (g *Generator) Generate(ctx context.Context, req calc.InsightRequest) string {
	requestID := uuid.New().String()
	logger := g.logger.With(
		zap.String("op", "insight.Generate"),
		zap.String("request_id", requestID),
		zap.String("context", req.Context),
	)

	prompt, err := BuildPrompt(req)
	if err != nil {
		logger.Error("failed to build insight prompt", zap.Error(err))
		return FallbackUnavailable
	}

	logger.Debug("requesting insight", zap.String("model", g.model))
	text, err := g.backend.GenerateText(ctx, g.model, prompt)
	if err != nil {
		logger.Error("insight request failed", zap.Error(err))
		return FallbackUnavailable
	}
	if strings.TrimSpace(text) == "" {
		logger.Warn("insight response was empty")
		return FallbackEmpty
	}
	logger.Debug("insight received", zap.Int("length", len(text)))
	return text
}

// BuildPrompt renders the advisor instructions followed by the request's
// context and its data as indented JSON.
func BuildPrompt(req calc.InsightRequest) (string, error) {
	data, err := json.MarshalIndent(req.Data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding insight data: %w", err)
	}
	return fmt.Sprintf("%s\n\nContext: %s\nData: %s\n", instructions, req.Context, data), nil
}
