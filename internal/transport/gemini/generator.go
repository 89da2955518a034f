// Package gemini generates replies with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/geminibot/internal/domain"
	"github.com/kailas-cloud/geminibot/internal/metrics"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Config holds the generation provider settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string        // empty = public endpoint
	Timeout time.Duration // 0 = no deadline
	Logger  *zap.Logger
}

// Generator sends a single text prompt to GenerateContent.
type Generator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGenerator creates a Gemini API generator.
func NewGenerator(ctx context.Context, cfg *Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Model returns the model name requests are sent to.
func (g *Generator) Model() string { return g.model }

// Generate returns the generated text for prompt. Errors wrap domain.ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues(g.model, errorType(err)).Inc()
		return "", parseAPIError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues(g.model, "empty_response").Inc()
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, domain.ErrEmptyResponse)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	if u := resp.UsageMetadata; u != nil {
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "prompt").Add(float64(u.PromptTokenCount))
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "candidates").Add(float64(u.CandidatesTokenCount))
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "total").Add(float64(u.TotalTokenCount))
	}

	g.logger.Debug("Generated response",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

func errorType(err error) string {
	var apiErr genai.APIError
	switch {
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport_error"
	}
}

// parseAPIError keeps the provider's status and message readable in the reply text.
func parseAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini API error %d %s: %s: %w",
			apiErr.Code, apiErr.Status, apiErr.Message, domain.ErrGenerationFailed)
	}
	return fmt.Errorf("gemini request failed: %w: %w", err, domain.ErrGenerationFailed)
}
