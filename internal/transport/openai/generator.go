package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/courtside-ai/courtside/internal/domain"
	"github.com/courtside-ai/courtside/internal/metrics"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

// Generator is a chat-completion provider running at a deterministic low
// temperature. Rate-limit responses are retried with exponential backoff up
// to maxRetries; any other provider error surfaces immediately.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	maxRetries  int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// GeneratorConfig holds the text-generation provider settings.
type GeneratorConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	MaxTokens         int
	MaxRetries        int
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat-completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		logger:      cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	for attempt := 0; ; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return domain.GenerationResult{}, fmt.Errorf("rate limiter: %w", err)
		}

		start := time.Now()
		resp, err := g.client.CreateChatCompletion(ctx, req)
		duration := time.Since(start)

		if err == nil {
			if len(resp.Choices) == 0 {
				metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
				return domain.GenerationResult{}, fmt.Errorf(
					"empty completion response: %w", domain.ErrGenerationProviderError)
			}

			metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
			metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

			return domain.GenerationResult{
				Text:         resp.Choices[0].Message.Content,
				PromptTokens: resp.Usage.PromptTokens,
				TotalTokens:  resp.Usage.TotalTokens,
			}, nil
		}

		if !isRateLimit(err) {
			metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
			return domain.GenerationResult{}, parseGenerationError(err)
		}

		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "rate_limited").Inc()

		if attempt >= g.maxRetries {
			return domain.GenerationResult{}, fmt.Errorf(
				"%w after %d attempts: %w", domain.ErrRetriesExhausted, attempt+1, domain.ErrRateLimited)
		}

		delay := backoffDelay(attempt)
		g.logger.Warn("Generation rate limited, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		metrics.GenerationRetriesTotal.Inc()

		select {
		case <-ctx.Done():
			return domain.GenerationResult{}, fmt.Errorf("generation canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// backoffDelay computes the exponential retry delay, capped at retryMaxDelay.
func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay << attempt
	if d > retryMaxDelay || d <= 0 {
		return retryMaxDelay
	}
	return d
}

// isRateLimit reports whether err is an HTTP 429 from the provider.
func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// parseGenerationError wraps provider failures with the domain sentinel.
func parseGenerationError(err error) error {
	wrap := domain.ErrGenerationProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("generation API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("generation API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("generation request failed: %w", wrap)
}
