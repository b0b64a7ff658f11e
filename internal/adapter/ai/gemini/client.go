// Package gemini implements the AIProvider contract on Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/testgenius/backend/internal/adapter/ai/reliability"
	"github.com/testgenius/backend/internal/domain/testgen"
)

// defaultModels is the candidate list, newest first. A model-unavailable
// error moves on to the next candidate; auth, rate-limit and content-policy
// errors abort without trying further candidates.
var defaultModels = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-flash-latest",
	"gemini-1.5-flash",
}

// Config holds configuration for the Gemini provider.
type Config struct {
	APIKey string
	Models []string // candidate models, newest first (default: defaultModels)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: gemini API key is required", testgen.ErrConfiguration)
	}
	return nil
}

// Provider implements testgen.AIProvider using Google Gemini.
type Provider struct {
	client      *genai.Client
	models      []string
	rateLimiter *reliability.RateLimiter
}

var _ testgen.AIProvider = (*Provider)(nil)

// NewProvider creates a new Gemini provider.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	models := config.Models
	if len(models) == 0 {
		models = defaultModels
	}

	return &Provider{
		client:      client,
		models:      models,
		rateLimiter: reliability.NewRateLimiter(0, 0),
	}, nil
}

// GenerateText sends the prompt and images through the candidate model list
// and returns the extracted plain text.
func (p *Provider) GenerateText(ctx context.Context, req testgen.GenerateRequest) (string, error) {
	parts := []*genai.Part{{Text: req.Prompt}}
	for i, img := range req.Images {
		normalized, err := testgen.NormalizeImage(img)
		if err != nil {
			slog.WarnContext(ctx, "skipping image", "index", i, "error", err)
			continue
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: normalized.MIME, Data: normalized.Data},
		})
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: maxTokens,
		Temperature:     genai.Ptr(float32(0.2)),
	}

	var lastErr error
	for _, model := range p.models {
		if err := p.rateLimiter.Wait(ctx); err != nil {
			return "", err
		}

		result, err := p.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			classified := reliability.Classify(err)
			if testgen.AbortsRun(classified) {
				return "", classified
			}
			if errors.Is(classified, testgen.ErrModelUnavailable) {
				slog.WarnContext(ctx, "gemini model unavailable, trying next candidate",
					"model", model,
					"error", err,
				)
				lastErr = classified
				continue
			}
			// Best effort: an unclassified failure on one model does not rule
			// out the next candidate.
			slog.WarnContext(ctx, "gemini API call failed, trying next candidate",
				"model", model,
				"error", err,
			)
			lastErr = classified
			continue
		}

		if len(result.Candidates) > 0 {
			candidate := result.Candidates[0]
			switch candidate.FinishReason {
			case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
				slog.WarnContext(ctx, "gemini output blocked by safety filters",
					"model", model,
					"finish_reason", candidate.FinishReason,
				)
				return "", fmt.Errorf("%w: %s", testgen.ErrContentPolicy, candidate.FinishReason)
			case genai.FinishReasonMaxTokens:
				// Truncated output is still returned: the normalizer has a
				// recovery path for partially emitted JSON arrays.
				slog.WarnContext(ctx, "gemini output truncated at token limit", "model", model)
			}
		}

		text := result.Text()
		if text == "" {
			lastErr = fmt.Errorf("%w: model %s", testgen.ErrEmptyResponse, model)
			continue
		}
		return text, nil
	}

	if lastErr == nil {
		lastErr = testgen.ErrModelUnavailable
	}
	return "", fmt.Errorf("all candidate models failed: %w", lastErr)
}
