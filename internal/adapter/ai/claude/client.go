// Package claude implements the AIProvider contract on Anthropic Claude.
package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/testgenius/backend/internal/adapter/ai/reliability"
	"github.com/testgenius/backend/internal/domain/testgen"
)

// defaultModels is the candidate list, newest first. A model-unavailable
// error moves on to the next candidate; auth, rate-limit and content-policy
// errors abort without trying further candidates.
var defaultModels = []string{
	"claude-sonnet-4-5",
	"claude-3-7-sonnet-latest",
	"claude-3-5-sonnet-latest",
	"claude-3-5-haiku-latest",
}

// Config holds configuration for the Claude provider.
type Config struct {
	APIKey string
	Models []string // candidate models, newest first (default: defaultModels)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: anthropic API key is required", testgen.ErrConfiguration)
	}
	return nil
}

// Provider implements testgen.AIProvider using Anthropic Claude.
type Provider struct {
	client      anthropic.Client
	models      []string
	rateLimiter *reliability.RateLimiter
}

var _ testgen.AIProvider = (*Provider)(nil)

// NewProvider creates a new Claude provider.
func NewProvider(config Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	models := config.Models
	if len(models) == 0 {
		models = defaultModels
	}

	return &Provider{
		client:      anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		models:      models,
		rateLimiter: reliability.NewRateLimiter(0, 0),
	}, nil
}

// GenerateText sends the prompt and images through the candidate model list
// and returns the concatenated text blocks of the response.
func (p *Provider) GenerateText(ctx context.Context, req testgen.GenerateRequest) (string, error) {
	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.Prompt)}
	for i, img := range req.Images {
		normalized, err := testgen.NormalizeImage(img)
		if err != nil {
			slog.WarnContext(ctx, "skipping image", "index", i, "error", err)
			continue
		}
		encoded := base64.StdEncoding.EncodeToString(normalized.Data)
		blocks = append(blocks, anthropic.NewImageBlockBase64(normalized.MIME, encoded))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var lastErr error
	for _, model := range p.models {
		if err := p.rateLimiter.Wait(ctx); err != nil {
			return "", err
		}

		message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(blocks...),
			},
		})
		if err != nil {
			classified := reliability.Classify(err)
			if testgen.AbortsRun(classified) {
				return "", classified
			}
			if errors.Is(classified, testgen.ErrModelUnavailable) {
				slog.WarnContext(ctx, "claude model unavailable, trying next candidate",
					"model", model,
					"error", err,
				)
				lastErr = classified
				continue
			}
			slog.WarnContext(ctx, "claude API call failed, trying next candidate",
				"model", model,
				"error", err,
			)
			lastErr = classified
			continue
		}

		var sb strings.Builder
		for _, block := range message.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		text := sb.String()
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
