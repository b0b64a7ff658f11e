package testgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/testgenius/backend/internal/adapter/ai/prompt"
	"github.com/testgenius/backend/internal/domain/testgen"
)

// Analyzer produces the story-quality review.
type Analyzer struct {
	provider testgen.AIProvider
	config   Config
}

// NewAnalyzer creates an analyzer bound to one per-request provider.
func NewAnalyzer(provider testgen.AIProvider, opts ...Option) *Analyzer {
	cfg := Config{CallTimeout: DefaultCallTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Analyzer{provider: provider, config: cfg}
}

// Execute reviews the story and returns the provider's HTML analysis with any
// markdown fences stripped.
func (a *Analyzer) Execute(ctx context.Context, story testgen.Story, relatedTestCases string, images []testgen.Image) (string, error) {
	if err := story.Validate(); err != nil {
		return "", err
	}

	p := prompt.BuildAnalysisPrompt(story, relatedTestCases, len(images))

	callCtx, cancel := context.WithTimeout(ctx, a.config.CallTimeout)
	defer cancel()

	text, err := a.provider.GenerateText(callCtx, testgen.GenerateRequest{
		Prompt:    p,
		Images:    images,
		MaxTokens: prompt.MaxTokensDefault,
	})
	if err != nil {
		return "", fmt.Errorf("story analysis: %w", err)
	}

	analysis := strings.TrimSpace(StripCodeFences(text))
	if analysis == "" {
		return "", fmt.Errorf("story analysis: %w", testgen.ErrEmptyResponse)
	}
	return analysis, nil
}
