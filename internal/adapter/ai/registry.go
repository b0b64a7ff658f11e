package ai

import (
	"context"
	"fmt"

	"github.com/testgenius/backend/internal/adapter/ai/claude"
	"github.com/testgenius/backend/internal/adapter/ai/gemini"
	"github.com/testgenius/backend/internal/domain/testgen"
)

// ProviderContext is the fully resolved per-request provider selection:
// request-supplied keys already merged over process defaults. It is a value
// constructed per request and never shared or mutated, so concurrent requests
// with different keys cannot interfere.
type ProviderContext struct {
	Kind testgen.ProviderKind
	Keys testgen.ProviderKeys
}

// ResolveContext merges per-request key overrides over the process defaults.
func ResolveContext(kind testgen.ProviderKind, request, defaults testgen.ProviderKeys) ProviderContext {
	keys := defaults
	if request.Gemini != "" {
		keys.Gemini = request.Gemini
	}
	if request.Anthropic != "" {
		keys.Anthropic = request.Anthropic
	}
	return ProviderContext{Kind: kind, Keys: keys}
}

// NewProvider constructs the provider selected by the context. A missing key
// for the selected backend is a configuration error: there is nothing to
// retry.
func NewProvider(ctx context.Context, pc ProviderContext) (testgen.AIProvider, error) {
	switch pc.Kind {
	case testgen.ProviderGemini:
		if pc.Keys.Gemini == "" {
			return nil, fmt.Errorf("%w: no Gemini API key available", testgen.ErrConfiguration)
		}
		return gemini.NewProvider(ctx, gemini.Config{APIKey: pc.Keys.Gemini})
	case testgen.ProviderClaude:
		if pc.Keys.Anthropic == "" {
			return nil, fmt.Errorf("%w: no Anthropic API key available", testgen.ErrConfiguration)
		}
		return claude.NewProvider(claude.Config{APIKey: pc.Keys.Anthropic})
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", testgen.ErrInvalidInput, pc.Kind)
	}
}
