package testgen

import "context"

// ProviderKind selects which LLM backend serves a request.
type ProviderKind string

const (
	ProviderGemini ProviderKind = "gemini"
	ProviderClaude ProviderKind = "claude"
)

// IsValid checks if the provider kind is one of the supported values.
func (p ProviderKind) IsValid() bool {
	switch p {
	case ProviderGemini, ProviderClaude:
		return true
	default:
		return false
	}
}

// ProviderKeys holds per-request API key overrides. Empty fields fall back to
// the process-wide defaults at provider construction time.
type ProviderKeys struct {
	Gemini    string
	Anthropic string
}

// GenerateRequest is one text/vision generation call.
type GenerateRequest struct {
	Prompt    string
	Images    []Image
	MaxTokens int32
}

// AIProvider is the uniform call contract over the LLM backends. Provider
// selection and credentials are fixed at construction, never mutated across
// calls, so concurrent requests with different keys cannot interfere.
type AIProvider interface {
	// GenerateText sends the prompt and images and returns the extracted
	// plain text. Errors are classified into the domain taxonomy.
	GenerateText(ctx context.Context, req GenerateRequest) (string, error)
}
