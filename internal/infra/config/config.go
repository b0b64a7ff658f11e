package config

import (
	"os"
	"time"

	"github.com/testgenius/backend/internal/domain/testgen"
)

// Config holds the process-wide defaults. Per-request API keys override the
// defaults without mutating them.
type Config struct {
	Addr            string
	GeminiAPIKey    string
	AnthropicAPIKey string
	CallTimeout     time.Duration
}

// Load reads the configuration from the environment. API keys are optional
// at startup: requests may carry their own, and a request that resolves no
// key fails with a configuration error at call time.
func Load() (*Config, error) {
	addr := ":" + envOr("PORT", "5000")

	callTimeout := 120 * time.Second
	if raw := os.Getenv("AI_CALL_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			callTimeout = parsed
		}
	}

	return &Config{
		Addr:            addr,
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		CallTimeout:     callTimeout,
	}, nil
}

// DefaultKeys exposes the environment-configured provider keys.
func (c *Config) DefaultKeys() testgen.ProviderKeys {
	return testgen.ProviderKeys{
		Gemini:    c.GeminiAPIKey,
		Anthropic: c.AnthropicAPIKey,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
