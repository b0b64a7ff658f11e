// Package testgen orchestrates test-case generation: prompt construction,
// provider calls, response normalization, and progressive result streaming.
package testgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/testgenius/backend/internal/adapter/ai/prompt"
	"github.com/testgenius/backend/internal/domain/testgen"
)

// DefaultCallTimeout bounds one provider call. A hung provider must not block
// the request stream indefinitely.
const DefaultCallTimeout = 120 * time.Second

// Event is one unit of generation progress pushed to the caller as soon as a
// category completes.
type Event struct {
	Category testgen.Category
	Cases    []testgen.TestCase
	Progress string
	Err      error // per-category failure; nil on success
}

// Sink receives events in order. Returning an error stops the run (the client
// went away).
type Sink func(Event) error

// Result summarizes one finished run.
type Result struct {
	Cases      []testgen.TestCase // all streamed cases, in stream order
	Failed     []testgen.Category // categories that produced an error
	Degraded   []testgen.Category // categories that legitimately produced zero cases
	AbortedAt  testgen.Category   // first category hit by a run-aborting error, if any
	AbortCause error
}

// Config holds configuration for the generator.
type Config struct {
	CallTimeout time.Duration
}

// Option is a functional option for configuring the Generator.
type Option func(*Config)

// WithCallTimeout sets the per-provider-call deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.CallTimeout = d
		}
	}
}

// Generator runs the four categories sequentially against one provider,
// streaming each category's cases as soon as they are ready.
type Generator struct {
	provider testgen.AIProvider
	config   Config
}

// NewGenerator creates a generator bound to one per-request provider.
func NewGenerator(provider testgen.AIProvider, opts ...Option) *Generator {
	cfg := Config{CallTimeout: DefaultCallTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Generator{provider: provider, config: cfg}
}

// Execute generates all categories for the request. Per-category parse
// failures continue the run; auth, rate-limit and content-policy errors abort
// it. Between categories the context is checked so a disconnected client
// stops further generation.
func (g *Generator) Execute(ctx context.Context, req testgen.GenerationRequest, sink Sink) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hasSteps, stepsText := prompt.DetectSteps(req.Story.AcceptanceCriteria)
	if hasSteps {
		slog.InfoContext(ctx, "explicit steps detected in acceptance criteria",
			"steps_chars", len(stepsText),
		)
	}

	result := &Result{}

	for _, category := range testgen.Categories() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		cases, err := g.generateCategory(ctx, req, category, hasSteps, stepsText)
		if err != nil {
			if testgen.AbortsRun(err) {
				result.AbortedAt = category
				result.AbortCause = err
				// Best effort: the client still learns which category died.
				_ = sink(Event{Category: category, Err: err})
				return result, err
			}

			slog.WarnContext(ctx, "category generation failed, continuing run",
				"category", category,
				"error", err,
			)
			result.Failed = append(result.Failed, category)
			if sinkErr := sink(Event{Category: category, Err: err}); sinkErr != nil {
				return result, sinkErr
			}
			continue
		}

		if len(cases) == 0 {
			slog.WarnContext(ctx, "category produced zero cases", "category", category)
			result.Degraded = append(result.Degraded, category)
		}
		result.Cases = append(result.Cases, cases...)

		event := Event{
			Category: category,
			Cases:    cases,
			Progress: fmt.Sprintf("Generated %d %s cases.", len(cases), category),
		}
		if sinkErr := sink(event); sinkErr != nil {
			return result, sinkErr
		}
	}

	return result, nil
}

// generateCategory performs one provider call plus normalization, with the
// single Negative-category regeneration pass.
func (g *Generator) generateCategory(ctx context.Context, req testgen.GenerationRequest, category testgen.Category, hasSteps bool, stepsText string) ([]testgen.TestCase, error) {
	p := prompt.BuildTestCasePrompt(prompt.Input{
		Story:          req.Story,
		Category:       category,
		AmbiguityAware: req.AmbiguityAware,
		HasSteps:       hasSteps,
		StepsText:      stepsText,
	})

	budget := prompt.TokenBudgetFor(category)
	text, err := g.callProvider(ctx, p, req.Images, budget)
	if err != nil {
		return nil, err
	}

	cases := ParseCases(text)

	// Negative coverage is mandatory: one stricter regeneration pass before
	// accepting an empty category.
	if category == testgen.CategoryNegative && len(cases) == 0 {
		slog.WarnContext(ctx, "negative category came back empty, regenerating once")
		fallbackText, fbErr := g.callProvider(ctx, prompt.BuildNegativeFallbackPrompt(req.Story), req.Images, budget)
		if fbErr != nil {
			if testgen.AbortsRun(fbErr) {
				return nil, fbErr
			}
			slog.WarnContext(ctx, "negative fallback call failed", "error", fbErr)
			return cases, nil
		}
		cases = ParseCases(fallbackText)
	}

	return cases, nil
}

func (g *Generator) callProvider(ctx context.Context, p string, images []testgen.Image, maxTokens int32) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.config.CallTimeout)
	defer cancel()

	text, err := g.provider.GenerateText(callCtx, testgen.GenerateRequest{
		Prompt:    p,
		Images:    images,
		MaxTokens: maxTokens,
	})
	if err != nil {
		// A deadline on the call context (not the parent) is a provider
		// timeout, retryable by the caller.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("provider call timed out after %s: %w", g.config.CallTimeout, err)
		}
		return "", err
	}
	return text, nil
}
