// Package mock provides a deterministic AIProvider for local development and
// tests: no network, no API keys.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/testgenius/backend/internal/domain/testgen"
)

// Provider implements testgen.AIProvider with canned responses. When scripted
// responses are present they are returned in order; otherwise a small
// deterministic test-case array is synthesized from the prompt's category.
type Provider struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []testgen.GenerateRequest
}

var _ testgen.AIProvider = (*Provider)(nil)

// NewProvider creates a mock that synthesizes responses.
func NewProvider() *Provider {
	return &Provider{}
}

// NewScripted creates a mock returning the given responses in order, then the
// given error (or a synthesized response when err is nil).
func NewScripted(responses []string, err error) *Provider {
	return &Provider{responses: responses, err: err}
}

// Calls returns the number of GenerateText invocations so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns a copy of every request seen so far.
func (p *Provider) Requests() []testgen.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]testgen.GenerateRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *Provider) GenerateText(ctx context.Context, req testgen.GenerateRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.requests = append(p.requests, req)

	if len(p.responses) > 0 {
		next := p.responses[0]
		p.responses = p.responses[1:]
		return next, nil
	}
	if p.err != nil {
		return "", p.err
	}
	return synthesize(req.Prompt), nil
}

// synthesize builds a two-case JSON array for the category named in the
// prompt.
func synthesize(prompt string) string {
	category, prefix := detectCategory(prompt)
	return fmt.Sprintf(`[
  {"id": "%[2]s-1", "title": "[%[1]s] Mock scenario one", "priority": "High", "description": "1. Open the application.\n2. Perform the primary action.", "expectedResult": "The primary action completes for the %[1]s scenario."},
  {"id": "%[2]s-2", "title": "[%[1]s] Mock scenario two", "priority": "Medium", "description": "1. Open the application.\n2. Perform the secondary action.", "expectedResult": "The secondary action completes for the %[1]s scenario."}
]`, category, prefix)
}

func detectCategory(prompt string) (testgen.Category, string) {
	lower := strings.ToLower(prompt)
	for _, category := range testgen.Categories() {
		if strings.Contains(lower, "**"+strings.ToLower(string(category))+"**") {
			return category, category.IDPrefix()
		}
	}
	return testgen.CategoryPositive, testgen.CategoryPositive.IDPrefix()
}
