package testgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/testgenius/backend/internal/adapter/ai/mock"
	"github.com/testgenius/backend/internal/domain/testgen"
)

func TestAnalyzer_StripsFencesFromVerdict(t *testing.T) {
	provider := mock.NewScripted([]string{"```html\n<h3>Review</h3><p>Looks testable.</p>\n```"}, nil)
	analyzer := NewAnalyzer(provider)

	story := testgen.Story{Title: "Login", AcceptanceCriteria: "User can log in"}
	analysis, err := analyzer.Execute(context.Background(), story, "", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if analysis != "<h3>Review</h3><p>Looks testable.</p>" {
		t.Errorf("analysis = %q", analysis)
	}
}

func TestAnalyzer_EmptyVerdictIsAnError(t *testing.T) {
	provider := mock.NewScripted([]string{"   "}, nil)
	analyzer := NewAnalyzer(provider)

	story := testgen.Story{Title: "Login", AcceptanceCriteria: "User can log in"}
	_, err := analyzer.Execute(context.Background(), story, "", nil)
	if !errors.Is(err, testgen.ErrEmptyResponse) {
		t.Fatalf("expected empty-response error, got %v", err)
	}
}

func TestAnalyzer_PassesRelatedTestCasesToPrompt(t *testing.T) {
	provider := mock.NewScripted([]string{"<p>ok</p>"}, nil)
	analyzer := NewAnalyzer(provider)

	story := testgen.Story{Title: "Login", AcceptanceCriteria: "User can log in"}
	_, err := analyzer.Execute(context.Background(), story, "Verify login succeeds", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	reqs := provider.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(reqs))
	}
	if !strings.Contains(reqs[0].Prompt, "Verify login succeeds") {
		t.Error("prompt should include the existing test cases")
	}
}

func TestAnalyzer_RejectsInvalidStory(t *testing.T) {
	analyzer := NewAnalyzer(mock.NewProvider())

	_, err := analyzer.Execute(context.Background(), testgen.Story{Title: "no criteria"}, "", nil)
	if !errors.Is(err, testgen.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
