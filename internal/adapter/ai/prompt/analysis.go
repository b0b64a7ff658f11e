package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/testgenius/backend/internal/domain/testgen"
)

//go:embed templates/analysis_system.md
var AnalysisSystemPrompt string

// BuildAnalysisPrompt builds the user prompt for the story-quality review.
// imageCount is the number of decoded images that accompany the call.
func BuildAnalysisPrompt(story testgen.Story, relatedTestCases string, imageCount int) string {
	var sb strings.Builder

	sb.WriteString(AnalysisSystemPrompt)
	sb.WriteString("\n**USER STORY:**\n")
	fmt.Fprintf(&sb, "**Title:** %s\n", story.Title)
	fmt.Fprintf(&sb, "**Description:** %s\n", story.Description)
	fmt.Fprintf(&sb, "**Acceptance Criteria:** %s\n", story.AcceptanceCriteria)

	if relatedTestCases != "" {
		sb.WriteString("\n**RELATED TEST CASES (if available):**\n")
		sb.WriteString(relatedTestCases)
		sb.WriteString("\n")
	}

	if imageCount > 0 {
		fmt.Fprintf(&sb, "\n**IMAGES PROVIDED:**\n%d image(s) have been included with this user story. Examine each image carefully, compare it against the acceptance criteria rules, and reference specific images when identifying ambiguities (e.g., \"In Image 1, there is a button that is not mentioned in acceptance criteria...\").\n", imageCount)
	}

	return sb.String()
}
