// Package prompt assembles the instruction strings sent to the LLM providers.
// Builders are pure functions of their inputs; the fixed guideline blocks live
// in embedded templates.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/testgenius/backend/internal/domain/testgen"
)

//go:embed templates/guideline_positive.md
var positiveGuidelines string

//go:embed templates/guideline_negative.md
var negativeGuidelines string

//go:embed templates/guideline_edge_case.md
var edgeCaseGuidelines string

//go:embed templates/guideline_data_flow.md
var dataFlowGuidelines string

// guidelinesFor returns the fixed per-category guideline block.
func guidelinesFor(category testgen.Category) string {
	switch category {
	case testgen.CategoryPositive:
		return positiveGuidelines
	case testgen.CategoryNegative:
		return negativeGuidelines
	case testgen.CategoryEdgeCase:
		return edgeCaseGuidelines
	case testgen.CategoryDataFlow:
		return dataFlowGuidelines
	default:
		return "- Follow standard best practices for this test type.\n"
	}
}

// Input carries everything a test-case prompt is built from. Story fields are
// plain text: images were already replaced by placeholder tokens upstream.
type Input struct {
	Story          testgen.Story
	Category       testgen.Category
	AmbiguityAware bool

	// HasSteps/StepsText is the result of DetectSteps over the acceptance
	// criteria, computed once per run and shared by all four categories.
	HasSteps  bool
	StepsText string
}

// BuildTestCasePrompt produces the directive string for one (story, category)
// pair.
func BuildTestCasePrompt(in Input) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an expert test case generator for Azure DevOps with a focus on comprehensive test coverage. Your task is to generate a JSON array of ONLY the **%s** test cases for the user story below.\n\n", in.Category)

	sb.WriteString("**User Story Details:**\n")
	fmt.Fprintf(&sb, "- **Title:** %s\n", in.Story.Title)
	fmt.Fprintf(&sb, "- **Description:** %s\n", in.Story.Description)
	fmt.Fprintf(&sb, "- **Acceptance Criteria:** %s\n", in.Story.AcceptanceCriteria)
	fmt.Fprintf(&sb, "- **Data Dictionary:** %s\n", in.Story.DataDictionary)
	writeRelatedStories(&sb, in.Story.Related)
	sb.WriteString("\n")

	sb.WriteString("**IMAGES PROVIDED:**\n")
	sb.WriteString("If images are included with the user story, analyze them carefully and reference their content when generating test cases. The images may show UI mockups, workflows, or visual requirements that should be covered in the test cases.\n\n")

	sb.WriteString("**Universal Guidelines:**\n")
	sb.WriteString("1. **Descriptive Titles:** Create specific, action-oriented titles that clearly describe what functionality is being tested. Avoid generic titles like \"Test login\" - instead use \"User can successfully login with valid email and password\".\n")
	fmt.Fprintf(&sb, "2. **Consistency First:** For any '%s' test, the `title`, `description`, and `expectedResult` must all be consistent with that scenario. For example, a 'Negative' test's title must describe a failure condition, and its expected result must describe the correct error handling.\n", in.Category)
	sb.WriteString("3. **Single Condition:** Each test case must focus on verifying exactly ONE condition or scenario. Do not combine multiple test conditions.\n\n")

	sb.WriteString("**Mobile Application Guidelines (Apply if context is a mobile app):**\n")
	sb.WriteString("- If a scenario applies to both iOS and Android, write a single, consolidated test case.\n")
	sb.WriteString("- Create separate, platform-specific test cases ONLY for behaviors that differ (e.g., native UI, permissions).\n")
	sb.WriteString("- Prefix platform-specific titles with `[iOS]` or `[Android]`.\n")
	sb.WriteString("- Assume only one iOS and one Android device are available. Do not create tests requiring multiple devices of the same platform.\n")
	sb.WriteString("- Include mobile-specific edge cases: network interruptions, orientation changes, notifications, permissions, etc.\n\n")

	sb.WriteString(guidelinesFor(in.Category))
	sb.WriteString("\n")

	if in.HasSteps && strings.TrimSpace(in.StepsText) != "" {
		sb.WriteString("**Test Steps Found in Acceptance Criteria:**\n")
		sb.WriteString("The acceptance criteria contain explicit test steps. Every generated test case MUST begin with these exact steps, in this exact order, unmodified:\n")
		sb.WriteString(in.StepsText)
		fmt.Fprintf(&sb, "\nAfter these steps, append the additional %s-specific steps needed to complete each scenario.\n\n", in.Category)
	}

	if in.AmbiguityAware {
		sb.WriteString("**Ambiguity Detection:**\n")
		sb.WriteString("The acceptance criteria may contain contradictory, vague, or underspecified language. Actively look for such ambiguities and generate test cases that expose them: test both plausible readings of an ambiguous rule, and call out the assumption made in the test description.\n\n")
	}

	sb.WriteString("**JSON Output Format:**\n")
	sb.WriteString("Each test case in the JSON array must have the following fields:\n")
	fmt.Fprintf(&sb, "- `id`: A unique identifier following the convention for the test type (e.g., \"%s-1\").\n", in.Category.IDPrefix())
	fmt.Fprintf(&sb, "- `title`: A concise but descriptive title (aim for 60-100 characters) that clearly indicates the specific functionality or scenario being tested, includes the type of test in brackets (e.g., \"[%s]\"), and uses action-oriented language.\n", in.Category)
	sb.WriteString("- `priority`: \"High\", \"Medium\", or \"Low\".\n")
	sb.WriteString("- `description`: A numbered list of steps, e.g., \"1. Step one.\\n2. Step two.\".\n")
	sb.WriteString("- `expectedResult`: A specific and verifiable outcome.\n\n")

	sb.WriteString("**ID Naming Convention:**\n")
	sb.WriteString("- Positive cases: `TC-POS-[number]`\n")
	sb.WriteString("- Negative cases: `TC-NEG-[number]`\n")
	sb.WriteString("- Edge cases: `TC-EDGE-[number]`\n")
	sb.WriteString("- Data flow cases: `TC-DF-[number]`\n\n")

	fmt.Fprintf(&sb, "Now, generate ONLY the `%s` test cases based on all these instructions.\n\n", in.Category)
	sb.WriteString("- Do not generate duplicate test cases. Each test case must be unique in its condition, steps, and expected result.\n")
	sb.WriteString("- Return ONLY the JSON array, with no commentary, markdown, or code fences around it.\n")

	return sb.String()
}

func writeRelatedStories(sb *strings.Builder, related []testgen.RelatedStory) {
	if len(related) == 0 {
		return
	}
	sb.WriteString("\n**Instruction:** When generating test cases, take into account not only the main user story but also the context and requirements described in the related user stories below.\n")
	sb.WriteString("**Related User Stories:**\n")
	for _, r := range related {
		fmt.Fprintf(sb, "- Title: %s\n  Description: %s\n  Acceptance Criteria: %s\n", r.Title, r.Description, r.AcceptanceCriteria)
	}
}

// BuildNegativeFallbackPrompt produces the stricter regeneration prompt used
// when the Negative category came back empty. It demands a minimum set of
// generic negative scenarios that apply to nearly any story.
func BuildNegativeFallbackPrompt(story testgen.Story) string {
	var sb strings.Builder

	sb.WriteString("You are an expert test case generator. The previous attempt produced no Negative test cases for the user story below. Negative coverage is mandatory.\n\n")
	sb.WriteString("**User Story Details:**\n")
	fmt.Fprintf(&sb, "- **Title:** %s\n", story.Title)
	fmt.Fprintf(&sb, "- **Acceptance Criteria:** %s\n\n", story.AcceptanceCriteria)

	sb.WriteString("Generate a JSON array of AT LEAST 3 Negative test cases. Cover these generic failure scenarios, adapted to the story:\n")
	sb.WriteString("- A required field or input is missing.\n")
	sb.WriteString("- An input has an invalid format.\n")
	sb.WriteString("- An input is empty or null.\n")
	sb.WriteString("- The user performs an invalid or out-of-order action.\n")
	sb.WriteString("- A system error occurs mid-operation.\n\n")

	sb.WriteString("Each test case must have `id` (\"TC-NEG-[number]\"), `title` (prefixed \"[Negative]\"), `priority`, `description` (numbered steps), and `expectedResult`.\n")
	sb.WriteString("Return ONLY the JSON array.\n")

	return sb.String()
}
