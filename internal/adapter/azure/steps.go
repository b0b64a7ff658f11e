package azure

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/testgenius/backend/internal/domain/testgen"
)

var leadingNumeralRe = regexp.MustCompile(`^\s*\d+\.\s*`)

// MapPriority converts a provider-supplied priority string to the tracker's
// integer scale. Unrecognized values default to Medium (3).
func MapPriority(priority string) int {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "critical", "1":
		return 1
	case "high", "2":
		return 2
	case "medium", "3":
		return 3
	case "low", "4":
		return 4
	default:
		return 3
	}
}

// BuildStepsXML projects a test case's steps into the tracker's step markup.
// Only the last step carries the expected result; earlier steps carry an
// empty expected value. A case with no steps but an expected result gets one
// synthesized placeholder step. A case with neither yields no markup at all:
// it is uploaded title/priority-only.
func BuildStepsXML(tc testgen.TestCase) string {
	steps := tc.Description.Lines()
	expected := strings.TrimSpace(tc.ExpectedResult)

	if len(steps) == 0 {
		if expected == "" {
			return ""
		}
		var sb strings.Builder
		sb.WriteString("<steps id='0' last='1'>")
		writeStep(&sb, 1, "Execute test steps", html.EscapeString(expected))
		sb.WriteString("</steps>")
		return sb.String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<steps id='0' last='%d'>", len(steps))
	for i, step := range steps {
		action := html.EscapeString(strings.TrimSpace(leadingNumeralRe.ReplaceAllString(step, "")))
		expectedForStep := ""
		if i == len(steps)-1 && expected != "" {
			expectedForStep = html.EscapeString(expected)
		}
		writeStep(&sb, i+1, action, expectedForStep)
	}
	sb.WriteString("</steps>")
	return sb.String()
}

func writeStep(sb *strings.Builder, id int, action, expected string) {
	fmt.Fprintf(sb, "<step id='%d' type='ActionStep'>", id)
	fmt.Fprintf(sb, "<parameterizedString isformatted='true'>%s</parameterizedString>", action)
	fmt.Fprintf(sb, "<parameterizedString isformatted='true'>%s</parameterizedString>", expected)
	sb.WriteString("</step>")
}
