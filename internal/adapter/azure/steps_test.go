package azure

import (
	"strings"
	"testing"

	"github.com/testgenius/backend/internal/domain/testgen"
)

func TestMapPriority(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Critical", 1},
		{"High", 2},
		{"Medium", 3},
		{"Low", 4},
		{"1", 1},
		{"2", 2},
		{"3", 3},
		{"4", 4},
		{" high ", 2},
		{"bogus", 3},
		{"", 3},
	}
	for _, tt := range tests {
		if got := MapPriority(tt.in); got != tt.want {
			t.Errorf("MapPriority(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBuildStepsXML_LastStepCarriesExpectedResult(t *testing.T) {
	tc := testgen.TestCase{
		Description:    testgen.StepsFromList([]string{"1. Open the login page", "2. Enter credentials"}),
		ExpectedResult: "User is logged in",
	}

	xml := BuildStepsXML(tc)

	if !strings.HasPrefix(xml, "<steps id='0' last='2'>") {
		t.Errorf("envelope wrong: %s", xml)
	}
	if !strings.Contains(xml, "<step id='1' type='ActionStep'><parameterizedString isformatted='true'>Open the login page</parameterizedString><parameterizedString isformatted='true'></parameterizedString></step>") {
		t.Errorf("first step should be numeral-stripped with empty expected: %s", xml)
	}
	if !strings.Contains(xml, "<step id='2' type='ActionStep'><parameterizedString isformatted='true'>Enter credentials</parameterizedString><parameterizedString isformatted='true'>User is logged in</parameterizedString></step>") {
		t.Errorf("last step should carry the expected result: %s", xml)
	}
}

func TestBuildStepsXML_SynthesizedStepWithoutSteps(t *testing.T) {
	tc := testgen.TestCase{ExpectedResult: "Export completes"}

	xml := BuildStepsXML(tc)

	if !strings.Contains(xml, "last='1'") {
		t.Errorf("synthesized case should have one step: %s", xml)
	}
	if !strings.Contains(xml, ">Execute test steps<") {
		t.Errorf("synthesized action missing: %s", xml)
	}
	if !strings.Contains(xml, ">Export completes<") {
		t.Errorf("expected result missing: %s", xml)
	}
}

func TestBuildStepsXML_EmptyWhenNothingToProject(t *testing.T) {
	if xml := BuildStepsXML(testgen.TestCase{}); xml != "" {
		t.Errorf("expected empty markup, got %s", xml)
	}
}

func TestBuildStepsXML_EscapesMarkup(t *testing.T) {
	tc := testgen.TestCase{
		Description:    testgen.StepsFromList([]string{`Enter "<script>" into the name field`}),
		ExpectedResult: "Input is rejected & logged",
	}

	xml := BuildStepsXML(tc)

	if strings.Contains(xml, "<script>") {
		t.Errorf("step action not escaped: %s", xml)
	}
	if !strings.Contains(xml, "&lt;script&gt;") {
		t.Errorf("escaped action missing: %s", xml)
	}
	if !strings.Contains(xml, "rejected &amp; logged") {
		t.Errorf("expected result not escaped: %s", xml)
	}
}

func TestBuildStepsXML_StringDescriptionSplitsLines(t *testing.T) {
	tc := testgen.TestCase{
		Description:    testgen.StepsFromString("1. Open settings\n2. Toggle dark mode"),
		ExpectedResult: "Theme switches",
	}

	xml := BuildStepsXML(tc)

	if !strings.Contains(xml, "last='2'") {
		t.Errorf("newline-separated description should yield two steps: %s", xml)
	}
	if !strings.Contains(xml, ">Toggle dark mode<") {
		t.Errorf("second step missing: %s", xml)
	}
}
