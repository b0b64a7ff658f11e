package prompt

import (
	"regexp"
	"strings"
)

var (
	numberedLineRe = regexp.MustCompile(`^\s*\d+[.)]\s+`)
	bulletLineRe   = regexp.MustCompile(`^\s*[-*\x{2022}]\s+`)
)

// stepIndicators are phrases that open a step-collection window even when the
// line itself is not a step.
var stepIndicators = []string{
	"steps:",
	"test steps:",
	"steps to reproduce:",
	"also consider these steps",
	"consider these steps",
	"follow these steps",
}

// imperativeVerbs are common leading verbs accepted as steps inside an open
// collection window.
var imperativeVerbs = []string{
	"navigate", "click", "select", "enter", "verify", "check",
	"open", "close", "submit", "save", "login", "logout",
}

// DetectSteps scans acceptance-criteria text for an explicit sequence of test
// steps. A line counts as a step when it carries an ordered numeral ("1." or
// "1)") or a bullet marker; an indicator phrase ("steps:", "also consider
// these steps", ...) opens a window that also accepts lines starting with a
// common imperative verb. A window opened by a literal numeral or bullet
// closes at the first non-matching line; an indicator-only window is more
// permissive and keeps scanning. When no sequential steps are found, a
// fallback pass collects any numbered line anywhere in the text.
func DetectSteps(text string) (bool, string) {
	lines := strings.Split(text, "\n")

	var steps []string
	inWindow := false
	indicatorWindow := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if isStepIndicator(trimmed) {
			inWindow = true
			indicatorWindow = true
			continue
		}

		switch {
		case numberedLineRe.MatchString(line) || bulletLineRe.MatchString(line):
			steps = append(steps, trimmed)
			if !indicatorWindow {
				inWindow = true
			}
		case inWindow && startsWithImperative(trimmed):
			steps = append(steps, trimmed)
		default:
			if inWindow && !indicatorWindow {
				// Literal window: the list ended.
				inWindow = false
				if len(steps) > 0 {
					return true, strings.Join(steps, "\n")
				}
			}
		}
	}

	if len(steps) > 0 {
		return true, strings.Join(steps, "\n")
	}

	// Fallback: any numbered line anywhere in the text.
	for _, line := range lines {
		if numberedLineRe.MatchString(line) {
			steps = append(steps, strings.TrimSpace(line))
		}
	}
	if len(steps) > 0 {
		return true, strings.Join(steps, "\n")
	}
	return false, ""
}

func isStepIndicator(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range stepIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func startsWithImperative(line string) bool {
	lower := strings.ToLower(line)
	for _, verb := range imperativeVerbs {
		if strings.HasPrefix(lower, verb+" ") || lower == verb {
			return true
		}
	}
	return false
}
