package testgen

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleLen   = 120
	verifyPrefix  = "Verify "
	fallbackTitle = "Untitled Test Case"
)

var (
	categoryPrefixRe = regexp.MustCompile(`(?i)^\s*\[(positive|negative|edge case|data flow)\]\s*`)
	leadingNumeralRe = regexp.MustCompile(`^\s*\d+[.)]\s*`)
)

// FinalTitle derives the display title for a test case: the provider title
// with any category prefix stripped, or a synthesized title from the steps or
// the expected result when the provider left it blank. The result is
// truncated to 120 characters and carries the "Verify" convention. A title
// already starting with "verify" (any casing) is kept as-is rather than
// double-prefixed.
func FinalTitle(tc TestCase) string {
	title := strings.TrimSpace(categoryPrefixRe.ReplaceAllString(strings.TrimSpace(tc.Title), ""))

	if title == "" {
		title = deriveTitle(tc)
	}

	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen]) + "..."
	}

	if !strings.HasPrefix(strings.ToLower(title), "verify") {
		title = verifyPrefix + title
	}
	return title
}

// deriveTitle synthesizes a title when the provider supplied none, in priority
// order: first step entry, first description line, expected result, literal
// fallback.
func deriveTitle(tc TestCase) string {
	if steps := tc.Description.Lines(); len(steps) > 0 {
		if first := strings.TrimSpace(leadingNumeralRe.ReplaceAllString(steps[0], "")); first != "" {
			return first
		}
	}
	if expected := strings.TrimSpace(tc.ExpectedResult); expected != "" {
		return "Test for: " + expected
	}
	return fallbackTitle
}

// asciiPunctuation mirrors the punctuation set stripped from titles before
// duplicate comparison.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// NormalizeTitleKey computes the duplicate-detection key for a title: all
// whitespace removed, lowercased, ASCII punctuation stripped, Unicode
// canonical-decomposition (NFKD) applied, and control-category runes removed.
// The function is idempotent.
func NormalizeTitleKey(title string) string {
	var sb strings.Builder
	for _, r := range title {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}

	stripped := strings.Map(func(r rune) rune {
		if r < 128 && strings.ContainsRune(asciiPunctuation, r) {
			return -1
		}
		return r
	}, sb.String())

	decomposed := norm.NFKD.String(stripped)

	// NFKD can surface ASCII punctuation and uppercase letters from
	// compatibility forms, so strip and lower once more to keep the key
	// idempotent.
	return strings.Map(func(r rune) rune {
		if unicode.In(r, unicode.C) || unicode.IsSpace(r) {
			return -1
		}
		if r < 128 && strings.ContainsRune(asciiPunctuation, r) {
			return -1
		}
		return unicode.ToLower(r)
	}, decomposed)
}
