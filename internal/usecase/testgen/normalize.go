package testgen

import (
	"encoding/json"
	"strings"

	"github.com/testgenius/backend/internal/domain/testgen"
)

// ParseCases turns raw provider text into test-case records for one category.
// It strips fenced-code markers, extracts the first bracketed span, parses it,
// and falls back to truncation recovery when the text starts an array it never
// closes. It fails closed: unparseable input yields an empty slice, never an
// error.
func ParseCases(raw string) []testgen.TestCase {
	text := strings.TrimSpace(StripCodeFences(raw))
	if text == "" {
		return nil
	}

	if span, ok := ExtractJSONArray(text); ok {
		if cases, err := unmarshalCases(span); err == nil {
			return cases
		}
	}

	// A text that opens an array but never closes it is the strong signal of
	// output cut off at the token limit.
	if strings.HasPrefix(text, "[") && !strings.HasSuffix(text, "]") {
		if cases, ok := TryRecoverTruncatedArray(text); ok {
			return cases
		}
	}

	return nil
}

// StripCodeFences removes a leading fenced-code marker line and, when present,
// its closing counterpart. Providers regularly wrap JSON output in markdown
// fences despite instructions not to.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}

	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	} else {
		return ""
	}

	trimmed = strings.TrimSpace(trimmed)
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}
	return trimmed
}

// ExtractJSONArray returns the first greedy bracketed span of the text: from
// the first '[' to the last ']'. Handles providers that prepend or append
// commentary around the array.
func ExtractJSONArray(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, ']')
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// TryRecoverTruncatedArray attempts to close a truncated JSON array early by
// trimming back to a separator comma and appending a close bracket. It walks
// commas from the right so truncation mid-string, mid-key or mid-object still
// recovers the last complete element. A documented best-effort heuristic, not
// a streaming parser.
func TryRecoverTruncatedArray(text string) ([]testgen.TestCase, bool) {
	// The cut may have landed exactly after a complete element.
	if cases, err := unmarshalCases(text + "]"); err == nil && len(cases) > 0 {
		return cases, true
	}

	for {
		idx := strings.LastIndexByte(text, ',')
		if idx < 0 {
			return nil, false
		}
		candidate := text[:idx] + "]"
		if cases, err := unmarshalCases(candidate); err == nil && len(cases) > 0 {
			return cases, true
		}
		text = text[:idx]
	}
}

func unmarshalCases(span string) ([]testgen.TestCase, error) {
	var cases []testgen.TestCase
	if err := json.Unmarshal([]byte(span), &cases); err != nil {
		return nil, err
	}
	return cases, nil
}
