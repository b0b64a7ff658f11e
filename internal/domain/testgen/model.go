package testgen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category represents one of the fixed test-case classes generated per run.
type Category string

const (
	CategoryPositive Category = "Positive"
	CategoryNegative Category = "Negative"
	CategoryEdgeCase Category = "Edge Case"
	CategoryDataFlow Category = "Data Flow"
)

// Categories returns all categories in generation order.
func Categories() []Category {
	return []Category{CategoryPositive, CategoryNegative, CategoryEdgeCase, CategoryDataFlow}
}

// IsValid checks if the category is one of the supported values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryPositive, CategoryNegative, CategoryEdgeCase, CategoryDataFlow:
		return true
	default:
		return false
	}
}

// IDPrefix returns the provider-facing id naming convention for the category
// (e.g. "TC-POS" for Positive).
func (c Category) IDPrefix() string {
	switch c {
	case CategoryPositive:
		return "TC-POS"
	case CategoryNegative:
		return "TC-NEG"
	case CategoryEdgeCase:
		return "TC-EDGE"
	case CategoryDataFlow:
		return "TC-DF"
	default:
		return "TC"
	}
}

// RelatedStory is the reduced shape of a linked user story included as
// generation context.
type RelatedStory struct {
	ID                 int
	Title              string
	Description        string
	AcceptanceCriteria string
}

// Story holds the plain-text fields of a user story after image extraction.
// Images embedded in the rich-text fields have already been replaced by
// placeholder tokens; the decoded images travel separately.
type Story struct {
	Title              string
	Description        string
	AcceptanceCriteria string
	DataDictionary     string
	Related            []RelatedStory
}

func (s Story) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: story title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(s.AcceptanceCriteria) == "" {
		return fmt.Errorf("%w: acceptance criteria is required", ErrInvalidInput)
	}
	return nil
}

// Image is a decoded image attached to a story field.
type Image struct {
	Data []byte
	MIME string // e.g. "image/png"
}

// GenerationRequest is one generation run: the story, the chosen provider,
// and per-request options. Created per HTTP call and never persisted.
type GenerationRequest struct {
	Story          Story
	Images         []Image
	Provider       ProviderKind
	AmbiguityAware bool
	Keys           ProviderKeys
}

func (r GenerationRequest) Validate() error {
	if err := r.Story.Validate(); err != nil {
		return err
	}
	if !r.Provider.IsValid() {
		return fmt.Errorf("%w: unsupported provider %q", ErrInvalidInput, r.Provider)
	}
	return nil
}

// StepText is a test-case description that providers return either as an
// ordered JSON array of step strings or as a single newline-separated string.
// Both forms are preserved so the case re-serializes the way it arrived.
type StepText struct {
	steps  []string
	text   string
	isList bool
}

// StepsFromList builds a StepText from an explicit step slice.
func StepsFromList(steps []string) StepText {
	return StepText{steps: steps, isList: true}
}

// StepsFromString builds a StepText from free text.
func StepsFromString(text string) StepText {
	return StepText{text: text}
}

func (s *StepText) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err == nil {
		steps := make([]string, 0, len(raw))
		for _, entry := range raw {
			if str, ok := entry.(string); ok {
				steps = append(steps, str)
			} else if entry != nil {
				steps = append(steps, fmt.Sprint(entry))
			}
		}
		*s = StepText{steps: steps, isList: true}
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = StepText{text: text}
		return nil
	}

	// Tolerate any other scalar shape rather than failing the whole case.
	*s = StepText{text: strings.Trim(string(data), `"`)}
	return nil
}

func (s StepText) MarshalJSON() ([]byte, error) {
	if s.isList {
		return json.Marshal(s.steps)
	}
	return json.Marshal(s.text)
}

// IsEmpty reports whether the description carries no usable content.
func (s StepText) IsEmpty() bool {
	if s.isList {
		for _, step := range s.steps {
			if strings.TrimSpace(step) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(s.text) == ""
}

// Lines normalizes the description into an ordered list of non-blank step
// strings. A string value that looks like a literal list ("[...]") is parsed
// as one, falling back to a newline split.
func (s StepText) Lines() []string {
	if s.isList {
		return dropBlank(s.steps)
	}

	text := strings.TrimSpace(s.text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		var parsed []any
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			steps := make([]string, 0, len(parsed))
			for _, entry := range parsed {
				if entry == nil {
					continue
				}
				if str, ok := entry.(string); ok {
					steps = append(steps, str)
				} else {
					steps = append(steps, fmt.Sprint(entry))
				}
			}
			return dropBlank(steps)
		}
	}
	return dropBlank(strings.Split(text, "\n"))
}

func dropBlank(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// TestCase is one generated test case. The category is implicit in the id and
// title prefix at creation time and stripped before upload.
type TestCase struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Priority       string   `json:"priority"`
	Description    StepText `json:"description"`
	ExpectedResult string   `json:"expectedResult"`
}
