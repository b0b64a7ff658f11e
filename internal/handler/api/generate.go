package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/testgenius/backend/internal/adapter/ai"
	"github.com/testgenius/backend/internal/adapter/htmlimg"
	"github.com/testgenius/backend/internal/domain/testgen"
	usecase "github.com/testgenius/backend/internal/usecase/testgen"
)

type relatedStoryBody struct {
	ID                 int    `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
}

type generateBody struct {
	StoryTitle         string             `json:"story_title"`
	StoryDescription   string             `json:"story_description"`
	AcceptanceCriteria string             `json:"acceptance_criteria"`
	DataDictionary     string             `json:"data_dictionary"`
	RelatedStories     []relatedStoryBody `json:"related_stories"`
	AIProvider         string             `json:"ai_provider"`
	AmbiguityAware     bool               `json:"ambiguity_aware"`
	GeminiAPIKey       string             `json:"gemini_api_key"`
	AnthropicAPIKey    string             `json:"anthropic_api_key"`
}

// toRequest converts the wire payload into a generation request, extracting
// inline images from the rich-text fields.
func (b generateBody) toRequest() testgen.GenerationRequest {
	var images []testgen.Image
	description, images := extractField(b.StoryDescription, images)
	criteria, images := extractField(b.AcceptanceCriteria, images)
	dictionary, images := extractField(b.DataDictionary, images)

	related := make([]testgen.RelatedStory, 0, len(b.RelatedStories))
	for _, rs := range b.RelatedStories {
		related = append(related, testgen.RelatedStory{
			ID:                 rs.ID,
			Title:              rs.Title,
			Description:        rs.Description,
			AcceptanceCriteria: rs.AcceptanceCriteria,
		})
	}

	kind := testgen.ProviderKind(b.AIProvider)
	if b.AIProvider == "" {
		kind = testgen.ProviderGemini
	}

	return testgen.GenerationRequest{
		Story: testgen.Story{
			Title:              b.StoryTitle,
			Description:        description,
			AcceptanceCriteria: criteria,
			DataDictionary:     dictionary,
			Related:            related,
		},
		Images:         images,
		Provider:       kind,
		AmbiguityAware: b.AmbiguityAware,
		Keys: testgen.ProviderKeys{
			Gemini:    b.GeminiAPIKey,
			Anthropic: b.AnthropicAPIKey,
		},
	}
}

// htmlTagRe matches the opening of any HTML tag, including closing tags and
// comments.
var htmlTagRe = regexp.MustCompile(`<[a-zA-Z/!]`)

// extractField strips markup from a rich-text field, pulling embedded images
// out along the way. Plain-text fields pass through untouched; HTML fields
// come back as plain text with paragraph and line breaks preserved so step
// numbering survives for prompt construction.
func extractField(field string, images []testgen.Image) (string, []testgen.Image) {
	if !htmlTagRe.MatchString(field) {
		return field, images
	}
	extracted, text := htmlimg.ExtractImagesAndText(field)
	return text, append(images, extracted...)
}

// batchEvent is one per-category result pushed over SSE. Cases is always
// present, even when a category legitimately produced nothing.
type batchEvent struct {
	Type     string             `json:"type"`
	Cases    []testgen.TestCase `json:"cases"`
	Progress string             `json:"progress"`
}

// controlEvent signals per-category errors and run termination.
type controlEvent struct {
	Type     string `json:"type"`
	CaseType string `json:"case_type,omitempty"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
}

// GenerateTestCases streams generated test cases per category over SSE. The
// GET form carries the JSON payload url-encoded in the "payload" query
// parameter because EventSource cannot send a request body.
func (h *Handler) GenerateTestCases(w http.ResponseWriter, r *http.Request) {
	body, err := decodeGenerateBody(r)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", testgen.ErrInvalidInput, err))
		return
	}

	req := body.toRequest()
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	pc := ai.ResolveContext(req.Provider, req.Keys, h.cfg.DefaultKeys())
	provider, err := h.newProvider(r.Context(), pc)
	if err != nil {
		writeError(w, err)
		return
	}

	setCORS(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported by connection"))
		return
	}

	stream := &sseWriter{w: w, flusher: flusher}

	generator := usecase.NewGenerator(provider, usecase.WithCallTimeout(h.cfg.CallTimeout))
	result, err := generator.Execute(r.Context(), req, func(ev usecase.Event) error {
		if ev.Err != nil {
			return stream.send(controlEvent{
				Type:     "error",
				CaseType: string(ev.Category),
				Error:    "generation failed",
				Message:  ev.Err.Error(),
			})
		}
		cases := ev.Cases
		if cases == nil {
			cases = []testgen.TestCase{}
		}
		return stream.send(batchEvent{
			Type:     string(ev.Category),
			Cases:    cases,
			Progress: ev.Progress,
		})
	})
	if err != nil {
		var abortedAt testgen.Category
		if result != nil {
			abortedAt = result.AbortedAt
		}
		slog.ErrorContext(r.Context(), "generation run ended early",
			"error", err,
			"aborted_at", abortedAt,
		)
		_ = stream.send(controlEvent{Type: "done", Message: "Generation stopped early."})
		return
	}

	message := "All test cases generated."
	if len(result.Failed) > 0 || len(result.Degraded) > 0 {
		message = fmt.Sprintf("Generation finished with gaps: %d categories failed, %d empty.",
			len(result.Failed), len(result.Degraded))
	}
	_ = stream.send(controlEvent{Type: "done", Message: message})
}

func decodeGenerateBody(r *http.Request) (generateBody, error) {
	var body generateBody
	if r.Method == http.MethodGet {
		payload := r.URL.Query().Get("payload")
		if payload == "" {
			return body, fmt.Errorf("missing payload parameter")
		}
		if err := json.Unmarshal([]byte(payload), &body); err != nil {
			return body, fmt.Errorf("invalid payload parameter: %v", err)
		}
		return body, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, fmt.Errorf("invalid request body: %v", err)
	}
	return body, nil
}

// sseWriter serializes events into the text/event-stream wire format and
// flushes after each one so the client sees progress immediately.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseWriter) send(ev any) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
