package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/testgenius/backend/internal/adapter/ai"
	"github.com/testgenius/backend/internal/adapter/htmlimg"
	"github.com/testgenius/backend/internal/domain/testgen"
	usecase "github.com/testgenius/backend/internal/usecase/testgen"
)

type fetchStoryBody struct {
	StoryID int    `json:"story_id"`
	OrgURL  string `json:"azure_devops_org_url"`
	Project string `json:"azure_devops_project_name"`
	PAT     string `json:"azure_devops_pat"`
}

type fetchStoryResponse struct {
	ID                 int                `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	AcceptanceCriteria string             `json:"acceptance_criteria"`
	RelatedStories     []relatedStoryBody `json:"related_stories"`
}

// FetchStory fetches one user story and its related stories from the tracker,
// returning plain text with embedded images reduced to placeholders.
func (h *Handler) FetchStory(w http.ResponseWriter, r *http.Request) {
	var body fetchStoryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body: %v", testgen.ErrInvalidInput, err))
		return
	}
	if body.StoryID <= 0 {
		writeError(w, fmt.Errorf("%w: story_id is required", testgen.ErrInvalidInput))
		return
	}

	auth := testgen.TrackerAuth{
		OrgURL:  body.OrgURL,
		Project: body.Project,
		Token:   trackerToken(r, body.PAT),
	}
	if err := auth.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: tracker organization, project and token are required", testgen.ErrInvalidInput))
		return
	}

	doc, err := h.tracker.FetchWorkItem(r.Context(), auth, body.StoryID)
	if err != nil {
		writeError(w, err)
		return
	}

	related, err := h.tracker.FetchRelatedStories(r.Context(), auth, doc.RelatedIDs)
	if err != nil {
		// Related context is optional; the primary story is still usable.
		slog.WarnContext(r.Context(), "fetching related stories failed",
			"story_id", body.StoryID,
			"error", err,
		)
		related = nil
	}

	resp := fetchStoryResponse{
		ID:                 doc.ID,
		Title:              doc.Title,
		Description:        htmlimg.ExtractText(doc.DescriptionHTML),
		AcceptanceCriteria: htmlimg.ExtractText(doc.AcceptanceCriteriaHTML),
		RelatedStories:     make([]relatedStoryBody, 0, len(related)),
	}
	for _, rs := range related {
		resp.RelatedStories = append(resp.RelatedStories, relatedStoryBody{
			ID:                 rs.ID,
			Title:              rs.Title,
			Description:        rs.Description,
			AcceptanceCriteria: rs.AcceptanceCriteria,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type analyzeBody struct {
	StoryTitle         string `json:"story_title"`
	StoryDescription   string `json:"story_description"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
	DataDictionary     string `json:"data_dictionary"`
	RelatedTestCases   string `json:"related_test_cases"`
	AIProvider         string `json:"ai_provider"`
	GeminiAPIKey       string `json:"gemini_api_key"`
	AnthropicAPIKey    string `json:"anthropic_api_key"`
}

// AnalyzeStory runs the ambiguity/testability review of a story and returns
// the provider's HTML verdict.
func (h *Handler) AnalyzeStory(w http.ResponseWriter, r *http.Request) {
	var body analyzeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body: %v", testgen.ErrInvalidInput, err))
		return
	}

	var images []testgen.Image
	description, images := extractField(body.StoryDescription, images)
	criteria, images := extractField(body.AcceptanceCriteria, images)

	story := testgen.Story{
		Title:              body.StoryTitle,
		Description:        description,
		AcceptanceCriteria: criteria,
		DataDictionary:     body.DataDictionary,
	}

	kind := testgen.ProviderKind(body.AIProvider)
	if body.AIProvider == "" {
		kind = testgen.ProviderGemini
	}
	pc := ai.ResolveContext(kind, testgen.ProviderKeys{
		Gemini:    body.GeminiAPIKey,
		Anthropic: body.AnthropicAPIKey,
	}, h.cfg.DefaultKeys())

	provider, err := h.newProvider(r.Context(), pc)
	if err != nil {
		writeError(w, err)
		return
	}

	analyzer := usecase.NewAnalyzer(provider, usecase.WithCallTimeout(h.cfg.CallTimeout))
	analysis, err := analyzer.Execute(r.Context(), story, body.RelatedTestCases, images)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

// trackerToken prefers the Authorization header over a token in the body so
// credentials stay out of request payload logs where possible.
func trackerToken(r *http.Request, bodyToken string) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	return bodyToken
}
