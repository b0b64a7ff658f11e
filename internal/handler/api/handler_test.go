package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/testgenius/backend/internal/adapter/ai"
	"github.com/testgenius/backend/internal/adapter/ai/mock"
	"github.com/testgenius/backend/internal/domain/testgen"
	"github.com/testgenius/backend/internal/infra/config"
)

type stubTracker struct {
	doc        *testgen.StoryDocument
	related    []testgen.RelatedStory
	fetchErr   error
	createdIDs []int
	createErr  error
	attached   []int
}

func (s *stubTracker) FetchWorkItem(ctx context.Context, auth testgen.TrackerAuth, id int) (*testgen.StoryDocument, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.doc, nil
}

func (s *stubTracker) FetchRelatedStories(ctx context.Context, auth testgen.TrackerAuth, ids []int) ([]testgen.RelatedStory, error) {
	return s.related, nil
}

func (s *stubTracker) CreateTestCase(ctx context.Context, auth testgen.TrackerAuth, tc testgen.TestCase) (int, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	id := 2000 + len(s.createdIDs)
	s.createdIDs = append(s.createdIDs, id)
	return id, nil
}

func (s *stubTracker) AddTestCasesToSuite(ctx context.Context, auth testgen.TrackerAuth, target testgen.SuiteTarget, ids []int) error {
	s.attached = append(s.attached, ids...)
	return nil
}

func newTestHandler(tracker *stubTracker) *Handler {
	h := NewHandler(&config.Config{Addr: ":0"}, tracker)
	h.newProvider = func(ctx context.Context, pc ai.ProviderContext) (testgen.AIProvider, error) {
		return mock.NewProvider(), nil
	}
	return h
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func generatePayload() string {
	return `{
		"story_title": "Password reset",
		"acceptance_criteria": "User receives a reset email.",
		"ai_provider": "gemini",
		"gemini_api_key": "test-key"
	}`
}

// sseEvents splits an SSE body into its decoded JSON payloads.
func sseEvents(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		events = append(events, event)
	}
	return events
}

func TestGenerateTestCases_StreamsAllCategories(t *testing.T) {
	h := newTestHandler(&stubTracker{})

	req := httptest.NewRequest(http.MethodPost, "/generate_test_cases", strings.NewReader(generatePayload()))
	rec := serve(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	events := sseEvents(t, rec.Body.String())
	if len(events) != 5 {
		t.Fatalf("expected 4 category events plus done, got %d", len(events))
	}
	for i, category := range testgen.Categories() {
		if events[i]["type"] != string(category) {
			t.Errorf("event %d type = %v, want %s", i, events[i]["type"], category)
		}
		cases, ok := events[i]["cases"].([]any)
		if !ok || len(cases) == 0 {
			t.Errorf("event %d has no cases", i)
		}
	}
	if events[4]["type"] != "done" {
		t.Errorf("terminal event = %v", events[4])
	}
}

func TestGenerateTestCases_GETPayloadParam(t *testing.T) {
	h := newTestHandler(&stubTracker{})

	target := "/generate_test_cases?payload=" + url.QueryEscape(generatePayload())
	rec := serve(h, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	events := sseEvents(t, rec.Body.String())
	if len(events) != 5 {
		t.Errorf("expected 5 events, got %d", len(events))
	}
}

func TestGenerateTestCases_MissingCriteriaRejected(t *testing.T) {
	h := newTestHandler(&stubTracker{})

	req := httptest.NewRequest(http.MethodPost, "/generate_test_cases",
		strings.NewReader(`{"story_title": "only a title"}`))
	rec := serve(h, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGenerateTestCases_AbortStreamsErrorThenDone(t *testing.T) {
	h := newTestHandler(&stubTracker{})
	h.newProvider = func(ctx context.Context, pc ai.ProviderContext) (testgen.AIProvider, error) {
		return mock.NewScripted(nil, fmt.Errorf("key rejected: %w", testgen.ErrAuth)), nil
	}

	req := httptest.NewRequest(http.MethodPost, "/generate_test_cases", strings.NewReader(generatePayload()))
	rec := serve(h, req)

	events := sseEvents(t, rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("expected error + done, got %d events", len(events))
	}
	if events[0]["type"] != "error" || events[0]["case_type"] != "Positive" {
		t.Errorf("first event = %v", events[0])
	}
	if events[1]["type"] != "done" {
		t.Errorf("second event = %v", events[1])
	}
}

func TestGenerateTestCases_ProviderConfigError(t *testing.T) {
	h := newTestHandler(&stubTracker{})
	h.newProvider = ai.NewProvider

	// No key in the payload and none in the environment config.
	req := httptest.NewRequest(http.MethodPost, "/generate_test_cases",
		strings.NewReader(`{"story_title":"t","acceptance_criteria":"ac","ai_provider":"gemini"}`))
	rec := serve(h, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUploadTestCases(t *testing.T) {
	tracker := &stubTracker{}
	h := newTestHandler(tracker)

	body := `{
		"test_plan_id": 10,
		"test_suite_id": 20,
		"azure_devops_org_url": "https://dev.azure.com/org",
		"azure_devops_project_name": "proj",
		"azure_devops_pat": "pat",
		"test_cases": [
			{"id":"TC-POS-1","title":"[Positive] User logs in","priority":"High"},
			{"id":"TC-NEG-1","title":"User logs in","priority":"High"}
		]
	}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/upload_test_cases", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Received != 2 || resp.Unique != 1 {
		t.Errorf("received/unique = %d/%d", resp.Received, resp.Unique)
	}
	if len(resp.CreatedIDs) != 1 || len(tracker.attached) != 1 {
		t.Errorf("created = %v, attached = %v", resp.CreatedIDs, tracker.attached)
	}
}

func TestUploadTestCases_DoubleEncodedCases(t *testing.T) {
	h := newTestHandler(&stubTracker{})

	inner, _ := json.Marshal(`[{"id":"TC-POS-1","title":"Verify upload","priority":"High"}]`)
	body := fmt.Sprintf(`{
		"test_plan_id": 1,
		"test_suite_id": 2,
		"azure_devops_org_url": "https://dev.azure.com/org",
		"azure_devops_project_name": "proj",
		"azure_devops_pat": "pat",
		"test_cases": %s
	}`, inner)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/upload_test_cases", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUploadTestCases_BearerHeaderWins(t *testing.T) {
	h := newTestHandler(&stubTracker{})

	body := `{
		"test_plan_id": 1,
		"test_suite_id": 2,
		"azure_devops_org_url": "https://dev.azure.com/org",
		"azure_devops_project_name": "proj",
		"test_cases": [{"id":"TC-POS-1","title":"Verify upload"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/upload_test_cases", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer header-token")

	rec := serve(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("token from header should satisfy auth, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadTestCases_MissingTarget(t *testing.T) {
	h := newTestHandler(&stubTracker{})

	body := `{
		"azure_devops_org_url": "https://dev.azure.com/org",
		"azure_devops_project_name": "proj",
		"azure_devops_pat": "pat",
		"test_cases": [{"title":"x"}]
	}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/upload_test_cases", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestFetchStory(t *testing.T) {
	tracker := &stubTracker{
		doc: &testgen.StoryDocument{
			ID:                     42,
			Title:                  "Password reset",
			DescriptionHTML:        "<p>As a user</p>",
			AcceptanceCriteriaHTML: "<p>Email arrives</p>",
			RelatedIDs:             []int{7},
		},
		related: []testgen.RelatedStory{{ID: 7, Title: "Lockout"}},
	}
	h := newTestHandler(tracker)

	body := `{"story_id": 42, "azure_devops_org_url": "https://dev.azure.com/org", "azure_devops_project_name": "proj", "azure_devops_pat": "pat"}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/fetch_story", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp fetchStoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Title != "Password reset" || resp.Description != "As a user" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.RelatedStories) != 1 || resp.RelatedStories[0].Title != "Lockout" {
		t.Errorf("related = %+v", resp.RelatedStories)
	}
}

func TestFetchStory_AuthErrorMapsTo401(t *testing.T) {
	tracker := &stubTracker{fetchErr: fmt.Errorf("work item fetch: %w", testgen.ErrAuth)}
	h := newTestHandler(tracker)

	body := `{"story_id": 42, "azure_devops_org_url": "https://dev.azure.com/org", "azure_devops_project_name": "proj", "azure_devops_pat": "bad"}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/fetch_story", strings.NewReader(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAnalyzeStory(t *testing.T) {
	h := newTestHandler(&stubTracker{})
	h.newProvider = func(ctx context.Context, pc ai.ProviderContext) (testgen.AIProvider, error) {
		return mock.NewScripted([]string{"<h3>Review</h3>"}, nil), nil
	}

	body := `{"story_title": "Login", "acceptance_criteria": "works", "ai_provider": "gemini"}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/analyze_story", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["analysis"] != "<h3>Review</h3>" {
		t.Errorf("analysis = %q", resp["analysis"])
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&stubTracker{})
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestExtractField(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  string
	}{
		{"plain text untouched", "1. Open the app\n2. Log in", "1. Open the app\n2. Log in"},
		{
			"markup without images stripped",
			"<p>1. Click forgot password</p><p>2. Enter email</p>",
			"1. Click forgot password\n2. Enter email",
		},
		{
			"inline formatting stripped",
			"Given a <strong>registered</strong> user",
			"Given a\nregistered\nuser",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, images := extractField(tt.field, nil)
			if got != tt.want {
				t.Errorf("extractField = %q, want %q", got, tt.want)
			}
			if len(images) != 0 {
				t.Errorf("expected no images, got %d", len(images))
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{testgen.ErrInvalidInput, http.StatusBadRequest},
		{testgen.ErrConfiguration, http.StatusBadRequest},
		{testgen.ErrAuth, http.StatusUnauthorized},
		{testgen.ErrRateLimited, http.StatusTooManyRequests},
		{testgen.ErrContentPolicy, http.StatusUnprocessableEntity},
		{testgen.ErrUpload, http.StatusBadGateway},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(fmt.Errorf("wrapped: %w", tt.err)); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
