// Package api exposes the HTTP surface: test-case generation (SSE), story
// fetch, story analysis, and test-case upload.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/testgenius/backend/internal/adapter/ai"
	"github.com/testgenius/backend/internal/domain/testgen"
	"github.com/testgenius/backend/internal/infra/config"
)

// ProviderFactory builds a per-request AI provider. Swappable in tests.
type ProviderFactory func(ctx context.Context, pc ai.ProviderContext) (testgen.AIProvider, error)

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	cfg         *config.Config
	tracker     trackerClient
	newProvider ProviderFactory
}

// trackerClient is the combined tracker boundary the handlers need.
type trackerClient interface {
	testgen.TrackerReader
	testgen.TrackerWriter
}

// NewHandler creates a new Handler.
func NewHandler(cfg *config.Config, tracker trackerClient) *Handler {
	return &Handler{cfg: cfg, tracker: tracker, newProvider: ai.NewProvider}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", h.Index)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /fetch_story", h.FetchStory)
	mux.HandleFunc("POST /analyze_story", h.AnalyzeStory)
	mux.HandleFunc("GET /generate_test_cases", h.GenerateTestCases)
	mux.HandleFunc("POST /generate_test_cases", h.GenerateTestCases)
	mux.HandleFunc("POST /upload_test_cases", h.UploadTestCases)
	mux.HandleFunc("OPTIONS /", h.Preflight)
}

// Index reports basic API information.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Test Genius API - Azure DevOps Extension Backend",
		"endpoints": map[string]string{
			"health":              "/health",
			"fetch_story":         "/fetch_story (POST)",
			"analyze_story":       "/analyze_story (POST)",
			"generate_test_cases": "/generate_test_cases (GET/POST)",
			"upload_test_cases":   "/upload_test_cases (POST)",
		},
		"status": "running",
	})
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Preflight answers CORS preflight requests from the tracker extension.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

// WithRequestID attaches a request id to the logger context of every call.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		slog.InfoContext(r.Context(), "request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		next.ServeHTTP(w, r)
	})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, testgen.ErrInvalidInput), errors.Is(err, testgen.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, testgen.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, testgen.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, testgen.ErrContentPolicy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, testgen.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// bearerToken extracts a tracker token from the Authorization header, if any.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
