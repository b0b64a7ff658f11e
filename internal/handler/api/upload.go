package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/testgenius/backend/internal/domain/testgen"
	usecase "github.com/testgenius/backend/internal/usecase/testgen"
)

type uploadBody struct {
	TestPlanID  int             `json:"test_plan_id"`
	TestSuiteID int             `json:"test_suite_id"`
	TestCases   json.RawMessage `json:"test_cases"`
	OrgURL      string          `json:"azure_devops_org_url"`
	Project     string          `json:"azure_devops_project_name"`
	PAT         string          `json:"azure_devops_pat"`
}

type uploadResponse struct {
	Message    string `json:"message"`
	CreatedIDs []int  `json:"created_ids"`
	Received   int    `json:"received"`
	Unique     int    `json:"unique"`
}

// UploadTestCases deduplicates the submitted cases and writes them to the
// tracker's test management, attaching all created work items to the target
// suite. Clients send test_cases either as a JSON array or as a JSON string
// containing one.
func (h *Handler) UploadTestCases(w http.ResponseWriter, r *http.Request) {
	var body uploadBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body: %v", testgen.ErrInvalidInput, err))
		return
	}

	cases, err := decodeTestCases(body.TestCases)
	if err != nil {
		writeError(w, fmt.Errorf("%w: invalid test_cases: %v", testgen.ErrInvalidInput, err))
		return
	}
	if body.TestPlanID <= 0 || body.TestSuiteID <= 0 {
		writeError(w, fmt.Errorf("%w: test_plan_id and test_suite_id are required", testgen.ErrInvalidInput))
		return
	}

	auth := testgen.TrackerAuth{
		OrgURL:  body.OrgURL,
		Project: body.Project,
		Token:   trackerToken(r, body.PAT),
	}
	target := testgen.SuiteTarget{PlanID: body.TestPlanID, SuiteID: body.TestSuiteID}

	uploader := usecase.NewUploader(h.tracker)
	result, err := uploader.Execute(r.Context(), auth, target, cases)
	if err != nil {
		// Partial uploads still report what was created so the client can
		// surface or clean up the orphans.
		status := statusFor(err)
		resp := map[string]any{"error": err.Error()}
		if result != nil && len(result.CreatedIDs) > 0 {
			resp["created_ids"] = result.CreatedIDs
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:    fmt.Sprintf("Uploaded %d test cases to suite %d.", len(result.CreatedIDs), target.SuiteID),
		CreatedIDs: result.CreatedIDs,
		Received:   result.Received,
		Unique:     result.Unique,
	})
}

// decodeTestCases accepts the array directly or double-encoded as a string.
func decodeTestCases(raw json.RawMessage) ([]testgen.TestCase, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing")
	}

	var cases []testgen.TestCase
	if err := json.Unmarshal(raw, &cases); err == nil {
		return cases, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("expected an array or a JSON-encoded string")
	}
	if err := json.Unmarshal([]byte(encoded), &cases); err != nil {
		return nil, err
	}
	return cases, nil
}
