package testgen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/testgenius/backend/internal/domain/testgen"
)

// UploadResult reports what an upload run achieved. CreatedIDs is populated
// even on failure: creates up to the failure point are not rolled back, and
// callers need the ids to attach or clean them up.
type UploadResult struct {
	CreatedIDs []int
	Received   int
	Unique     int
}

// Uploader deduplicates generated cases and writes them to the tracker.
type Uploader struct {
	tracker testgen.TrackerWriter
}

// NewUploader creates an uploader over the given tracker write boundary.
func NewUploader(tracker testgen.TrackerWriter) *Uploader {
	return &Uploader{tracker: tracker}
}

// Execute assigns final titles, drops duplicates across all categories, then
// creates one "Test Case" work item per survivor and attaches the batch to
// the target suite. Not transactional: a failure partway through leaves the
// already-created items in place and reports them.
func (u *Uploader) Execute(ctx context.Context, auth testgen.TrackerAuth, target testgen.SuiteTarget, cases []testgen.TestCase) (*UploadResult, error) {
	if err := auth.Validate(); err != nil {
		return nil, fmt.Errorf("%w: tracker organization, project and token are required", testgen.ErrInvalidInput)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: no test cases to upload", testgen.ErrInvalidInput)
	}

	unique := testgen.Dedupe(cases)
	slog.InfoContext(ctx, "uploading test cases",
		"received", len(cases),
		"unique", len(unique),
	)

	result := &UploadResult{Received: len(cases), Unique: len(unique)}

	for _, tc := range unique {
		id, err := u.tracker.CreateTestCase(ctx, auth, tc)
		if err != nil {
			return result, fmt.Errorf("%w: created %d of %d before failing on %q: %v",
				testgen.ErrUpload, len(result.CreatedIDs), len(unique), tc.Title, err)
		}
		result.CreatedIDs = append(result.CreatedIDs, id)
	}

	if err := u.tracker.AddTestCasesToSuite(ctx, auth, target, result.CreatedIDs); err != nil {
		return result, fmt.Errorf("%w: created %d work items but failed to attach them to suite %d: %v",
			testgen.ErrUpload, len(result.CreatedIDs), target.SuiteID, err)
	}

	return result, nil
}
