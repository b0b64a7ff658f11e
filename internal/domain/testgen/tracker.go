package testgen

import "context"

// TrackerAuth addresses one issue-tracker organization/project pair with a
// per-call credential. Tokens are passed through, never stored.
type TrackerAuth struct {
	OrgURL  string
	Project string
	Token   string
}

func (a TrackerAuth) Validate() error {
	if a.OrgURL == "" || a.Project == "" || a.Token == "" {
		return ErrInvalidInput
	}
	return nil
}

// SuiteTarget identifies the test plan/suite pair that groups uploaded cases.
type SuiteTarget struct {
	PlanID  int
	SuiteID int
}

// StoryDocument is a work item as fetched from the tracker, rich-text fields
// still in HTML. Image srcs using tracker-internal URI schemes have already
// been rewritten to fetchable REST URLs.
type StoryDocument struct {
	ID                     int
	Title                  string
	DescriptionHTML        string
	AcceptanceCriteriaHTML string
	RelatedIDs             []int
}

// TrackerReader is the story fetch boundary.
type TrackerReader interface {
	// FetchWorkItem fetches one work item with its relations.
	FetchWorkItem(ctx context.Context, auth TrackerAuth, id int) (*StoryDocument, error)

	// FetchRelatedStories fetches the given work items, filtered to type
	// "User Story", preserving input order.
	FetchRelatedStories(ctx context.Context, auth TrackerAuth, ids []int) ([]RelatedStory, error)
}

// TrackerWriter is the test-case upload boundary. The adapter owns the wire
// format: step markup projection and priority mapping happen behind this
// interface.
type TrackerWriter interface {
	// CreateTestCase creates a "Test Case" work item and returns its id.
	CreateTestCase(ctx context.Context, auth TrackerAuth, tc TestCase) (int, error)

	// AddTestCasesToSuite batch-attaches created work items to a suite.
	AddTestCasesToSuite(ctx context.Context, auth TrackerAuth, target SuiteTarget, ids []int) error
}
