// Package azure is the Azure DevOps REST adapter: work item fetch, test-case
// create, and test-suite attach.
package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/testgenius/backend/internal/domain/testgen"
)

const (
	apiVersion = "7.1"

	fieldTitle              = "System.Title"
	fieldDescription        = "System.Description"
	fieldAcceptanceCriteria = "Microsoft.VSTS.Common.AcceptanceCriteria"
	fieldWorkItemType       = "System.WorkItemType"
	fieldPriority           = "Microsoft.VSTS.Common.Priority"
	fieldSteps              = "Microsoft.VSTS.TCM.Steps"

	workItemTypeUserStory = "User Story"

	// relatedFetchConcurrency bounds parallel related-story fetches per call.
	relatedFetchConcurrency = 4
)

// Client talks to the Azure DevOps REST API. Credentials travel per call in
// TrackerAuth, never on the client.
type Client struct {
	httpClient *http.Client
}

var (
	_ testgen.TrackerReader = (*Client)(nil)
	_ testgen.TrackerWriter = (*Client)(nil)
)

// NewClient creates a tracker client over the given HTTP client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

type workItemResponse struct {
	ID        int            `json:"id"`
	Fields    map[string]any `json:"fields"`
	Relations []struct {
		Rel string `json:"rel"`
		URL string `json:"url"`
	} `json:"relations"`
}

// FetchWorkItem fetches one work item with its relations. Tracker-internal
// attachment URIs in the rich-text fields are rewritten to fetchable REST
// URLs.
func (c *Client) FetchWorkItem(ctx context.Context, auth testgen.TrackerAuth, id int) (*testgen.StoryDocument, error) {
	if err := auth.Validate(); err != nil {
		return nil, fmt.Errorf("%w: tracker organization, project and token are required", testgen.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/%d?$expand=relations&api-version=%s",
		strings.TrimRight(auth.OrgURL, "/"), url.PathEscape(auth.Project), id, apiVersion)

	var item workItemResponse
	if err := c.getJSON(ctx, auth, endpoint, &item); err != nil {
		return nil, fmt.Errorf("fetch work item %d: %w", id, err)
	}

	doc := &testgen.StoryDocument{
		ID:                     item.ID,
		Title:                  stringField(item.Fields, fieldTitle),
		DescriptionHTML:        RewriteAttachmentURLs(stringField(item.Fields, fieldDescription), auth.OrgURL),
		AcceptanceCriteriaHTML: RewriteAttachmentURLs(stringField(item.Fields, fieldAcceptanceCriteria), auth.OrgURL),
	}

	for _, rel := range item.Relations {
		if !strings.HasPrefix(rel.Rel, "System.LinkTypes.Related") {
			continue
		}
		if relID, ok := workItemIDFromURL(rel.URL); ok {
			doc.RelatedIDs = append(doc.RelatedIDs, relID)
		}
	}

	return doc, nil
}

// FetchRelatedStories fetches the given work items concurrently, keeps only
// those of type "User Story", and preserves input order.
func (c *Client) FetchRelatedStories(ctx context.Context, auth testgen.TrackerAuth, ids []int) ([]testgen.RelatedStory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	results := make([]*testgen.RelatedStory, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(relatedFetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/%d?api-version=%s",
				strings.TrimRight(auth.OrgURL, "/"), url.PathEscape(auth.Project), id, apiVersion)

			var item workItemResponse
			if err := c.getJSON(gctx, auth, endpoint, &item); err != nil {
				return fmt.Errorf("fetch related work item %d: %w", id, err)
			}
			if stringField(item.Fields, fieldWorkItemType) != workItemTypeUserStory {
				return nil
			}
			results[i] = &testgen.RelatedStory{
				ID:                 item.ID,
				Title:              stringField(item.Fields, fieldTitle),
				Description:        stringField(item.Fields, fieldDescription),
				AcceptanceCriteria: stringField(item.Fields, fieldAcceptanceCriteria),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stories := make([]testgen.RelatedStory, 0, len(ids))
	for _, r := range results {
		if r != nil {
			stories = append(stories, *r)
		}
	}
	return stories, nil
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// CreateTestCase creates a "Test Case" work item from the final title,
// mapped priority, and projected step markup.
func (c *Client) CreateTestCase(ctx context.Context, auth testgen.TrackerAuth, tc testgen.TestCase) (int, error) {
	doc := []patchOp{
		{Op: "add", Path: "/fields/" + fieldTitle, Value: strings.TrimSpace(tc.Title)},
		{Op: "add", Path: "/fields/" + fieldPriority, Value: MapPriority(tc.Priority)},
	}
	if stepsXML := BuildStepsXML(tc); stepsXML != "" {
		doc = append(doc, patchOp{Op: "add", Path: "/fields/" + fieldSteps, Value: stepsXML})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal patch document: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/$%s?api-version=%s",
		strings.TrimRight(auth.OrgURL, "/"), url.PathEscape(auth.Project), url.PathEscape("Test Case"), apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json-patch+json")
	setAuth(req, auth.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("create test case: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("create test case: unexpected status %d", resp.StatusCode)
	}

	var created struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return created.ID, nil
}

// AddTestCasesToSuite batch-attaches work items to a test suite.
func (c *Client) AddTestCasesToSuite(ctx context.Context, auth testgen.TrackerAuth, target testgen.SuiteTarget, ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	type workItemRef struct {
		WorkItem struct {
			ID int `json:"id"`
		} `json:"workItem"`
	}
	refs := make([]workItemRef, len(ids))
	for i, id := range ids {
		refs[i].WorkItem.ID = id
	}

	body, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("marshal suite entries: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_apis/testplan/Plans/%d/Suites/%d/TestCase?api-version=%s",
		strings.TrimRight(auth.OrgURL, "/"), url.PathEscape(auth.Project), target.PlanID, target.SuiteID, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req, auth.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("add test cases to suite %d: %w", target.SuiteID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("add test cases to suite %d: unexpected status %d", target.SuiteID, resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, auth testgen.TrackerAuth, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	setAuth(req, auth.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", testgen.ErrAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// setAuth applies the tracker credential: basic auth with an empty user and
// the PAT/OAuth token as password, the scheme Azure DevOps accepts for both.
func setAuth(req *http.Request, token string) {
	encoded := base64.StdEncoding.EncodeToString([]byte(":" + token))
	req.Header.Set("Authorization", "Basic "+encoded)
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func workItemIDFromURL(rawURL string) (int, bool) {
	idx := strings.LastIndexByte(rawURL, '/')
	if idx < 0 {
		return 0, false
	}
	id, err := strconv.Atoi(rawURL[idx+1:])
	if err != nil {
		return 0, false
	}
	return id, true
}

var vstfsAttachmentRe = regexp.MustCompile(`vstfs:///Attachments/(\d+)/([^"'\s]+)`)

// RewriteAttachmentURLs rewrites tracker-internal attachment URIs
// (vstfs:///Attachments/<id>/<filename>) into fetchable REST URLs so the
// image extractor can treat them like any other source.
func RewriteAttachmentURLs(htmlContent, orgURL string) string {
	if htmlContent == "" {
		return htmlContent
	}
	base := strings.TrimRight(orgURL, "/")
	return vstfsAttachmentRe.ReplaceAllStringFunc(htmlContent, func(match string) string {
		groups := vstfsAttachmentRe.FindStringSubmatch(match)
		return fmt.Sprintf("%s/_apis/wit/attachments/%s?fileName=%s&api-version=%s",
			base, groups[1], url.QueryEscape(groups[2]), apiVersion)
	})
}
