// Package ado fetches work items from Azure DevOps. It is the reconciler's
// target-side collaborator: single-item lookups keyed by id for linked
// issues, and a bounded recent-item pool for fuzzy matching.
//
// Transient failures are absorbed here. A work item that cannot be fetched
// after retries is simply absent from the returned map, which downstream
// comparison classifies as "No ADO Link"; errors never propagate into the
// comparison core.
package ado

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tracebridge/internal/config"
	"tracebridge/internal/types"
)

const (
	apiVersion = "5.0"

	// poolCap bounds how many work items the recent-pool query hydrates for
	// fuzzy matching. The WIQL query may return more ids; only the newest
	// poolCap are fetched.
	poolCap = 200

	// fetchConcurrency is the number of parallel single-item fetches. Results
	// are keyed by id, so completion order never affects output.
	fetchConcurrency = 8

	maxRetries = 2
)

// Client talks to the Azure DevOps REST API.
type Client struct {
	cfg     *config.Config
	http    *http.Client
	limiter *rate.Limiter
	apiBase string
}

// NewClient creates an ADO API client.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(20), 20),
		apiBase: cfg.ADOAPIBase(),
	}
}

// workItemResponse mirrors the ADO work item payload. ADO field names are
// dotted; AssignedTo and Priority are left raw because ADO returns an
// identity object or a bare string for the former and a number for the
// latter.
type workItemResponse struct {
	ID     json.Number    `json:"id"`
	Fields workItemFields `json:"fields"`
}

type workItemFields struct {
	Title         string          `json:"System.Title"`
	State         string          `json:"System.State"`
	AssignedTo    json.RawMessage `json:"System.AssignedTo"`
	Type          string          `json:"System.WorkItemType"`
	Priority      json.RawMessage `json:"Microsoft.VSTS.Common.Priority"`
	Severity      string          `json:"Microsoft.VSTS.Common.Severity"`
	CreatedDate   string          `json:"System.CreatedDate"`
	ClosedDate    string          `json:"Microsoft.VSTS.Common.ClosedDate"`
	ResolvedDate  string          `json:"Microsoft.VSTS.Common.ResolvedDate"`
	AreaPath      string          `json:"System.AreaPath"`
	IterationPath string          `json:"System.IterationPath"`
}

// do performs an authenticated request with retry on transport errors.
// ADO PAT auth is basic auth with an empty username.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, dest any) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.SetBasicAuth("", c.cfg.ADOPAT)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("ado request failed: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			// Client errors are terminal; only retry server-side failures.
			lastErr = fmt.Errorf("ado returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			if resp.StatusCode < http.StatusInternalServerError {
				return lastErr
			}
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(dest)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding ado response: %w", err)
		}
		return nil
	}
	return lastErr
}

// FetchWorkItem fetches a single work item by id.
func (c *Client) FetchWorkItem(ctx context.Context, id string) (*types.WorkItem, error) {
	url := fmt.Sprintf("%s/wit/workitems/%s?api-version=%s", c.apiBase, id, apiVersion)
	var resp workItemResponse
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching work item %s: %w", id, err)
	}
	item := parseWorkItem(&resp)
	if item.ID == "" {
		item.ID = id
	}
	return &item, nil
}

// FetchWorkItems fetches the given work items concurrently and returns them
// keyed by id. Ids equal to the Not Linked sentinel or empty are skipped, as
// are items that fail to fetch; the caller sees only usable target data.
func (c *Client) FetchWorkItems(ctx context.Context, ids []string) map[string]types.WorkItem {
	items := make(map[string]types.WorkItem)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for _, id := range ids {
		if id == "" || id == types.NotLinked {
			continue
		}
		id := id
		g.Go(func() error {
			item, err := c.FetchWorkItem(gctx, id)
			if err != nil {
				// Terminal failure for this id only: recorded as absence.
				return nil
			}
			mu.Lock()
			items[id] = *item
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// wiqlResult is the response shape of a WIQL query.
type wiqlResult struct {
	WorkItems []struct {
		ID json.Number `json:"id"`
	} `json:"workItems"`
}

// queryRecentIDs runs a WIQL query for work items created in the last N days,
// newest first.
func (c *Client) queryRecentIDs(ctx context.Context, days int) ([]string, error) {
	if days < 0 {
		return nil, fmt.Errorf("days cannot be negative (got %d)", days)
	}

	// WIQL has no parameter binding; the project name comes from validated
	// config and single quotes are doubled per WIQL escaping rules.
	project := strings.ReplaceAll(c.cfg.ADOProject, "'", "''")
	query := fmt.Sprintf(
		"SELECT [System.Id], [System.Title] FROM WorkItems "+
			"WHERE [System.TeamProject] = '%s' "+
			"AND [System.CreatedDate] >= @Today - %d "+
			"ORDER BY [System.CreatedDate] DESC",
		project, days,
	)
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/wit/wiql?api-version=%s", c.apiBase, apiVersion)
	var result wiqlResult
	if err := c.do(ctx, http.MethodPost, url, body, &result); err != nil {
		return nil, fmt.Errorf("wiql query failed: %w", err)
	}

	ids := make([]string, 0, len(result.WorkItems))
	for _, item := range result.WorkItems {
		ids = append(ids, item.ID.String())
	}
	return ids, nil
}

// QueryRecentPool builds the fuzzy-matching candidate pool from work items
// created in the last N days. At most poolCap items are hydrated, in query
// order (newest first); that order is preserved end-to-end because fuzzy
// title-to-id resolution is first-match-wins.
func (c *Client) QueryRecentPool(ctx context.Context, days int) ([]types.PoolItem, error) {
	ids, err := c.queryRecentIDs(ctx, days)
	if err != nil {
		return nil, err
	}
	if len(ids) > poolCap {
		ids = ids[:poolCap]
	}

	pool := make([]types.PoolItem, 0, len(ids))
	for _, id := range ids {
		url := fmt.Sprintf("%s/wit/workitems/%s?api-version=%s", c.apiBase, id, apiVersion)
		var resp workItemResponse
		if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue // skip items that fail, the pool is best-effort
		}
		pool = append(pool, types.PoolItem{
			ID:    id,
			Title: resp.Fields.Title,
			State: resp.Fields.State,
			Type:  resp.Fields.Type,
		})
	}
	return pool, nil
}

// CheckConnection probes the WIQL endpoint with a one-day window and returns
// the number of work items it can see.
func (c *Client) CheckConnection(ctx context.Context) (int, error) {
	ids, err := c.queryRecentIDs(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("ado connection check failed: %w", err)
	}
	return len(ids), nil
}

// parseWorkItem flattens a work item response. Every absent field becomes an
// empty string.
func parseWorkItem(resp *workItemResponse) types.WorkItem {
	return types.WorkItem{
		ID:            resp.ID.String(),
		Title:         resp.Fields.Title,
		State:         resp.Fields.State,
		AssignedTo:    parseAssignedTo(resp.Fields.AssignedTo),
		Type:          resp.Fields.Type,
		Priority:      rawToString(resp.Fields.Priority),
		Severity:      resp.Fields.Severity,
		CreatedDate:   resp.Fields.CreatedDate,
		ClosedDate:    resp.Fields.ClosedDate,
		ResolvedDate:  resp.Fields.ResolvedDate,
		AreaPath:      resp.Fields.AreaPath,
		IterationPath: resp.Fields.IterationPath,
	}
}

// parseAssignedTo handles the two shapes ADO uses for System.AssignedTo: an
// identity object with a displayName, or a bare display string on older
// servers. Absent means unassigned.
func parseAssignedTo(raw json.RawMessage) string {
	if len(raw) == 0 {
		return types.UnassignedDisplay
	}
	var identity struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(raw, &identity); err == nil && identity.DisplayName != "" {
		return identity.DisplayName
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return types.UnassignedDisplay
}

// rawToString renders a JSON scalar (string or number) as a string, matching
// how ADO reports priority as a number.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
