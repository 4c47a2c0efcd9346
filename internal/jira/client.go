// Package jira fetches and normalizes issues from Jira Cloud, either live
// over the REST v3 API or from a JSON export on disk.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tracebridge/internal/config"
)

// pageSize is the Jira search API maximum per request.
const pageSize = 100

// Client talks to the Jira Cloud REST API v3.
type Client struct {
	cfg     *config.Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Jira API client. Requests are rate limited to stay
// polite against Cloud API throttling.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
}

// get performs an authenticated GET and decodes the JSON response into dest.
func (c *Client) get(ctx context.Context, rawURL string, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.cfg.JiraUsername, c.cfg.JiraAPIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("jira returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// CheckConnection probes the /myself endpoint and returns the display name of
// the authenticated user.
func (c *Client) CheckConnection(ctx context.Context) (string, error) {
	var me struct {
		DisplayName string `json:"displayName"`
	}
	if err := c.get(ctx, c.cfg.JiraURL+"/rest/api/3/myself", &me); err != nil {
		return "", fmt.Errorf("jira connection check failed: %w", err)
	}
	if me.DisplayName == "" {
		return "Unknown", nil
	}
	return me.DisplayName, nil
}

// SearchIssues runs the configured JQL query, paginating until maxResults
// issues are collected or the result set is exhausted. The field list is
// fixed apart from the configured custom field ids.
func (c *Client) SearchIssues(ctx context.Context, maxResults int) ([]RawIssue, error) {
	jql := c.cfg.JiraJQL
	if jql == "" {
		return nil, fmt.Errorf("no JQL query configured")
	}

	fields := strings.Join([]string{
		"summary",
		"status",
		"priority",
		"assignee",
		"created",
		"resolutiondate",
		c.cfg.SeverityField,
		c.cfg.ADOIDField,
		c.cfg.ADOStateField,
	}, ",")

	var all []RawIssue
	startAt := 0
	for len(all) < maxResults {
		batch := pageSize
		if remaining := maxResults - len(all); remaining < batch {
			batch = remaining
		}

		params := url.Values{}
		params.Set("jql", jql)
		params.Set("startAt", strconv.Itoa(startAt))
		params.Set("maxResults", strconv.Itoa(batch))
		params.Set("fields", fields)

		var page searchResult
		if err := c.get(ctx, c.cfg.JiraURL+"/rest/api/3/search/jql?"+params.Encode(), &page); err != nil {
			return nil, fmt.Errorf("fetching issues (startAt=%d): %w", startAt, err)
		}
		if len(page.Issues) == 0 {
			break
		}
		all = append(all, page.Issues...)
		if page.Total > 0 && len(all) >= page.Total {
			break
		}
		startAt += batch
	}
	return all, nil
}
