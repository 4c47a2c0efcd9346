package jira

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"tracebridge/internal/config"
	"tracebridge/internal/types"
)

// RawIssue is one issue as returned by the Jira search API or a JSON export.
// Fields stays undecoded until parsing so custom field ids configured per
// instance can be extracted by name.
type RawIssue struct {
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

// issueFields covers the fixed-name Jira fields. Every optional field is a
// pointer so "absent", "null", and "present" are distinguished explicitly
// rather than through zero-value coercion.
type issueFields struct {
	Summary string `json:"summary"`
	Status  *struct {
		Name           string `json:"name"`
		StatusCategory *struct {
			Name string `json:"name"`
		} `json:"statusCategory"`
	} `json:"status"`
	Priority *struct {
		Name string `json:"name"`
	} `json:"priority"`
	Assignee *struct {
		DisplayName string `json:"displayName"`
	} `json:"assignee"`
	Created        string `json:"created"`
	ResolutionDate string `json:"resolutiondate"`
}

// severityValue is the shape of Jira select-list custom fields.
type severityValue struct {
	Value string `json:"value"`
}

// Parser normalizes raw Jira issues into JiraIssue records. The custom field
// ids come from configuration since they differ between Jira instances.
type Parser struct {
	severityField string
	adoIDField    string
	adoStateField string
}

// NewParser creates a parser using the configured custom field ids.
func NewParser(cfg *config.Config) *Parser {
	return &Parser{
		severityField: cfg.SeverityField,
		adoIDField:    cfg.ADOIDField,
		adoStateField: cfg.ADOStateField,
	}
}

// ParseIssue normalizes one raw issue. Missing or null fields get the
// documented defaults; a malformed timestamp drops only that timestamp, never
// the record. ParseIssue does not fail: a record without a key still parses,
// and callers decide whether to warn on it via Validate.
func (p *Parser) ParseIssue(raw RawIssue) types.JiraIssue {
	var f issueFields
	if len(raw.Fields) > 0 {
		// A malformed fields object degrades to all-defaults rather than
		// rejecting the record.
		_ = json.Unmarshal(raw.Fields, &f)
	}

	issue := types.JiraIssue{
		Key:            raw.Key,
		Summary:        f.Summary,
		Status:         types.UnknownStatus,
		StatusCategory: types.UnknownStatus,
		Priority:       types.NoPriority,
		Severity:       types.NoSeverity,
		Assignee:       types.UnassignedDisplay,
		ADOID:          types.NotLinked,
		ADOStateHint:   types.NoStateHint,
	}

	if f.Status != nil && f.Status.Name != "" {
		issue.Status = f.Status.Name
		if f.Status.StatusCategory != nil && f.Status.StatusCategory.Name != "" {
			issue.StatusCategory = f.Status.StatusCategory.Name
		}
	}
	if f.Priority != nil && f.Priority.Name != "" {
		issue.Priority = f.Priority.Name
	}
	if f.Assignee != nil && f.Assignee.DisplayName != "" {
		issue.Assignee = f.Assignee.DisplayName
	}
	issue.Created = parseJiraTime(f.Created)
	issue.Resolved = parseJiraTime(f.ResolutionDate)

	// Custom fields are pulled out of the raw object by configured id.
	var custom map[string]json.RawMessage
	if len(raw.Fields) > 0 {
		_ = json.Unmarshal(raw.Fields, &custom)
	}
	if sevRaw, ok := custom[p.severityField]; ok {
		var sev severityValue
		if err := json.Unmarshal(sevRaw, &sev); err == nil && sev.Value != "" {
			issue.Severity = sev.Value
		}
	}
	if id := stringCustomField(custom, p.adoIDField); id != "" {
		issue.ADOID = id
	}
	if state := stringCustomField(custom, p.adoStateField); state != "" {
		issue.ADOStateHint = state
	}

	return issue
}

// ParseIssues normalizes a batch of raw issues, preserving input order.
func (p *Parser) ParseIssues(raws []RawIssue) []types.JiraIssue {
	issues := make([]types.JiraIssue, 0, len(raws))
	for _, raw := range raws {
		issues = append(issues, p.ParseIssue(raw))
	}
	return issues
}

// stringCustomField decodes a string-valued custom field, treating null and
// non-string values as absent.
func stringCustomField(fields map[string]json.RawMessage, id string) string {
	raw, ok := fields[id]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// jiraTimeLayouts are the timestamp formats Jira emits. The first is the
// Cloud REST default.
var jiraTimeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

// parseJiraTime parses a Jira timestamp and normalizes it to UTC, dropping
// the original offset. Absent or unparseable values yield nil; a bad
// timestamp fails only the field, not the record.
func parseJiraTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range jiraTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// searchResult is the top-level shape of both the search API response and a
// JSON export file.
type searchResult struct {
	Issues []RawIssue `json:"issues"`
	Total  int        `json:"total"`
}

// LoadFile reads raw issues from a Jira JSON export.
func LoadFile(path string) ([]RawIssue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jira data file not found: %w", err)
	}
	var result searchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("invalid jira data file %s: %w", path, err)
	}
	return result.Issues, nil
}
