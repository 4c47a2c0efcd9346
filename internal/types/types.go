// Package types defines the record shapes shared across the traceability
// pipeline: parsed Jira issues, fetched ADO work items, and the verdict
// values produced by field comparison.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Sentinel values used by the normalizer when a source field is absent.
// Empty string and null are treated identically on input; downstream code
// only ever sees these defaults, never an empty/nil ambiguity.
const (
	NotLinked         = "Not Linked" // ADOID when the issue carries no ADO link
	NoStateHint       = "N/A"        // ADOStateHint when Jira reports no ADO state
	UnknownStatus     = "Unknown"
	NoPriority        = "None"
	NoSeverity        = "None"
	UnassignedDisplay = "Unassigned"
)

// JiraIssue is one normalized issue from the Jira side of the reconciliation.
// Instances are built once by the parser and never mutated; comparison adds
// derived data by constructing new Row values instead of writing back.
type JiraIssue struct {
	Key            string     `json:"key"`
	Summary        string     `json:"summary"`
	Status         string     `json:"status"`
	StatusCategory string     `json:"status_category"`
	Priority       string     `json:"priority"`
	Severity       string     `json:"severity"`
	Assignee       string     `json:"assignee"`
	Created        *time.Time `json:"created,omitempty"`
	Resolved       *time.Time `json:"resolved,omitempty"`

	// ADOID is the ADO work item id recorded on the Jira issue, or NotLinked.
	ADOID string `json:"ado_id"`

	// ADOStateHint is the ADO state as tracked by Jira itself (a custom
	// field), or NoStateHint. It is reported for traceability only and is
	// never used for comparison; the authoritative state comes from ADO.
	ADOStateHint string `json:"ado_state_hint"`
}

// Linked reports whether the issue carries an explicit ADO link.
func (j *JiraIssue) Linked() bool {
	return j.ADOID != "" && j.ADOID != NotLinked
}

// Validate checks the invariants the aggregator relies on. A missing key is
// surfaced as an error here so callers can record a data-quality warning;
// it is not treated as fatal by the pipeline.
func (j *JiraIssue) Validate() error {
	if strings.TrimSpace(j.Key) == "" {
		return fmt.Errorf("issue has no key (summary: %q)", j.Summary)
	}
	if j.ADOID == "" {
		return fmt.Errorf("issue %s: ado_id must be an id or %q, not empty", j.Key, NotLinked)
	}
	return nil
}

// WorkItem is one work item fetched from Azure DevOps. All fields default to
// empty string when absent; "no value" and "field absent" are identical by
// design. Date fields stay as the strings ADO returned since they are only
// reported, never computed on.
type WorkItem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	State         string `json:"state"`
	AssignedTo    string `json:"assigned_to"`
	Type          string `json:"work_item_type"`
	Priority      string `json:"priority"`
	Severity      string `json:"severity"`
	CreatedDate   string `json:"created_date"`
	ClosedDate    string `json:"closed_date"`
	ResolvedDate  string `json:"resolved_date"`
	AreaPath      string `json:"area_path"`
	IterationPath string `json:"iteration_path"`
}

// PoolItem is the reduced work item shape used as a fuzzy-matching candidate.
// The search pool is built once, in query order, before matching begins.
type PoolItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	State string `json:"state"`
	Type  string `json:"work_item_type"`
}

// Verdict is the outcome of comparing one field dimension between a Jira
// issue and its linked ADO work item. Verdicts are plain strings so they can
// land in report cells unchanged; the [OK]/[WARN] prefixes are what the
// aggregator keys off.
type Verdict string

const (
	// Status dimension.
	VerdictBothClosed        Verdict = "[OK] Both Closed"
	VerdictBothOpen          Verdict = "[OK] Both Open"
	VerdictJiraClosedADOOpen Verdict = "[WARN] Jira Closed, ADO Open"
	VerdictADOClosedJiraOpen Verdict = "[WARN] ADO Closed, Jira Open"
	VerdictNoLink            Verdict = "No ADO Link"

	// Severity and assignee dimensions. Severity mismatches are built with
	// MismatchVerdict so both original values survive into the report.
	VerdictMatch     Verdict = "[OK] Match"
	VerdictDifferent Verdict = "[WARN] Different"
	VerdictNA        Verdict = "N/A"
)

// MismatchVerdict builds a severity mismatch verdict carrying both original
// values for traceability.
func MismatchVerdict(jiraValue, adoValue string) Verdict {
	return Verdict(fmt.Sprintf("[WARN] Mismatch (J:%s vs A:%s)", jiraValue, adoValue))
}

// OK reports whether the verdict is an agreement.
func (v Verdict) OK() bool {
	return strings.HasPrefix(string(v), "[OK]")
}

// Warn reports whether the verdict is a divergence. Divergence is a valid
// classified outcome, not an error; not-applicable verdicts (VerdictNoLink,
// VerdictNA) are neither OK nor Warn.
func (v Verdict) Warn() bool {
	return strings.HasPrefix(string(v), "[WARN]")
}
