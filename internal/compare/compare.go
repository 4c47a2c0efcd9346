// Package compare classifies field-level agreement between a Jira issue and
// its linked ADO work item. All comparison functions are pure and total:
// every input maps to exactly one verdict and divergence is an outcome, not
// an error.
package compare

import (
	"strings"
	"unicode"

	"tracebridge/internal/types"
)

// closedStates is the fixed vocabulary of terminal ADO states. Matching is
// exact after lowercasing; customized workflows with other terminal names
// will classify as open.
var closedStates = map[string]bool{
	"closed":   true,
	"resolved": true,
	"done":     true,
	"removed":  true,
}

// Status compares lifecycle alignment. An empty ADO state means there is no
// usable target data and yields the not-applicable verdict.
func Status(jiraStatusCategory, adoState string) types.Verdict {
	if adoState == "" {
		return types.VerdictNoLink
	}

	jiraDone := strings.ToLower(jiraStatusCategory) == "done"
	adoClosed := closedStates[strings.ToLower(adoState)]

	switch {
	case jiraDone && adoClosed:
		return types.VerdictBothClosed
	case !jiraDone && !adoClosed:
		return types.VerdictBothOpen
	case jiraDone:
		return types.VerdictJiraClosedADOOpen
	default:
		return types.VerdictADOClosedJiraOpen
	}
}

// Severity compares severity across the two systems. Jira severities look
// like "Sev-3" while ADO stores a bare digit, so only the digit characters
// of the Jira value are compared against the trimmed ADO value.
func Severity(jiraSeverity, adoSeverity string) types.Verdict {
	if adoSeverity == "" {
		return types.VerdictNA
	}

	var digits strings.Builder
	for _, r := range jiraSeverity {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	if digits.String() == strings.TrimSpace(adoSeverity) {
		return types.VerdictMatch
	}
	return types.MismatchVerdict(jiraSeverity, adoSeverity)
}

// Assignee compares assignees with case-insensitive full-string equality.
// There is deliberately no partial-name logic.
func Assignee(jiraAssignee, adoAssignee string) types.Verdict {
	if strings.EqualFold(jiraAssignee, adoAssignee) {
		return types.VerdictMatch
	}
	return types.VerdictDifferent
}

// Row is one fully-enriched reconciliation record: the normalized Jira
// issue, the resolved ADO work item (zero-valued when unlinked), and the
// three comparison verdicts. Rows are built fresh by Enrich; earlier
// pipeline stages are never mutated.
type Row struct {
	Jira types.JiraIssue
	ADO  types.WorkItem

	StatusVerdict   types.Verdict
	SeverityVerdict types.Verdict
	AssigneeVerdict types.Verdict
}

// Linked reports whether the row's Jira issue carries an explicit ADO link.
func (r *Row) Linked() bool {
	return r.Jira.Linked()
}

// Enrich joins issues with their fetched work items and computes all three
// verdicts per row. Items is keyed by ADO id; an issue whose id is missing
// from the map (unlinked, or a fetch that failed terminally) gets a zero
// WorkItem, which the status comparison classifies as "No ADO Link".
func Enrich(issues []types.JiraIssue, items map[string]types.WorkItem) []Row {
	rows := make([]Row, 0, len(issues))
	for _, issue := range issues {
		row := Row{Jira: issue}
		if item, ok := items[issue.ADOID]; ok {
			row.ADO = item
		}
		row.StatusVerdict = Status(issue.StatusCategory, row.ADO.State)
		row.SeverityVerdict = Severity(issue.Severity, row.ADO.Severity)
		row.AssigneeVerdict = Assignee(issue.Assignee, row.ADO.AssignedTo)
		rows = append(rows, row)
	}
	return rows
}
