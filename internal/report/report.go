// Package report aggregates enriched reconciliation rows into the summary
// counts, categorized subsets, and matched-item analytics that feed the
// spreadsheet sink and the console summary.
//
// Mismatch counts are computed over linked rows only: an unlinked row's
// "No ADO Link" and "N/A" verdicts are not mismatches. All percentages
// treat an empty denominator as 0%, never as an error.
package report

import (
	"fmt"

	"tracebridge/internal/compare"
	"tracebridge/internal/types"
)

// Summary holds the run-level counts shown on the report's first sheet.
type Summary struct {
	Total              int
	Linked             int
	Unlinked           int
	BothClosed         int
	BothOpen           int
	StatusMismatches   int
	SeverityMismatches int
	AssigneeMismatches int
}

// Summarize computes run-level counts from the full row set.
func Summarize(rows []compare.Row) Summary {
	var s Summary
	s.Total = len(rows)
	for i := range rows {
		row := &rows[i]
		if !row.Linked() {
			continue
		}
		s.Linked++
		switch row.StatusVerdict {
		case types.VerdictBothClosed:
			s.BothClosed++
		case types.VerdictBothOpen:
			s.BothOpen++
		}
		if row.StatusVerdict.Warn() {
			s.StatusMismatches++
		}
		if row.SeverityVerdict.Warn() {
			s.SeverityMismatches++
		}
		if row.AssigneeVerdict.Warn() {
			s.AssigneeMismatches++
		}
	}
	s.Unlinked = s.Total - s.Linked
	return s
}

// Mismatched returns the rows with a WARN verdict on any dimension. Unlinked
// rows qualify too when an assignee is set: compared against the zero work
// item they carry "[WARN] Different". Only the summary counters are restricted
// to linked rows.
func Mismatched(rows []compare.Row) []compare.Row {
	var out []compare.Row
	for i := range rows {
		row := &rows[i]
		if row.StatusVerdict.Warn() || row.SeverityVerdict.Warn() || row.AssigneeVerdict.Warn() {
			out = append(out, *row)
		}
	}
	return out
}

// Matched returns all linked rows regardless of verdict outcome.
func Matched(rows []compare.Row) []compare.Row {
	var out []compare.Row
	for i := range rows {
		if rows[i].Linked() {
			out = append(out, rows[i])
		}
	}
	return out
}

// Unlinked returns the rows lacking an explicit ADO link.
func Unlinked(rows []compare.Row) []compare.Row {
	var out []compare.Row
	for i := range rows {
		if !rows[i].Linked() {
			out = append(out, rows[i])
		}
	}
	return out
}

// MatchedStats is the per-dimension breakdown of linked rows used by the
// Matched Summary sheet.
type MatchedStats struct {
	Total      int
	JiraClosed int // status category "Done"
	JiraOpen   int

	PerfectMatches int // all three verdicts OK simultaneously

	StatusOK     int
	StatusWarn   int
	SeverityOK   int
	SeverityWarn int
	AssigneeOK   int
	AssigneeWarn int
}

// BuildMatchedStats computes analytics over the matched (linked) subset.
func BuildMatchedStats(matched []compare.Row) MatchedStats {
	var s MatchedStats
	s.Total = len(matched)
	for i := range matched {
		row := &matched[i]
		if row.Jira.StatusCategory == "Done" {
			s.JiraClosed++
		} else {
			s.JiraOpen++
		}
		if row.StatusVerdict.OK() {
			s.StatusOK++
		}
		if row.StatusVerdict.Warn() {
			s.StatusWarn++
		}
		if row.SeverityVerdict.OK() {
			s.SeverityOK++
		}
		if row.SeverityVerdict.Warn() {
			s.SeverityWarn++
		}
		if row.AssigneeVerdict.OK() {
			s.AssigneeOK++
		}
		if row.AssigneeVerdict.Warn() {
			s.AssigneeWarn++
		}
		if row.StatusVerdict.OK() && row.SeverityVerdict.OK() && row.AssigneeVerdict.OK() {
			s.PerfectMatches++
		}
	}
	return s
}

// Percent renders part/whole as a percentage string. An empty denominator is
// "0%" by contract, never a division error.
func Percent(part, whole int) string {
	if whole == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(whole)*100)
}

// Count is one bucket of a value-frequency breakdown.
type Count struct {
	Value string
	N     int
}

// CountBy tallies rows by the given key, ordered by descending count with
// ties in first-encountered order.
func CountBy(rows []compare.Row, key func(*compare.Row) string) []Count {
	index := make(map[string]int)
	var counts []Count
	for i := range rows {
		k := key(&rows[i])
		if pos, ok := index[k]; ok {
			counts[pos].N++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, Count{Value: k, N: 1})
	}

	// Insertion sort keeps first-encountered order stable among equal counts.
	for i := 1; i < len(counts); i++ {
		for j := i; j > 0 && counts[j].N > counts[j-1].N; j-- {
			counts[j], counts[j-1] = counts[j-1], counts[j]
		}
	}
	return counts
}

// TopAssignees returns the ten most frequent Jira assignees among the rows.
func TopAssignees(rows []compare.Row) []Count {
	counts := CountBy(rows, func(r *compare.Row) string { return r.Jira.Assignee })
	if len(counts) > 10 {
		counts = counts[:10]
	}
	return counts
}
