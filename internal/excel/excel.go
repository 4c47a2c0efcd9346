// Package excel renders the reconciliation results into a multi-sheet
// spreadsheet: summary, full traceability, mismatches, matched items with
// analytics, fuzzy candidates, and unlinked issues.
package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"tracebridge/internal/compare"
	"tracebridge/internal/fuzzy"
	"tracebridge/internal/report"
)

// Sheet colors, one accent per category.
const (
	colorBlue   = "4472C4" // summary / full traceability
	colorOrange = "C55A11" // mismatches
	colorGreen  = "28A745" // matched
	colorAmber  = "FFA500" // fuzzy candidates
	colorRed    = "E74C3C" // unlinked
)

const maxColWidth = 50

// fullHeaders is the column set of the Full Traceability sheet. Jira columns
// first, ADO columns second, comparison verdicts last.
var fullHeaders = []string{
	"Jira Key", "Jira Summary", "Jira Status", "Jira Status Category",
	"Jira Priority", "Jira Severity", "Jira Assignee", "Jira Created",
	"Jira Resolved", "ADO ID", "ADO State (Jira)",
	"ADO Title", "ADO State", "ADO Assigned To", "ADO Work Item Type",
	"ADO Priority", "ADO Severity", "ADO Created Date", "ADO Closed Date",
	"ADO Resolved Date", "ADO Area Path", "ADO Iteration Path",
	"Status Comparison", "Severity Comparison", "Assignee Match",
}

var unlinkedHeaders = []string{
	"Jira Key", "Jira Summary", "Jira Status", "Jira Severity", "Jira Assignee",
}

var fuzzyHeaders = []string{
	"Jira Key", "Jira Summary", "Jira Status", "Potential ADO ID",
	"ADO Title", "ADO State", "ADO Work Item Type", "Match Score", "Confidence",
}

// WriteReport renders the complete workbook to path. The subsets are taken
// as-is from the aggregator; matched-item analytics are computed here since
// they only feed presentation.
func WriteReport(
	path string,
	summary report.Summary,
	full, mismatched, matched, unlinked []compare.Row,
	matches []fuzzy.Match,
	runID string,
) error {
	f := excelize.NewFile()
	defer f.Close()

	w := &writer{f: f}
	w.addSummarySheet(summary, runID)
	w.addRowSheet("Full Traceability", colorBlue, full, true)
	w.addRowSheet("Mismatches", colorOrange, mismatched, false)
	w.addRowSheet("Matched Items", colorGreen, matched, true)
	w.addMatchedSummarySheet(matched, runID)
	w.addFuzzySheet(matches)
	w.addUnlinkedSheet(unlinked)

	if w.err != nil {
		return fmt.Errorf("building report: %w", w.err)
	}

	// Drop the default sheet so Summary comes first.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if idx, err := f.GetSheetIndex("Summary"); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writing report to %s: %w", path, err)
	}
	return nil
}

// writer accumulates sheet content with a sticky error so sheet-building
// code stays linear.
type writer struct {
	f   *excelize.File
	err error
}

func (w *writer) check(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// newSheet creates a sheet and returns a per-sheet appender.
func (w *writer) newSheet(name string) *sheet {
	_, err := w.f.NewSheet(name)
	w.check(err)
	return &sheet{w: w, name: name}
}

type sheet struct {
	w    *writer
	name string
	row  int
	// widths tracks the widest cell per column for auto sizing.
	widths []float64
}

// append writes one row and advances the cursor, returning the written row
// number for styling.
func (s *sheet) append(values ...any) int {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.w.check(err)
		return s.row
	}
	s.w.check(s.w.f.SetSheetRow(s.name, cell, &values))

	for i, v := range values {
		width := float64(len(fmt.Sprint(v))) + 2
		if width > maxColWidth {
			width = maxColWidth
		}
		for len(s.widths) <= i {
			s.widths = append(s.widths, 0)
		}
		if width > s.widths[i] {
			s.widths[i] = width
		}
	}
	return s.row
}

func (s *sheet) blank() {
	s.row++
}

// styleRow applies a style across the first n columns of a row.
func (s *sheet) styleRow(row, cols, styleID int) {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		s.w.check(err)
		return
	}
	end, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		s.w.check(err)
		return
	}
	s.w.check(s.w.f.SetCellStyle(s.name, start, end, styleID))
}

// autoWidth sizes columns to their widest written content.
func (s *sheet) autoWidth() {
	for i, width := range s.widths {
		if width == 0 {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			s.w.check(err)
			return
		}
		s.w.check(s.w.f.SetColWidth(s.name, col, col, width))
	}
}

func (w *writer) headerStyle(color string) int {
	id, err := w.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	w.check(err)
	return id
}

func (w *writer) titleStyle(color string) int {
	id, err := w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	w.check(err)
	return id
}

func (w *writer) sectionStyle() int {
	id, err := w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
	})
	w.check(err)
	return id
}

func (w *writer) addSummarySheet(summary report.Summary, runID string) {
	s := w.newSheet("Summary")
	title := s.append("Jira-ADO Traceability Report")
	s.append("Generated on:", time.Now().Format("2006-01-02 15:04:05"))
	s.append("Run ID:", runID)
	s.blank()
	section := s.append("Summary Statistics")
	s.append("Metric", "Count")
	s.append("Total Jira Issues", summary.Total)
	s.append("Linked to ADO", summary.Linked)
	s.append("Not Linked to ADO", summary.Unlinked)
	s.append("Both Closed", summary.BothClosed)
	s.append("Both Open", summary.BothOpen)
	s.append("Status Mismatches", summary.StatusMismatches)
	s.append("Severity Mismatches", summary.SeverityMismatches)
	s.append("Assignee Mismatches", summary.AssigneeMismatches)

	s.styleRow(title, 1, w.titleStyle(colorBlue))
	s.styleRow(section, 1, w.sectionStyle())
	s.autoWidth()
}

// addRowSheet writes a sheet of full-width reconciliation rows.
func (w *writer) addRowSheet(name, color string, rows []compare.Row, sizeColumns bool) {
	s := w.newSheet(name)
	header := s.append(toAny(fullHeaders)...)
	for i := range rows {
		s.append(rowValues(&rows[i])...)
	}
	s.styleRow(header, len(fullHeaders), w.headerStyle(color))
	if sizeColumns {
		s.autoWidth()
	}
}

func (w *writer) addMatchedSummarySheet(matched []compare.Row, runID string) {
	stats := report.BuildMatchedStats(matched)
	s := w.newSheet("Matched Summary")

	title := s.append("Matched (Linked) Items Summary Report")
	s.append("Generated on:", time.Now().Format("2006-01-02 15:04:05"))
	s.append("Run ID:", runID)
	s.blank()

	var sections []int
	sections = append(sections, s.append("Overall Linked Items Statistics"))
	s.append("Metric", "Count", "Percentage")
	s.append("Total Linked Items", stats.Total, "100%")
	s.append("Jira: Closed/Done", stats.JiraClosed, report.Percent(stats.JiraClosed, stats.Total))
	s.append("Jira: Open/In Progress", stats.JiraOpen, report.Percent(stats.JiraOpen, stats.Total))
	s.blank()

	sections = append(sections, s.append("Comparison Quality (Linked Items)"))
	s.append("Metric", "Count", "Percentage")
	s.append("Perfect Matches (All 3 Criteria)", stats.PerfectMatches, report.Percent(stats.PerfectMatches, stats.Total))
	s.append("Status Matches", stats.StatusOK, report.Percent(stats.StatusOK, stats.Total))
	s.append("Status Mismatches", stats.StatusWarn, report.Percent(stats.StatusWarn, stats.Total))
	s.append("Severity Matches", stats.SeverityOK, report.Percent(stats.SeverityOK, stats.Total))
	s.append("Severity Mismatches", stats.SeverityWarn, report.Percent(stats.SeverityWarn, stats.Total))
	s.append("Assignee Matches", stats.AssigneeOK, report.Percent(stats.AssigneeOK, stats.Total))
	s.append("Assignee Mismatches", stats.AssigneeWarn, report.Percent(stats.AssigneeWarn, stats.Total))
	s.blank()

	sections = append(sections, s.append("Jira Status Breakdown (Matched Items)"))
	s.append("Status", "Count")
	for _, c := range report.CountBy(matched, func(r *compare.Row) string { return r.Jira.Status }) {
		s.append(c.Value, c.N)
	}
	s.blank()

	sections = append(sections, s.append("ADO State Breakdown (Matched Items)"))
	s.append("State", "Count")
	for _, c := range report.CountBy(matched, func(r *compare.Row) string { return r.ADO.State }) {
		s.append(c.Value, c.N)
	}
	s.blank()

	sections = append(sections, s.append("Jira Severity Breakdown (Matched Items)"))
	s.append("Severity", "Count")
	for _, c := range report.CountBy(matched, func(r *compare.Row) string { return r.Jira.Severity }) {
		s.append(c.Value, c.N)
	}
	s.blank()

	sections = append(sections, s.append("Top Assignees (Matched Items)"))
	s.append("Assignee", "Count")
	for _, c := range report.TopAssignees(matched) {
		s.append(c.Value, c.N)
	}

	s.styleRow(title, 1, w.titleStyle(colorGreen))
	sectionStyle := w.sectionStyle()
	for _, row := range sections {
		s.styleRow(row, 1, sectionStyle)
	}
	s.autoWidth()
}

func (w *writer) addFuzzySheet(matches []fuzzy.Match) {
	s := w.newSheet("Potential Matches")

	if len(matches) == 0 {
		s.append("No potential matches found")
		s.append("All unlinked Jira items have no similar titles in Azure DevOps work items.")
		return
	}

	title := s.append("Potential Matches Based on Title Similarity")
	note := s.append("Suggested matches using fuzzy text matching. " +
		"Only Medium, High, and Very High confidence matches are shown.")
	s.blank()
	header := s.append(toAny(fuzzyHeaders)...)
	for _, m := range matches {
		s.append(m.JiraKey, m.JiraSummary, m.JiraStatus, m.ADOID,
			m.ADOTitle, m.ADOState, m.ADOType, m.Score, string(m.Confidence))
	}

	s.styleRow(title, 1, w.titleStyle(colorAmber))
	italic, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true}})
	w.check(err)
	s.styleRow(note, 1, italic)
	s.styleRow(header, len(fuzzyHeaders), w.headerStyle(colorAmber))
	s.autoWidth()
}

func (w *writer) addUnlinkedSheet(unlinked []compare.Row) {
	s := w.newSheet("Unlinked Issues")
	header := s.append(toAny(unlinkedHeaders)...)
	for i := range unlinked {
		row := &unlinked[i]
		s.append(row.Jira.Key, row.Jira.Summary, row.Jira.Status,
			row.Jira.Severity, row.Jira.Assignee)
	}
	s.styleRow(header, len(unlinkedHeaders), w.headerStyle(colorRed))
	s.autoWidth()
}

func rowValues(r *compare.Row) []any {
	return []any{
		r.Jira.Key, r.Jira.Summary, r.Jira.Status, r.Jira.StatusCategory,
		r.Jira.Priority, r.Jira.Severity, r.Jira.Assignee,
		formatTime(r.Jira.Created), formatTime(r.Jira.Resolved),
		r.Jira.ADOID, r.Jira.ADOStateHint,
		r.ADO.Title, r.ADO.State, r.ADO.AssignedTo, r.ADO.Type,
		r.ADO.Priority, r.ADO.Severity, r.ADO.CreatedDate, r.ADO.ClosedDate,
		r.ADO.ResolvedDate, r.ADO.AreaPath, r.ADO.IterationPath,
		string(r.StatusVerdict), string(r.SeverityVerdict), string(r.AssigneeVerdict),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
