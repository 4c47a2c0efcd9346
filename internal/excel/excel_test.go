package excel

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"tracebridge/internal/compare"
	"tracebridge/internal/fuzzy"
	"tracebridge/internal/report"
	"tracebridge/internal/types"
)

func sampleRows() []compare.Row {
	linked := compare.Row{
		Jira: types.JiraIssue{
			Key: "PROJ-1", Summary: "Fix login bug", Status: "Done",
			StatusCategory: "Done", Severity: "2 - High", Assignee: "alice",
			ADOID: "100", ADOStateHint: "Closed",
		},
		ADO: types.WorkItem{
			ID: "100", Title: "Fix login bug", State: "Closed",
			AssignedTo: "alice", Type: "Bug", Severity: "2",
		},
		StatusVerdict:   types.VerdictBothClosed,
		SeverityVerdict: types.VerdictMatch,
		AssigneeVerdict: types.VerdictMatch,
	}
	unlinked := compare.Row{
		Jira: types.JiraIssue{
			Key: "PROJ-2", Summary: "Orphan issue", Status: "Open",
			StatusCategory: "To Do", Severity: types.NoSeverity,
			Assignee: types.UnassignedDisplay, ADOID: types.NotLinked,
			ADOStateHint: types.NoStateHint,
		},
		StatusVerdict:   types.VerdictNoLink,
		SeverityVerdict: types.VerdictNA,
		AssigneeVerdict: types.MismatchVerdict(types.UnassignedDisplay, ""),
	}
	return []compare.Row{linked, unlinked}
}

func writeSample(t *testing.T, matches []fuzzy.Match) string {
	t.Helper()
	rows := sampleRows()
	path := filepath.Join(t.TempDir(), "report.xlsx")

	err := WriteReport(path,
		report.Summarize(rows),
		rows,
		report.Mismatched(rows),
		report.Matched(rows),
		report.Unlinked(rows),
		matches,
		"run-123",
	)
	if err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	return path
}

func TestWriteReportSheets(t *testing.T) {
	matches := []fuzzy.Match{{
		JiraKey: "PROJ-2", JiraSummary: "Orphan issue", JiraStatus: "Open",
		ADOID: "200", ADOTitle: "Orphan issue copy", ADOState: "New",
		ADOType: "Task", Score: 92, Confidence: fuzzy.ConfidenceVeryHigh,
	}}
	path := writeSample(t, matches)

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	want := []string{
		"Summary", "Full Traceability", "Mismatches", "Matched Items",
		"Matched Summary", "Potential Matches", "Unlinked Issues",
	}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheet list = %v, want %v", got, want)
	}
	for _, name := range want {
		if idx, _ := f.GetSheetIndex(name); idx < 0 {
			t.Errorf("missing sheet %q", name)
		}
	}
	if idx, _ := f.GetSheetIndex("Sheet1"); idx >= 0 {
		t.Error("default Sheet1 should have been removed")
	}

	// Summary spot checks.
	if v, _ := f.GetCellValue("Summary", "A1"); v != "Jira-ADO Traceability Report" {
		t.Errorf("Summary!A1 = %q", v)
	}
	if v, _ := f.GetCellValue("Summary", "B3"); v != "run-123" {
		t.Errorf("Summary!B3 = %q, want run id", v)
	}
	if v, _ := f.GetCellValue("Summary", "B7"); v != "2" {
		t.Errorf("Summary!B7 (total issues) = %q, want 2", v)
	}
	if v, _ := f.GetCellValue("Summary", "B8"); v != "1" {
		t.Errorf("Summary!B8 (linked) = %q, want 1", v)
	}

	// Full Traceability: header then both rows, verdict in last column.
	if v, _ := f.GetCellValue("Full Traceability", "A1"); v != "Jira Key" {
		t.Errorf("Full Traceability!A1 = %q", v)
	}
	if v, _ := f.GetCellValue("Full Traceability", "A2"); v != "PROJ-1" {
		t.Errorf("Full Traceability!A2 = %q", v)
	}
	if v, _ := f.GetCellValue("Full Traceability", "W2"); v != string(types.VerdictBothClosed) {
		t.Errorf("Full Traceability!W2 = %q", v)
	}
	if v, _ := f.GetCellValue("Full Traceability", "W3"); v != string(types.VerdictNoLink) {
		t.Errorf("Full Traceability!W3 = %q", v)
	}

	// Unlinked sheet has only the orphan row.
	if v, _ := f.GetCellValue("Unlinked Issues", "A2"); v != "PROJ-2" {
		t.Errorf("Unlinked Issues!A2 = %q", v)
	}
	if v, _ := f.GetCellValue("Unlinked Issues", "A3"); v != "" {
		t.Errorf("Unlinked Issues!A3 = %q, want empty", v)
	}

	// Fuzzy candidate row below title, note, blank line, and header.
	if v, _ := f.GetCellValue("Potential Matches", "A5"); v != "PROJ-2" {
		t.Errorf("Potential Matches!A5 = %q", v)
	}
	if v, _ := f.GetCellValue("Potential Matches", "I5"); v != string(fuzzy.ConfidenceVeryHigh) {
		t.Errorf("Potential Matches!I5 = %q", v)
	}
}

func TestWriteReportNoFuzzyMatches(t *testing.T) {
	path := writeSample(t, nil)

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue("Potential Matches", "A1"); v != "No potential matches found" {
		t.Errorf("Potential Matches!A1 = %q", v)
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(nil); got != "" {
		t.Errorf("formatTime(nil) = %q, want empty", got)
	}
}
