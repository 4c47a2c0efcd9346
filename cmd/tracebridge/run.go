package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tracebridge/internal/ado"
	"tracebridge/internal/compare"
	"tracebridge/internal/config"
	"tracebridge/internal/excel"
	"tracebridge/internal/fuzzy"
	"tracebridge/internal/jira"
	"tracebridge/internal/report"
	"tracebridge/internal/types"
)

// maxJiraIssues bounds how many issues one run pulls over the API.
const maxJiraIssues = 1000

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate the traceability report",
	Long: `Load Jira issues (from the API or a JSON export), fetch the linked Azure
DevOps work items, compare status, severity, and assignee per item, fuzzy
match unlinked issues against recent ADO work items, and write the Excel
report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runReport(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runReport(ctx context.Context, cfg *config.Config) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Jira-ADO Traceability Report ==="))

	// Load Jira issues.
	var raws []jira.RawIssue
	var err error
	if cfg.DataSource == config.SourceAPI {
		fmt.Println("Fetching Jira issues from API...")
		client := jira.NewClient(cfg)
		if _, err = client.CheckConnection(ctx); err != nil {
			return err
		}
		raws, err = client.SearchIssues(ctx, maxJiraIssues)
	} else {
		fmt.Printf("Loading Jira issues from %s...\n", cfg.JiraDataFile)
		raws, err = jira.LoadFile(cfg.JiraDataFile)
	}
	if err != nil {
		return err
	}

	issues := jira.NewParser(cfg).ParseIssues(raws)
	fmt.Printf("Loaded %d Jira issues\n", len(issues))
	if len(issues) == 0 {
		fmt.Printf("%s No Jira issues found, nothing to report. Check the JQL query or data file.\n", yellow("[WARN]"))
		return nil
	}
	warnDataQuality(issues, yellow)

	// Fetch linked ADO work items. Fetches run concurrently; the result is
	// keyed by id so completion order is irrelevant.
	adoClient := ado.NewClient(cfg)
	linkedIDs := uniqueLinkedIDs(issues)
	fmt.Printf("\nFetching %d linked ADO work items...\n", len(linkedIDs))
	items := adoClient.FetchWorkItems(ctx, linkedIDs)
	fmt.Printf("Fetched %d of %d work items\n", len(items), len(linkedIDs))

	// Fuzzy match unlinked issues against the recent work item pool. A pool
	// query failure degrades to no candidates rather than aborting the run.
	unlinkedIssues := unlinkedOnly(issues)
	var matches []fuzzy.Match
	if len(unlinkedIssues) > 0 {
		fmt.Printf("\nAnalyzing %d unlinked Jira items for potential matches...\n", len(unlinkedIssues))
		pool, poolErr := adoClient.QueryRecentPool(ctx, cfg.ADOScanDays)
		if poolErr != nil {
			fmt.Printf("%s Could not fetch ADO work items for fuzzy matching: %v\n", yellow("[WARN]"), poolErr)
		}
		matches, err = fuzzy.FindMatches(unlinkedIssues, pool, cfg.FuzzyThreshold, cfg.FuzzyLimit)
		if err != nil {
			return err
		}
		fmt.Printf("Found %d potential matches based on title similarity\n", len(matches))
	}

	// Compare, aggregate, render.
	rows := compare.Enrich(issues, items)
	summary := report.Summarize(rows)
	mismatched := report.Mismatched(rows)
	matched := report.Matched(rows)
	unlinked := report.Unlinked(rows)

	fmt.Println("\nGenerating Excel report...")
	runID := uuid.NewString()
	if err := excel.WriteReport(cfg.OutputFile, summary, rows, mismatched, matched, unlinked, matches, runID); err != nil {
		return err
	}

	fmt.Printf("\n%s Report generated successfully: %s\n", green("[SUCCESS]"), cfg.OutputFile)
	printSummary(summary, report.BuildMatchedStats(matched), len(matches))
	return nil
}

// warnDataQuality reports empty or duplicate issue keys. These are warnings,
// not failures: the offending rows still land in the report.
func warnDataQuality(issues []types.JiraIssue, yellow func(...any) string) {
	seen := make(map[string]bool, len(issues))
	for i := range issues {
		if err := issues[i].Validate(); err != nil {
			fmt.Printf("%s %v\n", yellow("[WARN]"), err)
			continue
		}
		if seen[issues[i].Key] {
			fmt.Printf("%s duplicate issue key %s\n", yellow("[WARN]"), issues[i].Key)
		}
		seen[issues[i].Key] = true
	}
}

// uniqueLinkedIDs collects the distinct ADO ids of linked issues, in
// first-seen order.
func uniqueLinkedIDs(issues []types.JiraIssue) []string {
	seen := make(map[string]bool)
	var ids []string
	for i := range issues {
		if !issues[i].Linked() || seen[issues[i].ADOID] {
			continue
		}
		seen[issues[i].ADOID] = true
		ids = append(ids, issues[i].ADOID)
	}
	return ids
}

func unlinkedOnly(issues []types.JiraIssue) []types.JiraIssue {
	var out []types.JiraIssue
	for i := range issues {
		if !issues[i].Linked() {
			out = append(out, issues[i])
		}
	}
	return out
}

func printSummary(s report.Summary, stats report.MatchedStats, fuzzyCount int) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", bold("Summary:"))
	fmt.Printf("  Total Issues: %d\n", s.Total)
	fmt.Printf("  Linked to ADO: %d\n", s.Linked)
	fmt.Printf("  Not Linked: %d\n", s.Unlinked)
	fmt.Printf("  Potential Matches Found (Fuzzy): %d\n", fuzzyCount)
	fmt.Printf("  Perfect Matches (Status+Severity+Assignee): %d\n", stats.PerfectMatches)
	fmt.Printf("  Status Mismatches (among linked): %d\n", s.StatusMismatches)
	fmt.Printf("  Severity Mismatches (among linked): %d\n", s.SeverityMismatches)
	fmt.Printf("  Assignee Mismatches (among linked): %d\n", s.AssigneeMismatches)
}
