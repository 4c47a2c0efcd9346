package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tracebridge/internal/ado"
	"tracebridge/internal/config"
	"tracebridge/internal/jira"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and connectivity",
	Long: `Validate the configuration, then probe both services: the Jira /myself
endpoint (API mode only) and an ADO WIQL query.

Exit codes:
  0 - All checks passed
  1 - One or more checks failed`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		failed := false

		fmt.Printf("%s Configuration\n", cyan("→"))
		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("  %s %v\n", red("✗"), err)
			os.Exit(1)
		}
		fmt.Printf("  %s Configuration valid (data source: %s)\n", green("✓"), cfg.DataSource)

		if cfg.DataSource == config.SourceAPI {
			fmt.Printf("%s Jira connection\n", cyan("→"))
			name, err := jira.NewClient(cfg).CheckConnection(ctx)
			if err != nil {
				failed = true
				fmt.Printf("  %s %v\n", red("✗"), err)
			} else {
				fmt.Printf("  %s Connected to Jira as: %s\n", green("✓"), name)
			}
		} else if _, err := os.Stat(cfg.JiraDataFile); err != nil {
			failed = true
			fmt.Printf("%s Jira data file\n", cyan("→"))
			fmt.Printf("  %s cannot read %s: %v\n", red("✗"), cfg.JiraDataFile, err)
		}

		fmt.Printf("%s ADO connection\n", cyan("→"))
		count, err := ado.NewClient(cfg).CheckConnection(ctx)
		if err != nil {
			failed = true
			fmt.Printf("  %s %v\n", red("✗"), err)
		} else {
			fmt.Printf("  %s Connected to ADO project %s (%d work items in last day)\n",
				green("✓"), cfg.ADOProject, count)
		}

		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
