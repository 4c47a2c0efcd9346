package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tracebridge/internal/config"
)

// cfgFile is the optional YAML configuration file. When unset, configuration
// comes from environment variables (and a .env file if present).
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tracebridge",
	Short: "Reconcile Jira issues against Azure DevOps work items",
	Long: `Tracebridge cross-checks Jira issues against their linked Azure DevOps
work items and produces a multi-sheet Excel traceability report: status,
severity, and assignee agreement for linked items, plus fuzzy title matching
to suggest probable links for issues that have none.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"path to YAML configuration file (default: environment variables)")
}

// loadConfig builds the run configuration once; it is passed by pointer into
// every component from here on.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.FromEnv()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
