package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridable at build time with -ldflags "-X main.Version=...".
var Version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tracebridge version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tracebridge %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
