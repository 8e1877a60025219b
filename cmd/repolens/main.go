// Package main provides the entry point for the repolens CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repolens-dev/repolens/cmd/repolens/commands"
	"github.com/repolens-dev/repolens/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "repolens",
		Short: "Repolens - concurrent repository analysis",
		Long: `Repolens runs structural, security, and performance analyzers over a
local repository snapshot and aggregates their outcomes into one report.

Commands:
  analyze   Analyze a repository and render the report
  serve     Serve the analysis API over HTTP`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "repolens %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
