// Package main provides the entry point for the codedrift CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaizenlab/codedrift/cmd/codedrift/commands"
	"github.com/kaizenlab/codedrift/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codedrift",
		Short: "Codedrift - commit metric delta engine",
		Long: `Codedrift measures how quality metrics change across the before
and after states of the files touched by candidate commits, and
persists per-commit summaries incrementally with resume support.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
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
			fmt.Fprintf(os.Stdout, "codedrift %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
