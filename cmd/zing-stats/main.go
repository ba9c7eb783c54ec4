// Package main provides the entry point for the zing-stats CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/HewlettPackard/zing-stats/cmd/zing-stats/commands"
	"github.com/HewlettPackard/zing-stats/pkg/version"
)

func main() {
	// Backend tokens are commonly kept in a .env file; absence is fine.
	_ = godotenv.Load()

	rootFlags := &commands.RootFlags{}

	rootCmd := &cobra.Command{
		Use:   "zing-stats",
		Short: "Zing stats - engineering process health reporter",
		Long: `Zing stats gathers changes from Gerrit and pull requests from GitHub,
parses CI status comments, and renders per-team reports.

Commands:
  report    Gather changes and write per-team reports
  validate  Validate a projects file against the schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&rootFlags.ConfigPath, "config", "", "explicit config file path")
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.Quiet, "quiet", "q", false, "suppress output")
	rootCmd.PersistentFlags().BoolVar(&rootFlags.LogJSON, "log-json", false, "JSON-formatted log output")

	// Add commands.
	rootCmd.AddCommand(commands.NewReportCommand(rootFlags))
	rootCmd.AddCommand(commands.NewValidateCommand())
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
			fmt.Fprintf(os.Stdout, "zing-stats %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
