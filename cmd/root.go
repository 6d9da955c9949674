package cmd

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	configPath string
	dryRun     bool
	verbose    bool
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var rootCmd = &cobra.Command{
	Use:   "forksync",
	Short: "Keep local clones of forked repositories in sync with their upstreams",
	Long: `A CLI tool that keeps many local clones of forked repositories
synchronized with their upstream projects.

It discovers each fork's upstream through the hosting provider's API
(or an explicit configuration entry), fetches and merges upstream
changes across all configured clones concurrently, stashes and restores
uncommitted work around every mutation, and rate-limits and retries
provider calls so it is safe to run unattended from a cronjob.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c", "",
		"Path to the configuration file (default: search standard locations)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&dryRun, "dry-run", false,
		"Show what would be done without making changes",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false,
		"Enable verbose output",
	)
}
