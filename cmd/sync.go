package cmd

import (
	"context"
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forksync/forksync/application"
	"github.com/forksync/forksync/config"
	"github.com/forksync/forksync/domain"
	"github.com/forksync/forksync/infrastructure/export"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	repoFilter     string
	providerFilter string
	strategyFlag   string
	workersFlag    int
	outputFormat   string
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync all configured forks with their upstreams",
	Long: `Fetch and merge upstream changes into every configured clone.

This is the main command intended to be used in a cronjob. Repositories
are processed concurrently under a bounded worker pool; uncommitted
changes are stashed before and restored after each merge, and provider
API calls are rate-limited and retried.`,
	RunE: runSync,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	syncCmd.Flags().StringVar(
		&repoFilter, "repo", "",
		"Only sync this repository (by configured name)",
	)
	syncCmd.Flags().StringVar(
		&providerFilter, "provider", "",
		"Only sync repositories on this provider (github, gitlab)",
	)
	syncCmd.Flags().StringVar(
		&strategyFlag, "strategy", "",
		"Conflict strategy override (abort, ours, theirs, manual)",
	)
	syncCmd.Flags().IntVar(
		&workersFlag, "workers", 0,
		"Worker pool size override",
	)
	syncCmd.Flags().StringVarP(
		&outputFormat, "output", "o", "",
		"Write results to stdout as json or csv",
	)
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	container, err := buildContainer()
	if err != nil {
		return err
	}

	return container.Invoke(func(cfg *config.Config, svc *application.SyncService) error {
		results, runErr := svc.Run(ctx, cfg, application.RunOptions{
			DryRun:         dryRun,
			Verbose:        verbose,
			RepoFilter:     repoFilter,
			ProviderFilter: providerFilter,
			Strategy:       strategyFlag,
			Workers:        workersFlag,
		})
		if runErr != nil {
			return runErr
		}

		reportResults(results)

		switch outputFormat {
		case "":
		case "json":
			if exportErr := export.WriteJSON(os.Stdout, results); exportErr != nil {
				return exportErr
			}
		case "csv":
			if exportErr := export.WriteCSV(os.Stdout, results); exportErr != nil {
				return exportErr
			}
		default:
			return fmt.Errorf("unknown output format %q (want json or csv)", outputFormat)
		}
		return nil
	})
}

func reportResults(results []domain.BatchResult) {
	for _, r := range results {
		if r.Success {
			logger.Infof("✔ %s: %s", r.Name, r.Message)
			continue
		}
		logger.Errorf("✘ %s: %s", r.Name, r.Message)
		if stash, ok := r.Details["stash_kept"]; ok && stash == "true" {
			logger.Warnf(
				"  uncommitted changes for %s are kept in %s; recover with `git stash apply %s`",
				r.Name, r.Details["stash"], r.Details["stash"],
			)
		}
	}
}
