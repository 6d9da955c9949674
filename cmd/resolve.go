package cmd

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forksync/forksync/config"
	"github.com/forksync/forksync/domain"
	"github.com/forksync/forksync/infrastructure/gitrepo"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var resolveStrategy string

//nolint:gochecknoglobals // required by cobra CLI pattern
var resolveCmd = &cobra.Command{
	Use:   "resolve <repository>",
	Short: "Resolve or abort an in-progress merge in one repository",
	Long: `Finish a merge that a previous sync left conflicted.

With --strategy ours or theirs the conflicting paths are re-staged from
the chosen side and the merge is committed; abort discards the merge and
returns the repository to a clean state.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	resolveCmd.Flags().StringVar(
		&resolveStrategy, "strategy", "",
		"Resolution strategy: ours, theirs or abort (required)",
	)
	_ = resolveCmd.MarkFlagRequired("strategy")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	container, err := buildContainer()
	if err != nil {
		return err
	}

	return container.Invoke(func(cfg *config.Config) error {
		repoName := args[0]
		var path string
		for _, rc := range cfg.Repositories {
			if rc.Name == repoName {
				path = rc.Path
				break
			}
		}
		if path == "" {
			return fmt.Errorf("repository %q is not configured", repoName)
		}

		resolver := gitrepo.NewConflictResolver(gitrepo.NewRunner(path))

		switch resolveStrategy {
		case "abort":
			if abortErr := resolver.Abort(ctx); abortErr != nil {
				return abortErr
			}
			logger.Infof("aborted merge in %s", repoName)
			return nil
		case "ours", "theirs":
			strategy := domain.ResolveStrategy(resolveStrategy)
			if resolveErr := resolver.Resolve(ctx, strategy); resolveErr != nil {
				return resolveErr
			}
			logger.Infof("resolved merge in %s using %s", repoName, resolveStrategy)
			return nil
		default:
			return fmt.Errorf(
				"invalid strategy %q (want ours, theirs or abort)", resolveStrategy,
			)
		}
	})
}
