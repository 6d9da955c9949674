package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/forksync/forksync/config"
	"github.com/forksync/forksync/infrastructure/gitrepo"
	"github.com/forksync/forksync/infrastructure/ratelimit"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show working-tree, merge and rate-limit status",
	Long: `Inspect every configured repository without modifying anything:
whether its working tree is dirty, whether a merge is in progress (and
which paths conflict), plus the current rate-limiter counters for each
provider.`,
	RunE: runStatus,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	container, err := buildContainer()
	if err != nil {
		return err
	}

	return container.Invoke(func(cfg *config.Config) error {
		for _, provCfg := range cfg.Providers {
			ratelimit.For(provCfg.Type, ratelimit.Config{
				RequestsPerMinute: provCfg.RateLimit.RequestsPerMinute,
				RequestsPerHour:   provCfg.RateLimit.RequestsPerHour,
				MinInterval:       provCfg.RateLimit.MinInterval(),
			})
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REPOSITORY\tPATH\tDIRTY\tMERGE\tCONFLICTS")

		for _, rc := range cfg.Repositories {
			git := gitrepo.NewRunner(rc.Path)

			dirty := "-"
			if hasChanges, statErr := git.HasUncommittedChanges(ctx); statErr == nil {
				dirty = fmt.Sprintf("%v", hasChanges)
			}

			merge, conflicts := "-", "-"
			if status, statErr := git.MergeStatus(ctx); statErr == nil {
				merge = fmt.Sprintf("%v", status.InMerge)
				conflicts = fmt.Sprintf("%d", len(status.Conflicts))
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rc.Name, rc.Path, dirty, merge, conflicts)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		names := ratelimit.Names()
		if len(names) == 0 {
			return nil
		}

		fmt.Println()
		lw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(lw, "PROVIDER\tLAST MIN\tLAST HOUR\tSINCE LAST\tQUOTA")
		for _, name := range names {
			limiter := ratelimit.Lookup(name)
			if limiter == nil {
				continue
			}
			st := limiter.Status()
			quota := "-"
			if st.Quota.Limit > 0 {
				quota = fmt.Sprintf("%d/%d", st.Quota.Remaining, st.Quota.Limit)
			}
			fmt.Fprintf(lw, "%s\t%d\t%d\t%s\t%s\n",
				st.Provider,
				st.RequestsLastMinute,
				st.RequestsLastHour,
				st.SinceLastRequest.Round(time.Second),
				quota,
			)
		}
		return lw.Flush()
	})
}
