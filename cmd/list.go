package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/forksync/forksync/config"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured repositories",
	RunE:  runList,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(_ *cobra.Command, _ []string) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}

	return container.Invoke(func(cfg *config.Config) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REPOSITORY\tPATH\tPROVIDER\tBRANCH\tUPSTREAM")
		for _, rc := range cfg.Repositories {
			provider := rc.Provider
			if provider == "" {
				provider = "(auto)"
			}
			branch := rc.Branch
			if branch == "" {
				branch = "(current)"
			}
			upstream := rc.Upstream
			if upstream == "" {
				upstream = "(discovered)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rc.Name, rc.Path, provider, branch, upstream)
		}
		return w.Flush()
	})
}
