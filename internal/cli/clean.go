package cli

import (
	"github.com/spf13/cobra"

	"github.com/danielhuang/cotton/pkg/orchestrate"
)

// cleanCommand removes the project's installed dependency tree, optionally
// garbage collecting archive-store entries the lockfile no longer references.
func (c *CLI) cleanCommand(noCache *bool, concurrency *int, registryURL *string) *cobra.Command {
	var dir string
	var gc bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the installed dependency tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.buildOptions(dir, *noCache, false, *concurrency, *registryURL)
			if err != nil {
				return err
			}
			orch, err := orchestrate.New(opts)
			if err != nil {
				return err
			}
			if err := orch.Clean(orchestrate.CleanOptions{GC: gc}); err != nil {
				return err
			}
			c.Logger.Info("cleaned dependency tree", "gc", gc)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "project directory containing package.json")
	cmd.Flags().BoolVar(&gc, "gc", false, "also remove archive-store entries the lockfile no longer references")
	return cmd
}
