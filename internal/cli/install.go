package cli

import (
	"github.com/spf13/cobra"

	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/orchestrate"
)

// installCommand resolves, locks, and installs a project's dependencies.
func (c *CLI) installCommand(noCache, update *bool, concurrency *int, registryURL *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Resolve and install the project's dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.buildOptions(dir, *noCache, *update, *concurrency, *registryURL)
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			orch, err := orchestrate.New(opts)
			if err != nil {
				return err
			}
			result, err := orch.Run(withLogger(cmd.Context(), c.Logger))
			if err != nil {
				if cottonerrors.Is(err, cottonerrors.ErrCodeCancelled) {
					return nil
				}
				return err
			}
			prog.done("install complete")
			printStats(c.Logger, result)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "project directory containing package.json")
	return cmd
}
