package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <path>...",
		Short: "Validate manifest files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifests, err := c.app.Lint(cmd.Context(), args)

			out := cmd.OutOrStdout()
			for _, m := range manifests {
				_, _ = fmt.Fprintf(out, "ok %s (%s %s)\n", m.Source, m.Name, m.Version())
			}
			return err
		},
	}
}
