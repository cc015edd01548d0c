package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/keg/internal/app"
	"go.trai.ch/keg/internal/core/domain"
)

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <package>...",
		Short: "Fetch, verify, build, place and test packages",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, _ := cmd.Flags().GetInt("jobs")
			jsonLogs, _ := cmd.Flags().GetBool("json-logs")
			progress, _ := cmd.Flags().GetString("progress")

			results, err := c.app.Install(cmd.Context(), args, app.InstallOptions{
				PlanOptions: planOptions(cmd),
				Jobs:        jobs,
				JSONLogs:    jsonLogs,
				Progress:    progress,
			})

			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Status != domain.StatusSucceeded {
					continue
				}
				_, _ = fmt.Fprintf(out, "installed %s %s to %s\n", r.Package, r.Version, r.InstalledPath)
			}
			return err
		},
	}
	addPlanFlags(cmd)
	cmd.Flags().IntP("jobs", "j", 0, "Maximum number of concurrent installs (default: settings)")
	cmd.Flags().Bool("json-logs", false, "Write logs and process output as JSON")
	cmd.Flags().String("progress", "auto", "Progress styling: auto, color or plain")
	return cmd
}
