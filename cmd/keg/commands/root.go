// Package commands implements the CLI commands for keg.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/keg/internal/app"
	"go.trai.ch/keg/internal/build"
	"go.trai.ch/keg/internal/core/domain"
)

// CLI represents the command line interface for keg.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Install(ctx context.Context, names []string, opts app.InstallOptions) ([]domain.InstallResult, error)
	Plan(ctx context.Context, name string, opts app.PlanOptions) (domain.InstallPlan, error)
	Lint(ctx context.Context, paths []string) ([]domain.Manifest, error)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "keg",
		Short:         "Install command-line tools from declarative manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newPlanCmd())
	rootCmd.AddCommand(c.newLintCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// addPlanFlags registers the flags shared by install and plan.
func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().String("version", "", "Install exactly this version")
	cmd.Flags().String("prefix", "", "Destination prefix; binaries go to <prefix>/bin")
	cmd.Flags().String("platform", "", "Target platform: macos or linux (default: host)")
	cmd.Flags().StringSlice("formula-dir", nil, "Additional manifest directory or file (repeatable)")
}

func planOptions(cmd *cobra.Command) app.PlanOptions {
	version, _ := cmd.Flags().GetString("version")
	prefix, _ := cmd.Flags().GetString("prefix")
	platform, _ := cmd.Flags().GetString("platform")
	dirs, _ := cmd.Flags().GetStringSlice("formula-dir")

	return app.PlanOptions{
		Version:     version,
		Prefix:      prefix,
		Platform:    platform,
		FormulaDirs: dirs,
	}
}
