package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// planView is the YAML rendering of an install plan.
type planView struct {
	Package     string    `yaml:"package"`
	Binary      string    `yaml:"binary"`
	Version     string    `yaml:"version"`
	Platform    string    `yaml:"platform"`
	Kind        string    `yaml:"kind"`
	Source      string    `yaml:"source"`
	URL         string    `yaml:"url"`
	Checksum    string    `yaml:"checksum"`
	Destination string    `yaml:"destination"`
	Requires    []string  `yaml:"requires,omitempty"`
	Build       []string  `yaml:"build,omitempty"`
	Test        *testView `yaml:"test,omitempty"`
}

type testView struct {
	Args   []string `yaml:"args,omitempty"`
	Stdin  string   `yaml:"stdin,omitempty"`
	Stdout string   `yaml:"stdout"`
}

func newPlanView(p *domain.InstallPlan) planView {
	v := planView{
		Package:     p.Package,
		Binary:      p.Binary,
		Version:     p.Version,
		Platform:    p.Platform.String(),
		Kind:        string(p.Variant.Kind()),
		Source:      p.Source,
		URL:         p.Variant.URL,
		Checksum:    p.Variant.Checksum.String(),
		Destination: p.Destination(),
		Requires:    p.Requires,
	}
	for _, step := range p.Variant.Build {
		v.Build = append(v.Build, step.Label())
	}
	if p.Test != nil {
		v.Test = &testView{
			Args:   p.Test.Args,
			Stdin:  p.Test.Stdin,
			Stdout: p.Test.ExpectedStdout,
		}
	}
	return v
}

func (c *CLI) newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <package>",
		Short: "Print the resolved install plan without installing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := c.app.Plan(cmd.Context(), args[0], planOptions(cmd))
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(newPlanView(&plan)); err != nil {
				return zerr.Wrap(err, "failed to encode plan")
			}
			return enc.Close()
		},
	}
	addPlanFlags(cmd)
	return cmd
}
