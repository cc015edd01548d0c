package manifest

// Document is the on-disk representation of a manifest.
//
// A document either declares a single unconditional artifact through the
// top-level url, sha256, checksum and build fields, or a list of platform
// dispatched variants. Mixing both is rejected.
type Document struct {
	Name        string       `yaml:"name" toml:"name"`
	Description string       `yaml:"description,omitempty" toml:"description,omitempty"`
	Homepage    string       `yaml:"homepage,omitempty" toml:"homepage,omitempty"`
	Version     string       `yaml:"version,omitempty" toml:"version,omitempty"`
	Binary      string       `yaml:"binary,omitempty" toml:"binary,omitempty"`
	Requires    []string     `yaml:"requires,omitempty" toml:"requires,omitempty"`
	URL         string       `yaml:"url,omitempty" toml:"url,omitempty"`
	SHA256      string       `yaml:"sha256,omitempty" toml:"sha256,omitempty"`
	Checksum    string       `yaml:"checksum,omitempty" toml:"checksum,omitempty"`
	Build       []any        `yaml:"build,omitempty" toml:"build,omitempty"`
	Variants    []VariantDTO `yaml:"variants,omitempty" toml:"variants,omitempty"`
	Test        *TestDTO     `yaml:"test,omitempty" toml:"test,omitempty"`
}

// VariantDTO represents one entry of the variants list.
type VariantDTO struct {
	Platform string `yaml:"platform,omitempty" toml:"platform,omitempty"`
	Version  string `yaml:"version,omitempty" toml:"version,omitempty"`
	URL      string `yaml:"url" toml:"url"`
	SHA256   string `yaml:"sha256,omitempty" toml:"sha256,omitempty"`
	Checksum string `yaml:"checksum,omitempty" toml:"checksum,omitempty"`
	// Build holds steps as either command line strings or tables with one
	// of run or script.
	Build []any `yaml:"build,omitempty" toml:"build,omitempty"`
}

// TestDTO represents the acceptance test section.
type TestDTO struct {
	Args   []string `yaml:"args,omitempty" toml:"args,omitempty"`
	Stdin  string   `yaml:"stdin,omitempty" toml:"stdin,omitempty"`
	Stdout string   `yaml:"stdout" toml:"stdout"`
}
