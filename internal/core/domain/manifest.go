package domain

import (
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// Kind is the installation path a variant takes.
type Kind string

const (
	// KindSourceArchive is built from a source archive with a build recipe.
	KindSourceArchive Kind = "source-archive"
	// KindPrebuiltBinary is downloaded ready to run.
	KindPrebuiltBinary Kind = "prebuilt-binary"
)

var validPackageName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)

// BuildStep is one step of a build recipe. Exactly one of Line, Argv or
// Script is set.
type BuildStep struct {
	// Name labels the step in logs and errors.
	Name string
	// Line is a command line split into words with shell quoting rules.
	Line string
	// Argv is a literal argument vector.
	Argv []string
	// Script is a shell script run by the embedded interpreter.
	Script string
}

// Label returns the step name, or its command when unnamed.
func (s BuildStep) Label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Line != "":
		return s.Line
	case len(s.Argv) > 0:
		return strings.Join(s.Argv, " ")
	default:
		return "script"
	}
}

func (s BuildStep) forms() int {
	n := 0
	if strings.TrimSpace(s.Line) != "" {
		n++
	}
	if len(s.Argv) > 0 {
		n++
	}
	if strings.TrimSpace(s.Script) != "" {
		n++
	}
	return n
}

// Expand returns a copy of the step with {{key}} placeholders replaced.
func (s BuildStep) Expand(vars map[string]string) BuildStep {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)

	out := BuildStep{
		Name:   s.Name,
		Line:   r.Replace(s.Line),
		Script: r.Replace(s.Script),
	}
	if len(s.Argv) > 0 {
		out.Argv = make([]string, len(s.Argv))
		for i, arg := range s.Argv {
			out.Argv[i] = r.Replace(arg)
		}
	}
	return out
}

// Variant is one platform and build-kind specific way to obtain a package.
type Variant struct {
	// Version may be empty when the version is only encoded in URL.
	Version   string
	Predicate Predicate
	URL       string
	Checksum  Checksum
	Build     []BuildStep
}

// Kind returns source-archive when the variant carries a build recipe.
func (v Variant) Kind() Kind {
	if len(v.Build) > 0 {
		return KindSourceArchive
	}
	return KindPrebuiltBinary
}

// EffectiveVersion returns the declared version, falling back to the one
// encoded in the artifact URL.
func (v Variant) EffectiveVersion() string {
	if v.Version != "" {
		return v.Version
	}
	return InferVersion(v.URL)
}

// AcceptanceTest is a black-box check run against an installed binary.
type AcceptanceTest struct {
	Args           []string
	Stdin          string
	ExpectedStdout string
}

// Manifest describes one revision of an installable package.
type Manifest struct {
	Name        string
	Description string
	Homepage    string
	// Binary is the installed executable name. Empty means Name.
	Binary string
	// Requires lists tools that must be on PATH before building.
	Requires []string
	Variants []Variant
	Test     *AcceptanceTest

	// Source is where the manifest document was read from.
	Source string
	// Seq is the load order; later revisions have higher values.
	Seq int
}

// BinaryName returns the name of the installed executable.
func (m *Manifest) BinaryName() string {
	if m.Binary != "" {
		return m.Binary
	}
	return m.Name
}

// Version returns the highest effective version among the variants.
func (m *Manifest) Version() string {
	var best string
	for i := range m.Variants {
		if v := m.Variants[i].EffectiveVersion(); CompareVersions(v, best) > 0 {
			best = v
		}
	}
	return best
}

// HasVersion reports whether any variant carries the given version.
func (m *Manifest) HasVersion(version string) bool {
	for i := range m.Variants {
		if m.Variants[i].EffectiveVersion() == version {
			return true
		}
	}
	return false
}

// VariantsFor returns the variants carrying the given version.
func (m *Manifest) VariantsFor(version string) []Variant {
	var out []Variant
	for i := range m.Variants {
		if m.Variants[i].EffectiveVersion() == version {
			out = append(out, m.Variants[i])
		}
	}
	return out
}

// Validate checks the manifest invariants. The returned error wraps one of
// the manifest sentinels and carries the offending field.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrMissingName
	}
	if !validPackageName.MatchString(m.Name) {
		return zerr.With(zerr.Wrap(ErrInvalidName, "invalid package name"), "name", m.Name)
	}
	if len(m.Variants) == 0 {
		return ErrMissingVariants
	}

	type dispatchKey struct {
		version   string
		predicate Predicate
	}
	seen := make(map[dispatchKey]int, len(m.Variants))

	for i := range m.Variants {
		v := &m.Variants[i]
		if err := validateVariant(v); err != nil {
			return zerr.With(err, "variant", i)
		}

		key := dispatchKey{version: v.EffectiveVersion(), predicate: v.Predicate}
		if prev, dup := seen[key]; dup {
			err := zerr.Wrap(ErrAmbiguousDispatch, "two variants match the same platform")
			err = zerr.With(err, "variants", []int{prev, i})
			err = zerr.With(err, "platform", v.Predicate.Key())
			return zerr.With(err, "version", key.version)
		}
		seen[key] = i
	}

	return nil
}

func validateVariant(v *Variant) error {
	if strings.TrimSpace(v.URL) == "" {
		return zerr.Wrap(ErrMissingURL, "variant has no url")
	}
	switch v.Predicate {
	case PredicateAlways, PredicateMacOS, PredicateLinux:
	default:
		return zerr.With(zerr.Wrap(ErrUnknownPlatform, "invalid platform"), "platform", string(v.Predicate))
	}
	if _, err := NewChecksum(v.Checksum.Algorithm, v.Checksum.Hex); err != nil {
		return zerr.With(zerr.Wrap(err, "invalid checksum"), "checksum", v.Checksum.String())
	}
	for i, step := range v.Build {
		if step.forms() != 1 {
			return zerr.With(zerr.Wrap(ErrInvalidBuildStep, "invalid build step"), "step", i)
		}
	}
	return nil
}

// Candidates returns the manifests for the named package in load order.
func Candidates(all []Manifest, name string) []Manifest {
	var out []Manifest
	for i := range all {
		if all[i].Name == name {
			out = append(out, all[i])
		}
	}
	return out
}
