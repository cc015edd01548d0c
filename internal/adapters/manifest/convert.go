package manifest

import (
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
)

var stepKeys = []string{"name", "run", "script"}

func (d *Document) toManifest() (domain.Manifest, error) {
	m := domain.Manifest{
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
		Homepage:    d.Homepage,
		Binary:      d.Binary,
		Requires:    d.Requires,
	}

	topLevel := d.URL != "" || d.SHA256 != "" || d.Checksum != "" || len(d.Build) > 0
	if topLevel && d.Variants != nil {
		return domain.Manifest{}, domain.ErrConflictingSchema
	}

	if topLevel {
		v, err := toVariant(VariantDTO{
			URL:      d.URL,
			SHA256:   d.SHA256,
			Checksum: d.Checksum,
			Build:    d.Build,
		}, d.Version)
		if err != nil {
			return domain.Manifest{}, err
		}
		m.Variants = []domain.Variant{v}
	}

	for i, dto := range d.Variants {
		v, err := toVariant(dto, d.Version)
		if err != nil {
			return domain.Manifest{}, zerr.With(err, "variant", i)
		}
		m.Variants = append(m.Variants, v)
	}

	if d.Test != nil {
		m.Test = &domain.AcceptanceTest{
			Args:           d.Test.Args,
			Stdin:          d.Test.Stdin,
			ExpectedStdout: d.Test.Stdout,
		}
	}

	if err := m.Validate(); err != nil {
		return domain.Manifest{}, err
	}
	return m, nil
}

func toVariant(dto VariantDTO, defaultVersion string) (domain.Variant, error) {
	predicate, err := domain.ParsePredicate(dto.Platform)
	if err != nil {
		return domain.Variant{}, zerr.With(zerr.Wrap(err, "invalid platform"), "platform", dto.Platform)
	}

	sum, err := toChecksum(dto.SHA256, dto.Checksum)
	if err != nil {
		return domain.Variant{}, err
	}

	steps := make([]domain.BuildStep, 0, len(dto.Build))
	for i, raw := range dto.Build {
		step, err := toBuildStep(raw)
		if err != nil {
			return domain.Variant{}, zerr.With(err, "step", i)
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		steps = nil
	}

	version := dto.Version
	if version == "" {
		version = defaultVersion
	}

	return domain.Variant{
		Version:   version,
		Predicate: predicate,
		URL:       strings.TrimSpace(dto.URL),
		Checksum:  sum,
		Build:     steps,
	}, nil
}

func toChecksum(sha256, checksum string) (domain.Checksum, error) {
	switch {
	case sha256 != "" && checksum != "":
		return domain.Checksum{}, zerr.Wrap(domain.ErrDuplicateChecksum, "conflicting checksum fields")
	case sha256 != "":
		sum, err := domain.NewChecksum(domain.AlgorithmSHA256, strings.TrimSpace(sha256))
		if err != nil {
			return domain.Checksum{}, zerr.With(zerr.Wrap(err, "invalid sha256"), "sha256", sha256)
		}
		return sum, nil
	case checksum != "":
		sum, err := domain.ParseChecksum(strings.TrimSpace(checksum))
		if err != nil {
			return domain.Checksum{}, zerr.With(zerr.Wrap(err, "invalid checksum"), "checksum", checksum)
		}
		return sum, nil
	default:
		return domain.Checksum{}, zerr.Wrap(domain.ErrMalformedChecksum, "variant has no checksum")
	}
}

// toBuildStep converts a decoded step. YAML and TOML both decode a step
// either to a string or to a generic table.
func toBuildStep(raw any) (domain.BuildStep, error) {
	switch v := raw.(type) {
	case string:
		return domain.BuildStep{Line: v}, nil
	case map[string]any:
		return stepFromTable(v)
	default:
		return domain.BuildStep{}, zerr.With(
			zerr.Wrap(domain.ErrInvalidBuildStep, "unexpected step type"), "type", fmt.Sprintf("%T", raw))
	}
}

func stepFromTable(table map[string]any) (domain.BuildStep, error) {
	for key := range table {
		if !slices.Contains(stepKeys, key) {
			return domain.BuildStep{}, zerr.With(zerr.Wrap(domain.ErrInvalidBuildStep, "unknown step field"), "field", key)
		}
	}

	var step domain.BuildStep
	var err error

	if step.Name, err = stringField(table, "name"); err != nil {
		return domain.BuildStep{}, err
	}
	if step.Script, err = stringField(table, "script"); err != nil {
		return domain.BuildStep{}, err
	}

	if run, ok := table["run"]; ok {
		switch r := run.(type) {
		case string:
			step.Line = r
		case []any:
			step.Argv = make([]string, 0, len(r))
			for _, arg := range r {
				s, ok := arg.(string)
				if !ok {
					return domain.BuildStep{}, zerr.With(
						zerr.Wrap(domain.ErrInvalidBuildStep, "run arguments must be strings"), "argument", arg)
				}
				step.Argv = append(step.Argv, s)
			}
		default:
			return domain.BuildStep{}, zerr.Wrap(domain.ErrInvalidBuildStep, "run must be a string or a list of strings")
		}
	}

	return step, nil
}

func stringField(table map[string]any, key string) (string, error) {
	raw, ok := table[key]
	if !ok {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", zerr.With(zerr.Wrap(domain.ErrInvalidBuildStep, key+" must be a string"), "field", key)
	}
	return s, nil
}
