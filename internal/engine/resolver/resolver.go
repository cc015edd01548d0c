// Package resolver selects the manifest revision and variant to install.
package resolver

import (
	"slices"

	"go.trai.ch/keg/internal/core/domain"
)

// Resolve picks exactly one variant for req among the candidate manifests.
//
// Manifests are first filtered by version: a pinned version keeps every
// manifest that carries it, otherwise the manifest with the highest version
// wins. Ties go to the manifest loaded last. Only the variants of the
// selected version then take part in platform dispatch, where a macos or
// linux variant beats an all variant.
//
// Failures are *domain.ResolutionError. Resolve has no side effects.
func Resolve(candidates []domain.Manifest, req domain.Request) (domain.InstallPlan, error) {
	manifests := domain.Candidates(candidates, req.Package)
	if len(manifests) == 0 {
		return domain.InstallPlan{}, resolutionErr(domain.ErrNoMatchingPackage, req)
	}

	m, version, ok := selectManifest(manifests, req.Version)
	if !ok {
		return domain.InstallPlan{}, resolutionErr(domain.ErrNoMatchingVersion, req)
	}

	variant, err := selectVariant(m, version, req)
	if err != nil {
		return domain.InstallPlan{}, err
	}

	return newPlan(m, variant, req), nil
}

func selectManifest(manifests []domain.Manifest, pinned string) (*domain.Manifest, string, bool) {
	var best *domain.Manifest
	var bestVersion string

	for i := range manifests {
		m := &manifests[i]

		version := pinned
		if pinned == "" {
			version = m.Version()
		} else if !m.HasVersion(pinned) {
			continue
		}

		if best == nil || newer(version, m.Seq, bestVersion, best.Seq) {
			best, bestVersion = m, version
		}
	}

	return best, bestVersion, best != nil
}

func newer(version string, seq int, thanVersion string, thanSeq int) bool {
	if c := domain.CompareVersions(version, thanVersion); c != 0 {
		return c > 0
	}
	return seq > thanSeq
}

func selectVariant(m *domain.Manifest, version string, req domain.Request) (domain.Variant, error) {
	var specific, always []domain.Variant
	for _, v := range m.VariantsFor(version) {
		if !v.Predicate.Matches(req.Platform) {
			continue
		}
		if v.Predicate.Specific() {
			specific = append(specific, v)
		} else {
			always = append(always, v)
		}
	}

	matches := specific
	if len(matches) == 0 {
		matches = always
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		err := resolutionErr(domain.ErrNoMatchingPlatform, req)
		err.Version = version
		return domain.Variant{}, err
	default:
		err := resolutionErr(domain.ErrAmbiguousPlatform, req)
		err.Version = version
		err.Sources = []string{m.Source}
		return domain.Variant{}, err
	}
}

func newPlan(m *domain.Manifest, v domain.Variant, req domain.Request) domain.InstallPlan {
	plan := domain.InstallPlan{
		Package:  m.Name,
		Binary:   m.BinaryName(),
		Version:  v.EffectiveVersion(),
		Platform: req.Platform,
		Variant:  v,
		Prefix:   req.Prefix,
		Requires: slices.Clone(m.Requires),
		Source:   m.Source,
	}
	plan.Variant.Build = slices.Clone(v.Build)

	if m.Test != nil {
		test := *m.Test
		test.Args = slices.Clone(m.Test.Args)
		plan.Test = &test
	}

	return plan
}

func resolutionErr(kind error, req domain.Request) *domain.ResolutionError {
	return &domain.ResolutionError{
		Kind:     kind,
		Package:  req.Package,
		Version:  req.Version,
		Platform: req.Platform,
	}
}
