package resolver_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/engine/resolver"
)

var sum = domain.Checksum{Algorithm: domain.AlgorithmSHA256, Hex: strings.Repeat("a", 64)}

func variant(version string, p domain.Predicate, url string) domain.Variant {
	return domain.Variant{Version: version, Predicate: p, URL: url, Checksum: sum}
}

func manifest(name string, seq int, variants ...domain.Variant) domain.Manifest {
	return domain.Manifest{
		Name:     name,
		Variants: variants,
		Source:   name + ".yaml",
		Seq:      seq,
		Test: &domain.AcceptanceTest{
			Args:           []string{".name"},
			Stdin:          `{"name":"jeff goldblum"}`,
			ExpectedStdout: "{\"name\":\"jeff goldblum\"}\n",
		},
	}
}

func jgCatalog() []domain.Manifest {
	legacy := manifest("jg", 0, domain.Variant{
		Predicate: domain.PredicateAlways,
		URL:       "https://github.com/gmmorris/jg/archive/0.1.3.osx.tar.gz",
		Checksum:  sum,
		Build:     []domain.BuildStep{{Line: "make install"}},
	})
	legacy.Requires = []string{"make"}

	current := manifest("jg", 1,
		variant("0.1.4", domain.PredicateMacOS, "https://example.com/jg-0.1.4-x86_64-apple-darwin.tar.gz"),
		variant("0.1.4", domain.PredicateLinux, "https://example.com/jg-0.1.4-x86_64-unknown-linux-musl.tar.gz"),
	)

	other := manifest("jgrep", 2, variant("9.9.9", domain.PredicateAlways, "https://example.com/jgrep"))

	return []domain.Manifest{legacy, current, other}
}

func TestResolve_HighestVersion(t *testing.T) {
	plan, err := resolver.Resolve(jgCatalog(), domain.Request{
		Package:  "jg",
		Platform: domain.PlatformMacOS,
		Prefix:   "/opt/keg",
	})
	require.NoError(t, err)

	assert.Equal(t, "jg", plan.Package)
	assert.Equal(t, "jg", plan.Binary)
	assert.Equal(t, "0.1.4", plan.Version)
	assert.Equal(t, domain.PlatformMacOS, plan.Platform)
	assert.Equal(t, domain.PredicateMacOS, plan.Variant.Predicate)
	assert.Equal(t, domain.KindPrebuiltBinary, plan.Variant.Kind())
	assert.Equal(t, "/opt/keg", plan.Prefix)
	assert.Equal(t, "/opt/keg/bin/jg", plan.Destination())
	require.NotNil(t, plan.Test)
	assert.Equal(t, []string{".name"}, plan.Test.Args)
}

func TestResolve_PinnedLegacyVersion(t *testing.T) {
	plan, err := resolver.Resolve(jgCatalog(), domain.Request{
		Package:  "jg",
		Version:  "0.1.3",
		Platform: domain.PlatformLinux,
	})
	require.NoError(t, err)

	assert.Equal(t, "0.1.3", plan.Version)
	assert.Equal(t, domain.KindSourceArchive, plan.Variant.Kind())
	assert.Equal(t, []string{"make"}, plan.Requires)
	assert.Equal(t, "jg.yaml", plan.Source)
}

func TestResolve_TieGoesToLastLoaded(t *testing.T) {
	first := manifest("jg", 0, variant("1.0.0", domain.PredicateAlways, "https://example.com/first"))
	second := manifest("jg", 5, variant("1.0.0", domain.PredicateAlways, "https://example.com/second"))

	for _, req := range []domain.Request{
		{Package: "jg", Platform: domain.PlatformLinux},
		{Package: "jg", Version: "1.0.0", Platform: domain.PlatformLinux},
	} {
		plan, err := resolver.Resolve([]domain.Manifest{second, first}, req)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/second", plan.Variant.URL)
	}
}

func TestResolve_SemverOrdering(t *testing.T) {
	older := manifest("jg", 1, variant("0.9.0", domain.PredicateAlways, "https://example.com/0.9.0"))
	newer := manifest("jg", 0, variant("0.10.0", domain.PredicateAlways, "https://example.com/0.10.0"))

	plan, err := resolver.Resolve([]domain.Manifest{older, newer}, domain.Request{Package: "jg", Platform: domain.PlatformLinux})
	require.NoError(t, err)
	assert.Equal(t, "0.10.0", plan.Version)
}

func TestResolve_SpecificBeatsAlways(t *testing.T) {
	m := manifest("jg", 0,
		variant("1.0.0", domain.PredicateAlways, "https://example.com/any"),
		variant("1.0.0", domain.PredicateLinux, "https://example.com/linux"),
	)

	linux, err := resolver.Resolve([]domain.Manifest{m}, domain.Request{Package: "jg", Platform: domain.PlatformLinux})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/linux", linux.Variant.URL)

	mac, err := resolver.Resolve([]domain.Manifest{m}, domain.Request{Package: "jg", Platform: domain.PlatformMacOS})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/any", mac.Variant.URL)
}

func TestResolve_Errors(t *testing.T) {
	ambiguous := manifest("dup", 0,
		variant("1.0.0", domain.PredicateLinux, "https://example.com/a"),
		variant("1.0.0", domain.PredicateLinux, "https://example.com/b"),
	)
	macOnly := manifest("mac", 0, variant("1.0.0", domain.PredicateMacOS, "https://example.com/mac"))

	catalog := append(jgCatalog(), ambiguous, macOnly)

	tests := []struct {
		name string
		req  domain.Request
		kind error
	}{
		{
			name: "unknown package",
			req:  domain.Request{Package: "jq", Platform: domain.PlatformLinux},
			kind: domain.ErrNoMatchingPackage,
		},
		{
			name: "jgrep is not an alias",
			req:  domain.Request{Package: "jgrep", Version: "0.1.4", Platform: domain.PlatformLinux},
			kind: domain.ErrNoMatchingVersion,
		},
		{
			name: "absent version",
			req:  domain.Request{Package: "jg", Version: "2.0.0", Platform: domain.PlatformLinux},
			kind: domain.ErrNoMatchingVersion,
		},
		{
			name: "no variant for platform",
			req:  domain.Request{Package: "mac", Platform: domain.PlatformLinux},
			kind: domain.ErrNoMatchingPlatform,
		},
		{
			name: "unsupported platform",
			req:  domain.Request{Package: "jg", Platform: domain.Platform("windows")},
			kind: domain.ErrNoMatchingPlatform,
		},
		{
			name: "ambiguous dispatch",
			req:  domain.Request{Package: "dup", Platform: domain.PlatformLinux},
			kind: domain.ErrAmbiguousPlatform,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := resolver.Resolve(catalog, tt.req)
			require.Error(t, err)
			assert.Equal(t, domain.InstallPlan{}, plan)

			assert.ErrorIs(t, err, domain.ErrResolutionFailed)
			assert.ErrorIs(t, err, tt.kind)

			var resErr *domain.ResolutionError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, tt.req.Package, resErr.Package)
			assert.Equal(t, tt.req.Platform, resErr.Platform)
		})
	}
}

func TestResolve_AmbiguousNamesSource(t *testing.T) {
	m := manifest("dup", 0,
		variant("1.0.0", domain.PredicateAlways, "https://example.com/a"),
		variant("1.0.0", domain.PredicateAlways, "https://example.com/b"),
	)

	_, err := resolver.Resolve([]domain.Manifest{m}, domain.Request{Package: "dup", Platform: domain.PlatformMacOS})

	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, []string{"dup.yaml"}, resErr.Sources)
	assert.Equal(t, "1.0.0", resErr.Version)
}

func TestResolve_PlanDoesNotAliasManifest(t *testing.T) {
	catalog := jgCatalog()

	plan, err := resolver.Resolve(catalog, domain.Request{Package: "jg", Version: "0.1.3", Platform: domain.PlatformLinux})
	require.NoError(t, err)

	plan.Test.Args[0] = "mutated"
	plan.Requires[0] = "mutated"
	plan.Variant.Build[0].Line = "mutated"

	assert.Equal(t, ".name", catalog[0].Test.Args[0])
	assert.Equal(t, "make", catalog[0].Requires[0])
	assert.Equal(t, "make install", catalog[0].Variants[0].Build[0].Line)
}

func TestResolve_WithoutAcceptanceTest(t *testing.T) {
	m := manifest("jg", 0, variant("1.0.0", domain.PredicateAlways, "https://example.com/jg"))
	m.Test = nil

	plan, err := resolver.Resolve([]domain.Manifest{m}, domain.Request{Package: "jg", Platform: domain.PlatformLinux})
	require.NoError(t, err)
	assert.Nil(t, plan.Test)
}
