package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
)

func checksum(t *testing.T) domain.Checksum {
	t.Helper()
	c, err := domain.NewChecksum(domain.AlgorithmSHA256, sha256Hex)
	require.NoError(t, err)
	return c
}

func TestManifest_Validate(t *testing.T) {
	sum := checksum(t)

	variant := func(p domain.Predicate, version string) domain.Variant {
		return domain.Variant{
			Version:   version,
			Predicate: p,
			URL:       "https://example.com/jg-" + version + ".tar.gz",
			Checksum:  sum,
		}
	}

	tests := []struct {
		name     string
		manifest domain.Manifest
		wantErr  error
	}{
		{
			name: "unconditional",
			manifest: domain.Manifest{
				Name:     "jg",
				Variants: []domain.Variant{variant(domain.PredicateAlways, "0.1.3")},
			},
		},
		{
			name: "platform dispatched",
			manifest: domain.Manifest{
				Name: "jg",
				Variants: []domain.Variant{
					variant(domain.PredicateMacOS, "0.1.4"),
					variant(domain.PredicateLinux, "0.1.4"),
				},
			},
		},
		{
			name: "specific next to always",
			manifest: domain.Manifest{
				Name: "jg",
				Variants: []domain.Variant{
					variant(domain.PredicateAlways, "0.1.4"),
					variant(domain.PredicateMacOS, "0.1.4"),
				},
			},
		},
		{
			name: "same predicate for different versions",
			manifest: domain.Manifest{
				Name: "jg",
				Variants: []domain.Variant{
					variant(domain.PredicateLinux, "0.1.3"),
					variant(domain.PredicateLinux, "0.1.4"),
				},
			},
		},
		{
			name:     "missing name",
			manifest: domain.Manifest{Variants: []domain.Variant{variant(domain.PredicateAlways, "1.0.0")}},
			wantErr:  domain.ErrMissingName,
		},
		{
			name:     "invalid name",
			manifest: domain.Manifest{Name: "j g", Variants: []domain.Variant{variant(domain.PredicateAlways, "1.0.0")}},
			wantErr:  domain.ErrInvalidName,
		},
		{
			name:     "no variants",
			manifest: domain.Manifest{Name: "jg"},
			wantErr:  domain.ErrMissingVariants,
		},
		{
			name: "ambiguous dispatch",
			manifest: domain.Manifest{
				Name: "jg",
				Variants: []domain.Variant{
					variant(domain.PredicateMacOS, "0.1.4"),
					variant(domain.PredicateMacOS, "0.1.4"),
				},
			},
			wantErr: domain.ErrAmbiguousDispatch,
		},
		{
			name: "missing url",
			manifest: domain.Manifest{
				Name:     "jg",
				Variants: []domain.Variant{{Predicate: domain.PredicateAlways, Checksum: sum}},
			},
			wantErr: domain.ErrMissingURL,
		},
		{
			name: "malformed checksum",
			manifest: domain.Manifest{
				Name: "jg",
				Variants: []domain.Variant{{
					Predicate: domain.PredicateAlways,
					URL:       "https://example.com/jg.tar.gz",
					Checksum:  domain.Checksum{Algorithm: "sha256", Hex: "abc"},
				}},
			},
			wantErr: domain.ErrMalformedChecksum,
		},
		{
			name: "build step with two forms",
			manifest: domain.Manifest{
				Name: "jg",
				Variants: []domain.Variant{{
					Predicate: domain.PredicateAlways,
					URL:       "https://example.com/jg-1.0.0.tar.gz",
					Checksum:  sum,
					Build:     []domain.BuildStep{{Line: "make", Script: "make install"}},
				}},
			},
			wantErr: domain.ErrInvalidBuildStep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manifest.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestManifest_Validate_AmbiguousMetadata(t *testing.T) {
	sum := checksum(t)
	m := domain.Manifest{
		Name: "jg",
		Variants: []domain.Variant{
			{Version: "0.1.4", Predicate: domain.PredicateLinux, URL: "https://a", Checksum: sum},
			{Version: "0.1.4", Predicate: domain.PredicateLinux, URL: "https://b", Checksum: sum},
		},
	}

	err := m.Validate()
	require.Error(t, err)

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	meta := zErr.Metadata()
	assert.Equal(t, "linux", meta["platform"])
	assert.Equal(t, "0.1.4", meta["version"])
	assert.Equal(t, []int{0, 1}, meta["variants"])
}

func TestManifest_Versions(t *testing.T) {
	m := domain.Manifest{
		Name: "jg",
		Variants: []domain.Variant{
			{URL: "https://github.com/gmmorris/jg/archive/0.1.3.osx.tar.gz"},
			{Version: "0.1.4", URL: "https://example.com/jg.tar.gz"},
		},
	}

	assert.Equal(t, "0.1.4", m.Version())
	assert.True(t, m.HasVersion("0.1.3"))
	assert.True(t, m.HasVersion("0.1.4"))
	assert.False(t, m.HasVersion("0.1.5"))
	assert.Len(t, m.VariantsFor("0.1.3"), 1)
	assert.Equal(t, "jg", m.BinaryName())

	m.Binary = "jgrep"
	assert.Equal(t, "jgrep", m.BinaryName())
}

func TestVariant_Kind(t *testing.T) {
	assert.Equal(t, domain.KindPrebuiltBinary, domain.Variant{}.Kind())
	assert.Equal(t, domain.KindSourceArchive, domain.Variant{Build: []domain.BuildStep{{Line: "make"}}}.Kind())
}

func TestBuildStep_Expand(t *testing.T) {
	step := domain.BuildStep{
		Argv: []string{"./configure", "--prefix={{prefix}}"},
	}
	got := step.Expand(map[string]string{"prefix": "/opt/stage"})
	assert.Equal(t, []string{"./configure", "--prefix=/opt/stage"}, got.Argv)
	assert.Equal(t, []string{"./configure", "--prefix={{prefix}}"}, step.Argv, "original must not change")

	line := domain.BuildStep{Line: "make PREFIX={{prefix}} install"}.Expand(map[string]string{"prefix": "/p"})
	assert.Equal(t, "make PREFIX=/p install", line.Line)
	assert.Equal(t, "make PREFIX=/p install", line.Label())
}

func TestCandidates(t *testing.T) {
	all := []domain.Manifest{{Name: "jg", Seq: 0}, {Name: "jgrep", Seq: 1}, {Name: "jg", Seq: 2}}
	got := domain.Candidates(all, "jg")
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Seq)
	assert.Equal(t, 2, got[1].Seq)
	assert.Empty(t, domain.Candidates(all, "jq"))
}
