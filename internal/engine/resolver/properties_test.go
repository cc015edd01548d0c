package resolver_test

import (
	"errors"
	"fmt"
	"testing"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/engine/resolver"
	"pgregory.net/rapid"
)

var (
	platforms   = []domain.Platform{domain.PlatformMacOS, domain.PlatformLinux}
	platformGen = rapid.SampledFrom(platforms)
	versionGen  = rapid.Custom(func(t *rapid.T) string {
		return fmt.Sprintf("%d.%d.%d",
			rapid.IntRange(0, 3).Draw(t, "major"),
			rapid.IntRange(0, 20).Draw(t, "minor"),
			rapid.IntRange(0, 20).Draw(t, "patch"))
	})
)

func TestProperty_UnconditionalResolvesEverywhere(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		version := versionGen.Draw(t, "version")
		m := manifest("jg", 0, variant(version, domain.PredicateAlways, "https://example.com/jg-"+version))
		platform := platformGen.Draw(t, "platform")

		plan, err := resolver.Resolve([]domain.Manifest{m}, domain.Request{Package: "jg", Platform: platform})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if plan.Variant.URL != m.Variants[0].URL {
			t.Fatalf("selected %q, want %q", plan.Variant.URL, m.Variants[0].URL)
		}
	})
}

func TestProperty_PlatformVariantsAreExclusive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		version := versionGen.Draw(t, "version")
		withAlways := rapid.Bool().Draw(t, "with_always")

		variants := []domain.Variant{
			variant(version, domain.PredicateLinux, "https://example.com/linux"),
			variant(version, domain.PredicateMacOS, "https://example.com/macos"),
		}
		if withAlways {
			variants = append(variants, variant(version, domain.PredicateAlways, "https://example.com/all"))
		}
		perm := rapid.Permutation(variants).Draw(t, "variants")
		m := manifest("jg", 0, perm...)

		platform := platformGen.Draw(t, "platform")
		plan, err := resolver.Resolve([]domain.Manifest{m}, domain.Request{Package: "jg", Platform: platform})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !plan.Variant.Predicate.Specific() || !plan.Variant.Predicate.Matches(platform) {
			t.Fatalf("platform %s selected variant %s", platform, plan.Variant.Predicate)
		}
	})
}

func TestProperty_AbsentVersionNeverPlans(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "manifests")
		catalog := make([]domain.Manifest, 0, n)
		seen := make(map[string]bool)
		for i := range n {
			v := versionGen.Draw(t, fmt.Sprintf("version_%d", i))
			seen[v] = true
			catalog = append(catalog, manifest("jg", i, variant(v, domain.PredicateAlways, "https://example.com/"+v)))
		}

		pinned := versionGen.Filter(func(v string) bool { return !seen[v] }).Draw(t, "pinned")

		plan, err := resolver.Resolve(catalog, domain.Request{Package: "jg", Version: pinned, Platform: domain.PlatformLinux})
		if err == nil {
			t.Fatalf("expected no-matching-version for %s, got plan %+v", pinned, plan)
		}
		if !errorIs(err, domain.ErrNoMatchingVersion) {
			t.Fatalf("unexpected error kind: %v", err)
		}
	})
}

func TestProperty_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "manifests")
		catalog := make([]domain.Manifest, 0, n)
		for i := range n {
			v := versionGen.Draw(t, fmt.Sprintf("version_%d", i))
			p := rapid.SampledFrom([]domain.Predicate{
				domain.PredicateAlways, domain.PredicateMacOS, domain.PredicateLinux,
			}).Draw(t, fmt.Sprintf("predicate_%d", i))
			catalog = append(catalog, manifest("jg", i, variant(v, p, fmt.Sprintf("https://example.com/%d", i))))
		}
		req := domain.Request{Package: "jg", Platform: platformGen.Draw(t, "platform")}

		first, err1 := resolver.Resolve(catalog, req)
		second, err2 := resolver.Resolve(catalog, req)

		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("errors differ: %v vs %v", err1, err2)
		}
		if err1 == nil && first.Variant.URL != second.Variant.URL {
			t.Fatalf("plans differ: %s vs %s", first.Variant.URL, second.Variant.URL)
		}
	})
}

func errorIs(err, target error) bool {
	return errors.Is(err, target)
}
