package domain

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var urlVersionPattern = regexp.MustCompile(`\d+(?:\.\d+)+`)

// InferVersion extracts the first dotted version number from the path of an
// artifact URL. Legacy manifests carry their version only there.
func InferVersion(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	return urlVersionPattern.FindString(path)
}

// CompareVersions orders two version strings. Semantic versions are compared
// with semver rules; anything else falls back to byte-wise comparison.
// The empty version sorts before every other version.
func CompareVersions(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}

	va, vb := canonicalSemver(a), canonicalSemver(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		if c := semver.Compare(va, vb); c != 0 {
			return c
		}
	}

	return strings.Compare(a, b)
}

func canonicalSemver(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
