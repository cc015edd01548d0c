package domain

import (
	"runtime"
	"strings"

	"go.trai.ch/zerr"
)

// Platform identifies the operating system family an install runs on.
type Platform string

const (
	// PlatformMacOS is the macOS platform.
	PlatformMacOS Platform = "macos"
	// PlatformLinux is the Linux platform.
	PlatformLinux Platform = "linux"
)

// String returns the platform name.
func (p Platform) String() string {
	return string(p)
}

// ParsePlatform parses a platform name as given on the command line.
// "darwin" and "osx" are accepted as aliases for macos.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "macos", "darwin", "osx":
		return PlatformMacOS, nil
	case "linux":
		return PlatformLinux, nil
	default:
		return "", zerr.With(zerr.Wrap(ErrUnknownPlatform, "failed to parse platform"), "platform", s)
	}
}

// HostPlatform returns the platform of the running process.
func HostPlatform() (Platform, error) {
	return platformForGOOS(runtime.GOOS)
}

func platformForGOOS(goos string) (Platform, error) {
	switch goos {
	case "darwin":
		return PlatformMacOS, nil
	case "linux":
		return PlatformLinux, nil
	default:
		return "", zerr.With(zerr.Wrap(ErrUnsupportedHost, "no platform for host"), "goos", goos)
	}
}

// Predicate decides which platforms a variant applies to.
type Predicate string

const (
	// PredicateAlways applies on every platform.
	PredicateAlways Predicate = "always"
	// PredicateMacOS applies on macOS only.
	PredicateMacOS Predicate = "is-macos"
	// PredicateLinux applies on Linux only.
	PredicateLinux Predicate = "is-linux"
)

// ParsePredicate maps the platform key used in manifest documents
// ("all", "macos", "linux") to a Predicate. An empty key means all.
func ParsePredicate(key string) (Predicate, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", "all", "any", "always":
		return PredicateAlways, nil
	case "macos", "darwin", "osx", "is-macos":
		return PredicateMacOS, nil
	case "linux", "is-linux":
		return PredicateLinux, nil
	default:
		return "", ErrUnknownPlatform
	}
}

// Matches reports whether the predicate applies to the platform.
func (p Predicate) Matches(platform Platform) bool {
	switch p {
	case PredicateAlways:
		return true
	case PredicateMacOS:
		return platform == PlatformMacOS
	case PredicateLinux:
		return platform == PlatformLinux
	default:
		return false
	}
}

// Specific reports whether the predicate targets a single platform.
func (p Predicate) Specific() bool {
	return p == PredicateMacOS || p == PredicateLinux
}

// Key returns the document key for the predicate.
func (p Predicate) Key() string {
	switch p {
	case PredicateMacOS:
		return string(PlatformMacOS)
	case PredicateLinux:
		return string(PlatformLinux)
	default:
		return "all"
	}
}
