package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrInvalidManifest is the kind of every manifest validation failure.
	ErrInvalidManifest = zerr.New("invalid manifest")

	// ErrManifestReadFailed is returned when a manifest document cannot be read.
	ErrManifestReadFailed = zerr.New("failed to read manifest")

	// ErrManifestParseFailed is returned when a manifest document cannot be decoded.
	ErrManifestParseFailed = zerr.New("failed to parse manifest")

	// ErrUnsupportedFormat is returned for manifest files that are neither YAML nor TOML.
	ErrUnsupportedFormat = zerr.New("unsupported manifest format, expected .yaml, .yml or .toml")

	// ErrMissingName is returned when a manifest has no package name.
	ErrMissingName = zerr.New("manifest has no name")

	// ErrInvalidName is returned when a package name contains invalid characters.
	ErrInvalidName = zerr.New("package name can only contain alphanumerics, '.', '_', '+' and '-'")

	// ErrMissingVariants is returned when a manifest defines no variant.
	ErrMissingVariants = zerr.New("manifest defines no variants")

	// ErrConflictingSchema is returned when a manifest mixes a top-level url with a variants list.
	ErrConflictingSchema = zerr.New("manifest mixes a top-level url with a variants list")

	// ErrMissingURL is returned when a variant has no artifact url.
	ErrMissingURL = zerr.New("variant has no url")

	// ErrMalformedChecksum is returned for checksums that are not sha256 or sha512 hex digests.
	ErrMalformedChecksum = zerr.New("malformed checksum, expected sha256:<64 hex> or sha512:<128 hex>")

	// ErrDuplicateChecksum is returned when both sha256 and checksum are set on a variant.
	ErrDuplicateChecksum = zerr.New("both sha256 and checksum are set")

	// ErrUnknownPlatform is returned for platform names other than all, macos and linux.
	ErrUnknownPlatform = zerr.New("unknown platform, expected all, macos or linux")

	// ErrAmbiguousDispatch is returned when two variants of one version match the same platform.
	ErrAmbiguousDispatch = zerr.New("ambiguous platform dispatch")

	// ErrInvalidBuildStep is returned when a build step does not define exactly one command form.
	ErrInvalidBuildStep = zerr.New("build step must define exactly one of a command line, run or script")

	// ErrResolutionFailed is the kind of every resolution failure.
	ErrResolutionFailed = zerr.New("resolution failed")

	// ErrNoMatchingPackage is returned when no manifest has the requested name.
	ErrNoMatchingPackage = zerr.New("no-matching-package")

	// ErrNoMatchingVersion is returned when no manifest carries the requested version.
	ErrNoMatchingVersion = zerr.New("no-matching-version")

	// ErrNoMatchingPlatform is returned when no variant applies to the platform.
	ErrNoMatchingPlatform = zerr.New("no-matching-platform")

	// ErrAmbiguousPlatform is returned when more than one variant applies to the platform.
	ErrAmbiguousPlatform = zerr.New("ambiguous-platform")

	// ErrUnsupportedHost is returned when the host OS maps to no platform.
	ErrUnsupportedHost = zerr.New("unsupported host platform, pass --platform")

	// ErrFetchFailed is the kind of every artifact retrieval failure.
	ErrFetchFailed = zerr.New("fetch failed")

	// ErrUnsupportedScheme is returned for artifact urls other than http, https and file.
	ErrUnsupportedScheme = zerr.New("unsupported url scheme")

	// ErrVerificationFailed is returned when an artifact digest does not match its checksum.
	ErrVerificationFailed = zerr.New("checksum mismatch")

	// ErrDigestFailed is returned when an artifact digest cannot be computed.
	ErrDigestFailed = zerr.New("failed to compute digest")

	// ErrExtractFailed is returned when an artifact cannot be unpacked.
	ErrExtractFailed = zerr.New("failed to unpack artifact")

	// ErrUnsafeArchivePath is returned for archive entries that escape the target directory.
	ErrUnsafeArchivePath = zerr.New("archive entry escapes target directory")

	// ErrArchiveEntryTooLarge is returned for archive entries above the size limit.
	ErrArchiveEntryTooLarge = zerr.New("archive entry too large")

	// ErrBuildFailed is the kind of every build failure.
	ErrBuildFailed = zerr.New("build failed")

	// ErrMissingBuildTool is returned when a required build tool is not on PATH.
	ErrMissingBuildTool = zerr.New("required build tool not found")

	// ErrProductNotFound is returned when no binary can be found after unpacking or building.
	ErrProductNotFound = zerr.New("binary not found in build output")

	// ErrPlaceFailed is the kind of every placement failure.
	ErrPlaceFailed = zerr.New("failed to place binary")

	// ErrLockFailed is returned when the destination lock cannot be acquired.
	ErrLockFailed = zerr.New("failed to lock destination")

	// ErrTestFailed is the kind of every acceptance test failure.
	ErrTestFailed = zerr.New("acceptance test failed")

	// ErrCommandFailed is returned when a process exits unsuccessfully.
	ErrCommandFailed = zerr.New("command failed")

	// ErrEmptyCommand is returned when a step has nothing to run.
	ErrEmptyCommand = zerr.New("empty command")

	// ErrConfigLoadFailed is returned when user settings cannot be loaded.
	ErrConfigLoadFailed = zerr.New("failed to load settings")

	// ErrNoPackagesSpecified is returned when install is called without package names.
	ErrNoPackagesSpecified = zerr.New("no packages specified")

	// ErrVersionWithManyPackages is returned when --version is combined with several packages.
	ErrVersionWithManyPackages = zerr.New("--version requires exactly one package")
)

// ManifestError reports a manifest document that violates an invariant.
type ManifestError struct {
	Source string
	Err    error
}

func (e *ManifestError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid manifest: %v", e.Err)
	}
	return fmt.Sprintf("invalid manifest %s: %v", e.Source, e.Err)
}

// Unwrap exposes the violated invariant and the manifest kind.
func (e *ManifestError) Unwrap() []error {
	return []error{e.Err, ErrInvalidManifest}
}

// ResolutionError reports why no single variant could be selected.
type ResolutionError struct {
	// Kind is one of ErrNoMatchingPackage, ErrNoMatchingVersion,
	// ErrNoMatchingPlatform or ErrAmbiguousPlatform.
	Kind     error
	Package  string
	Version  string
	Platform Platform
	// Sources lists the manifests involved in an ambiguous match.
	Sources []string
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: package %q", e.Kind, e.Package)
	if e.Version != "" {
		fmt.Fprintf(&b, " version %q", e.Version)
	}
	if e.Platform != "" {
		fmt.Fprintf(&b, " platform %q", e.Platform)
	}
	if len(e.Sources) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Sources, ", "))
	}
	return b.String()
}

// Unwrap exposes the resolution kind.
func (e *ResolutionError) Unwrap() []error {
	return []error{ErrResolutionFailed, e.Kind}
}

// FetchError reports a failed artifact download.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return "fetch " + e.URL + " failed"
	}
}

// Unwrap exposes the transport cause and the fetch kind.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetchFailed}
	}
	return []error{e.Err, ErrFetchFailed}
}

// VerificationError reports an artifact whose digest does not match.
type VerificationError struct {
	URL      string
	Expected Checksum
	Actual   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s:%s",
		e.URL, e.Expected, e.Expected.Algorithm, e.Actual)
}

// Unwrap returns ErrVerificationFailed.
func (e *VerificationError) Unwrap() error {
	return ErrVerificationFailed
}

// BuildError reports the build step that failed.
type BuildError struct {
	// Step is the zero-based index of the failing step.
	Step     int
	Name     string
	ExitCode int
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build step %d (%s) failed with exit code %d", e.Step, e.Name, e.ExitCode)
}

// Unwrap exposes the process cause and the build kind.
func (e *BuildError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBuildFailed}
	}
	return []error{e.Err, ErrBuildFailed}
}

// PlaceError reports a failure to move the binary into the prefix.
type PlaceError struct {
	Path string
	Err  error
}

func (e *PlaceError) Error() string {
	return fmt.Sprintf("place %s: %v", e.Path, e.Err)
}

// Unwrap exposes the cause and the place kind.
func (e *PlaceError) Unwrap() []error {
	return []error{e.Err, ErrPlaceFailed}
}

// TestError reports an acceptance test mismatch.
type TestError struct {
	Expected string
	Actual   string
	// Diff is a unified diff from expected to actual output.
	Diff     string
	ExitCode int
	Err      error
}

func (e *TestError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("acceptance test exited with code %d", e.ExitCode)
	}
	if e.Diff != "" {
		return "acceptance test output mismatch\n" + strings.TrimRight(e.Diff, "\n")
	}
	return fmt.Sprintf("acceptance test output mismatch: expected %q, got %q", e.Expected, e.Actual)
}

// Unwrap exposes the process cause and the test kind.
func (e *TestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTestFailed}
	}
	return []error{e.Err, ErrTestFailed}
}

// StageError records the package and stage an install stopped at.
type StageError struct {
	Package string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message(), e.Err)
}

// Message returns the package and stage without the cause.
func (e *StageError) Message() string {
	return fmt.Sprintf("%s: %s stage failed", e.Package, e.Stage)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
