package domain

import "path/filepath"

// Request is what a caller asks the resolver for.
type Request struct {
	Package string
	// Version pins an exact version. Empty selects the highest.
	Version  string
	Platform Platform
	// Prefix is the destination prefix threaded into the plan.
	Prefix string
}

// InstallPlan holds fully resolved instructions for a single install run.
type InstallPlan struct {
	Package  string
	Binary   string
	Version  string
	Platform Platform
	Variant  Variant
	// Prefix is the destination prefix; binaries go to Prefix/bin.
	Prefix   string
	Test     *AcceptanceTest
	Requires []string
	// Source is the manifest document the plan was resolved from.
	Source string
}

// Destination returns the path the binary is installed to.
func (p *InstallPlan) Destination() string {
	return filepath.Join(p.Prefix, BinDirName, p.Binary)
}

// Stage is a step of the install state machine.
type Stage string

const (
	// StageResolve selects the manifest and variant.
	StageResolve Stage = "resolve"
	// StageFetch downloads the artifact.
	StageFetch Stage = "fetch"
	// StageVerify checks the artifact digest.
	StageVerify Stage = "verify"
	// StageBuild unpacks the artifact and runs the build recipe.
	StageBuild Stage = "build"
	// StagePlace moves the binary into the destination prefix.
	StagePlace Stage = "place"
	// StageTest runs the acceptance test.
	StageTest Stage = "test"
	// StageDone marks a finished install.
	StageDone Stage = "done"
)

// Status is the outcome of an install.
type Status string

const (
	// StatusSucceeded means the binary was placed and passed its test.
	StatusSucceeded Status = "succeeded"
	// StatusFetchFailed means the artifact could not be retrieved.
	StatusFetchFailed Status = "fetch_failed"
	// StatusVerificationFailed means the artifact digest did not match.
	StatusVerificationFailed Status = "verification_failed"
	// StatusBuildFailed means unpacking or a build step failed.
	StatusBuildFailed Status = "build_failed"
	// StatusPlaceFailed means the binary could not be placed.
	StatusPlaceFailed Status = "place_failed"
	// StatusTestFailed means the acceptance test did not pass.
	StatusTestFailed Status = "test_failed"
)

// FailureStatus returns the status reported when the given stage fails.
func FailureStatus(stage Stage) Status {
	switch stage {
	case StageFetch:
		return StatusFetchFailed
	case StageVerify:
		return StatusVerificationFailed
	case StageBuild:
		return StatusBuildFailed
	case StagePlace:
		return StatusPlaceFailed
	case StageTest:
		return StatusTestFailed
	default:
		return StatusSucceeded
	}
}

// InstallResult reports the outcome of one install.
type InstallResult struct {
	Package string
	Version string
	Status  Status
	// Stage is the last stage reached.
	Stage Stage
	// InstalledPath is set only on success.
	InstalledPath string
	// Unchanged is true when the destination already held the same binary.
	Unchanged bool
	// TestOutput is the stdout captured from the acceptance test.
	TestOutput []byte
}
