package domain

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	// BinDirName is the directory under the prefix that holds executables.
	BinDirName = "bin"

	// StageDirName is the staging prefix inside a work directory.
	StageDirName = "stage"

	// SourceDirName is where artifacts are unpacked inside a work directory.
	SourceDirName = "src"

	// ArtifactFileName is the fetched artifact inside a work directory.
	ArtifactFileName = "artifact"

	// LockDirName is the directory under the OS temp dir holding install locks.
	LockDirName = "keg-locks"

	// ConfigDirName is the directory under the user config dir holding settings.
	ConfigDirName = "keg"

	// ConfigFileName is the settings file name without extension.
	ConfigFileName = "config"

	// DefaultPrefixDir is the destination prefix used when none is configured.
	// The settings loader expands the leading ~.
	DefaultPrefixDir = "~/.local"

	// EnvPrefix is the prefix of environment variables read as settings.
	EnvPrefix = "KEG"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// BinDirPerm is the permission for a created prefix bin directory (rwxr-xr-x).
	BinDirPerm = 0o755

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// ExecPerm is the permission of installed binaries (rwxr-xr-x).
	ExecPerm = 0o755

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// Settings holds user configuration for installs.
type Settings struct {
	// Prefix is the default destination prefix.
	Prefix string
	// FormulaPath lists extra directories searched for manifests.
	FormulaPath []string
	// WorkDir is where scoped work directories are created.
	WorkDir      string
	FetchTimeout time.Duration
	TestTimeout  time.Duration
	// Jobs bounds the number of concurrent installs.
	Jobs int
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Prefix:       DefaultPrefixDir,
		WorkDir:      os.TempDir(),
		FetchTimeout: 5 * time.Minute,
		TestTimeout:  30 * time.Second,
		Jobs:         runtime.NumCPU(),
	}
}

// DefaultLockDir returns the directory holding destination locks.
func DefaultLockDir() string {
	return filepath.Join(os.TempDir(), LockDirName)
}
