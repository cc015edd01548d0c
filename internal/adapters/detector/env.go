// Package detector provides environment detection for progress output.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents how install progress is rendered.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeColor renders progress with ANSI colours.
	ModeColor
	// ModePlain renders progress without escape sequences.
	ModePlain
)

// DetectEnvironment returns the recommended output mode based on the environment.
// It checks if stderr is a TTY and if CI environment variables are set.
func DetectEnvironment() OutputMode {
	return detect(term.IsTerminal(int(os.Stderr.Fd())), os.Getenv("CI"))
}

func detect(isTTY bool, ci string) OutputMode {
	isCI := ci == "true" || ci == "1"
	if !isTTY || isCI {
		return ModePlain
	}
	return ModeColor
}

// ResolveMode applies user override flag to auto-detection.
// userFlag should be one of: "auto", "color", "plain", or empty.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "color":
		return ModeColor
	case "plain":
		return ModePlain
	default:
		return autoDetected
	}
}
