// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/keg/internal/adapters/fetch"
	_ "go.trai.ch/keg/internal/adapters/fs"
	_ "go.trai.ch/keg/internal/adapters/logger"
	_ "go.trai.ch/keg/internal/adapters/manifest"
	_ "go.trai.ch/keg/internal/adapters/settings"
	_ "go.trai.ch/keg/internal/adapters/shell"
	_ "go.trai.ch/keg/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/keg/internal/app"
	_ "go.trai.ch/keg/internal/engine/installer"
)
