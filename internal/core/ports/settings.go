package ports

import (
	"context"

	"go.trai.ch/keg/internal/core/domain"
)

// SettingsLoader reads user configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=settings.go -destination=mocks/mock_settings.go -package=mocks
type SettingsLoader interface {
	// Load returns the defaults overlaid with the config file and the
	// environment.
	Load(ctx context.Context) (domain.Settings, error)
}
