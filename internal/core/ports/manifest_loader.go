package ports

import (
	"context"

	"go.trai.ch/keg/internal/core/domain"
)

// ManifestLoader reads manifest documents into domain manifests.
//
//go:generate go run go.uber.org/mock/mockgen -source=manifest_loader.go -destination=mocks/mock_manifest_loader.go -package=mocks
type ManifestLoader interface {
	// Parse decodes and validates a single manifest document. The format is
	// chosen from the extension of source. Failures are *domain.ManifestError.
	Parse(source string, data []byte) (domain.Manifest, error)

	// Load returns every manifest of the embedded catalog followed by the
	// manifests found in dirs, in load order. Documents are never merged.
	Load(ctx context.Context, dirs []string) ([]domain.Manifest, error)
}
