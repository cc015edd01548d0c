package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for progress output.
// It decouples telemetry collection from presentation.
//
//go:generate go run go.uber.org/mock/mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Stop flushes any buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called once the packages to install are resolved.
	OnPlanEmit(packages []string)

	// OnStageStart is called when a stage or install span begins.
	// parentID is empty for root spans.
	OnStageStart(spanID, parentID, name string, startTime time.Time)

	// OnStageLog is called when a stage emits output. data may hold partial lines.
	OnStageLog(spanID string, data []byte)

	// OnStageComplete is called when a span ends. err is nil on success.
	OnStageComplete(spanID string, endTime time.Time, err error)
}
