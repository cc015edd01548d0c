package telemetry_test

import (
	"context"
	"sync"
	"time"
)

type stageEvent struct {
	SpanID   string
	ParentID string
	Name     string
	Err      error
}

// recordingRenderer is a thread-safe ports.Renderer that records every call.
type recordingRenderer struct {
	mu        sync.Mutex
	plans     [][]string
	starts    []stageEvent
	completes []stageEvent
	logs      map[string][]byte
}

func (r *recordingRenderer) Start(_ context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                   { return nil }
func (r *recordingRenderer) Wait() error                   { return nil }

func (r *recordingRenderer) OnPlanEmit(packages []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = append(r.plans, packages)
}

func (r *recordingRenderer) OnStageStart(spanID, parentID, name string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, stageEvent{SpanID: spanID, ParentID: parentID, Name: name})
}

func (r *recordingRenderer) OnStageLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logs == nil {
		r.logs = make(map[string][]byte)
	}
	r.logs[spanID] = append(r.logs[spanID], data...)
}

func (r *recordingRenderer) OnStageComplete(spanID string, _ time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completes = append(r.completes, stageEvent{SpanID: spanID, Err: err})
}

func (r *recordingRenderer) logFor(spanID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.logs[spanID])
}
