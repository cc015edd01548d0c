// Package linear provides a synchronous, line-buffered renderer for install
// progress.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/keg/internal/ui/output"
	"go.trai.ch/keg/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer implements ports.Renderer with chronological, prefixed output.
// Stage output lines go to logs; plan and stage status lines go to status.
type Renderer struct {
	logs   io.Writer
	status io.Writer
	output *termenv.Output

	mu     sync.Mutex
	stages map[string]*stageState // spanID -> stage
}

type stageState struct {
	name      string
	root      bool
	startTime time.Time
	partial   bytes.Buffer
}

// NewRenderer creates a new Renderer. Nil writers default to os.Stderr.
func NewRenderer(logs, status io.Writer) *Renderer {
	if logs == nil {
		logs = os.Stderr
	}
	if status == nil {
		status = os.Stderr
	}

	return &Renderer{
		logs:   logs,
		status: status,
		output: output.NewWithProfile(status, output.ColorProfileANSI),
		stages: make(map[string]*stageState),
	}
}

// WithPlainOutput disables colour on status lines.
func (r *Renderer) WithPlainOutput() *Renderer {
	r.output = output.NewWithProfile(r.status, func() termenv.Profile { return termenv.Ascii })
	return r
}

// Start is a no-op for linear renderer (synchronous).
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop flushes partial lines of stages that never completed.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stage := range r.stages {
		r.flushPartialLocked(stage)
	}
	return nil
}

// Wait is a no-op for linear renderer (synchronous).
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the packages about to be installed.
func (r *Renderer) OnPlanEmit(packages []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.status, "Installing %d package(s): %s\n",
		len(packages), strings.Join(packages, ", "))
}

// OnStageStart records the span. Root spans announce themselves.
func (r *Renderer) OnStageStart(spanID, parentID, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stage := &stageState{
		name:      name,
		root:      parentID == "",
		startTime: startTime,
	}
	r.stages[spanID] = stage

	if stage.root {
		arrow := r.output.String("==>").Foreground(r.color(style.Iris)).Bold().String()
		_, _ = fmt.Fprintf(r.status, "%s %s\n", arrow, name)
	}
}

// OnStageLog prints complete lines with the stage prefix and keeps any
// trailing partial line for the next call.
func (r *Renderer) OnStageLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stage, ok := r.stages[spanID]
	if !ok {
		return
	}

	stage.partial.Write(data)
	for {
		i := bytes.IndexByte(stage.partial.Bytes(), '\n')
		if i < 0 {
			break
		}
		r.printLineLocked(stage.name, stage.partial.Next(i+1))
	}
}

// OnStageComplete prints the outcome of a stage. Root spans end silently;
// their outcome is reported by the caller.
func (r *Renderer) OnStageComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stage, ok := r.stages[spanID]
	if !ok {
		return
	}
	delete(r.stages, spanID)

	r.flushPartialLocked(stage)
	if stage.root {
		return
	}

	duration := endTime.Sub(stage.startTime).Round(time.Millisecond)
	prefix := r.output.String(fmt.Sprintf("[%s]", stage.name)).Faint().String()

	if err != nil {
		symbol := r.output.String(style.Cross).Foreground(r.color(style.Red)).String()
		_, _ = fmt.Fprintf(r.status, "%s %s failed after %v: %v\n", prefix, symbol, duration, err)
		return
	}

	symbol := r.output.String(style.Check).Foreground(r.color(style.Green)).String()
	_, _ = fmt.Fprintf(r.status, "%s %s %v\n", prefix, symbol, duration)
}

func (r *Renderer) color(c lipgloss.Color) termenv.Color {
	return r.output.Color(string(c))
}

// flushPartialLocked must be called with r.mu held.
func (r *Renderer) flushPartialLocked(stage *stageState) {
	if stage.partial.Len() == 0 {
		return
	}
	r.printLineLocked(stage.name, stage.partial.Next(stage.partial.Len()))
}

// printLineLocked must be called with r.mu held.
func (r *Renderer) printLineLocked(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}

	_, _ = fmt.Fprintf(r.logs, "[%s] %s\n", name, line)
}
