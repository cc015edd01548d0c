// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/keg/internal/ui/style"
	"go.trai.ch/zerr"
)

// ErrorEntry is one link of an error chain as printed by Logger.Error.
type ErrorEntry struct {
	Message string
	// Metadata is nil for errors that are not zerr errors.
	Metadata map[string]any
}

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	jsonMode bool
	output   io.Writer
}

// New creates a new Logger instance.
func New() ports.Logger {
	return &Logger{
		logger: slog.New(newHandler(os.Stderr, false)),
		output: os.Stderr,
	}
}

func newHandler(w io.Writer, jsonMode bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if jsonMode {
		return slog.NewJSONHandler(w, opts)
	}
	return NewPrettyHandler(w, opts)
}

// SetOutput updates the logger's output destination.
// It preserves the current JSON mode setting.
// If w is nil, os.Stderr is used as the default.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.logger = slog.New(newHandler(w, l.jsonMode))
}

// SetJSON switches between JSON and pretty logging.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jsonMode = enable
	w := l.output
	if w == nil {
		w = os.Stderr
	}
	l.logger = slog.New(newHandler(w, enable))
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs an error along with its cause chain.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.jsonMode {
		msg, attrs := failureAttrs(err)
		l.logger.Error(msg, append(attrs, "error", err)...)
		return
	}

	l.logger.Error(formatErrorEntries(collectErrorEntries(err)))
}

// failureAttrs describes where an install stopped, for structured output.
func failureAttrs(err error) (string, []any) {
	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) {
		return "operation failed", nil
	}

	attrs := []any{AttrPackage, stageErr.Package, AttrStage, string(stageErr.Stage)}

	var buildErr *domain.BuildError
	if errors.As(err, &buildErr) {
		attrs = append(attrs, "step", buildErr.Step, "step_name", buildErr.Name, "exit_code", buildErr.ExitCode)
	}
	var testErr *domain.TestError
	if errors.As(err, &testErr) && testErr.ExitCode != 0 {
		attrs = append(attrs, "exit_code", testErr.ExitCode)
	}
	return "install failed", attrs
}

// messager describes an error that can report its own message without the
// chain, as zerr errors and domain.StageError do.
type messager interface {
	Message() string
}

// collectErrorEntries walks the chain of errors that report their own
// message. The first other error ends the chain with its full message.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	var pending map[string]any

	for current := err; current != nil; current = errors.Unwrap(current) {
		m, ok := current.(messager) //nolint:errorlint // only the head of the chain is inspected
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error(), Metadata: pending})
			break
		}

		var meta map[string]any
		if z, ok := current.(*zerr.Error); ok { //nolint:errorlint // same as above
			meta = z.Metadata()
		}

		if m.Message() == "" {
			// metadata-only wrapper, fold into the neighbouring entry
			if n := len(entries); n > 0 && entries[n-1].Metadata == nil {
				entries[n-1].Metadata = meta
			} else if n > 0 {
				mergeMetadata(entries[n-1].Metadata, meta)
			} else {
				pending = meta
			}
			continue
		}

		if pending != nil {
			if meta == nil {
				meta = pending
			} else {
				mergeMetadata(meta, pending)
			}
			pending = nil
		}
		entries = append(entries, ErrorEntry{Message: m.Message(), Metadata: meta})
	}

	return entries
}

func mergeMetadata(dst, src map[string]any) {
	if dst == nil {
		return
	}
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

func formatErrorEntries(entries []ErrorEntry) string {
	lines := make([]string, 0, len(entries)*2)

	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")

		head, indent := "Error: ", "       "
		if i > 0 {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			head, indent = "    "+style.Arrow+" ", "      "
		}

		lines = append(lines, head+msgLines[0])
		for _, line := range msgLines[1:] {
			lines = append(lines, indent+line)
		}

		keys := make([]string, 0, len(entry.Metadata))
		for k := range entry.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, k, entry.Metadata[k]))
		}
	}

	return strings.Join(lines, "\n")
}
