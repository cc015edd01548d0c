// Package logger implements a logging adapter using log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"go.trai.ch/keg/internal/ui/output"
	"go.trai.ch/keg/internal/ui/style"
)

// Attribute keys rendered as a [package:stage] label instead of key=value.
const (
	AttrPackage = "package"
	AttrStage   = "stage"
)

// PrettyHandler is a custom slog.Handler that produces human-readable,
// colored output using the shared UI components.
type PrettyHandler struct {
	mu    *sync.Mutex
	out   *termenv.Output
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a new PrettyHandler writing to the provided writer.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level.Level()
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(level)

	return &PrettyHandler{
		mu:    &sync.Mutex{},
		out:   output.New(w),
		level: levelVar,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and outputs the log record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var msg, symbol string
	var color termenv.Color

	switch r.Level {
	case slog.LevelWarn:
		symbol = style.Warning + " "
		color = termenv.RGBColor(string(style.Yellow))
	case slog.LevelError:
		symbol = style.Cross + " "
		color = termenv.RGBColor(string(style.Red))
	default:
		color = termenv.RGBColor(string(style.Slate))
	}

	var pkg, stage string
	attrParts := make([]string, 0, len(h.attrs)+r.NumAttrs())
	add := func(attr slog.Attr) bool {
		if h.group == "" {
			switch attr.Key {
			case AttrPackage:
				pkg = attr.Value.String()
				return true
			case AttrStage:
				stage = attr.Value.String()
				return true
			}
		}
		attrParts = append(attrParts, formatAttr(h.group, attr))
		return true
	}
	for _, attr := range h.attrs {
		add(attr)
	}
	r.Attrs(add)

	if label := stageLabel(pkg, stage); label != "" {
		msg = symbol + label + " " + r.Message
	} else {
		msg = symbol + r.Message
	}
	if len(attrParts) > 0 {
		msg += " " + strings.Join(attrParts, " ")
	}

	styled := h.out.String(msg).Foreground(color)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.WriteString(styled.String() + "\n")

	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &PrettyHandler{
		mu:    h.mu,
		out:   h.out,
		level: h.level,
		attrs: newAttrs,
		group: h.group,
	}
}

// WithGroup returns a new Handler with the given group name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	if h.group != "" {
		name = h.group + "." + name
	}
	return &PrettyHandler{
		mu:    h.mu,
		out:   h.out,
		level: h.level,
		attrs: h.attrs,
		group: name,
	}
}

// stageLabel renders the package and stage the way progress lines do,
// e.g. [jg:build].
func stageLabel(pkg, stage string) string {
	switch {
	case pkg != "" && stage != "":
		return "[" + pkg + ":" + stage + "]"
	case pkg != "":
		return "[" + pkg + "]"
	case stage != "":
		return "[" + stage + "]"
	default:
		return ""
	}
}

// formatAttr formats a single attribute for output.
// If a group is set, the key is prefixed with the group name. Values with
// spaces or quotes are quoted.
func formatAttr(group string, attr slog.Attr) string {
	key := attr.Key
	if group != "" {
		key = group + "." + key
	}
	value := attr.Value.String()
	if value == "" || strings.ContainsAny(value, " \t\n\"=") {
		value = strconv.Quote(value)
	}
	return key + "=" + value
}
