package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/adapters/logger"
)

func newTestHandler(t *testing.T, level slog.Level) (*logger.PrettyHandler, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	return logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: level}), buf
}

func TestPrettyHandler_Handle_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		msg        string
		args       []any
		goldenName string
	}{
		{
			name:       "info level",
			level:      slog.LevelInfo,
			msg:        "jg 0.1.4 is already installed at /opt/keg/bin/jg",
			args:       []any{logger.AttrPackage, "jg", logger.AttrStage, "place"},
			goldenName: "handler_info",
		},
		{
			name:       "warn level",
			level:      slog.LevelWarn,
			msg:        "no acceptance test, skipping",
			args:       []any{logger.AttrPackage, "jg"},
			goldenName: "handler_warn",
		},
		{
			name:  "error level",
			level: slog.LevelError,
			msg:   "build step failed",
			args: []any{
				logger.AttrPackage, "jg",
				logger.AttrStage, "build",
				"step", 1,
				"step_name", "make install",
				"exit_code", 2,
			},
			goldenName: "handler_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, buf := newTestHandler(t, slog.LevelInfo)
			slog.New(handler).Log(t.Context(), tt.level, tt.msg, tt.args...)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestPrettyHandler_DebugFiltered(t *testing.T) {
	handler, buf := newTestHandler(t, slog.LevelInfo)
	slog.New(handler).Debug("hidden")

	assert.Empty(t, buf.String())
	assert.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelWarn))
}

func TestPrettyHandler_Attrs(t *testing.T) {
	tests := []struct {
		name  string
		build func(*logger.PrettyHandler) slog.Handler
		args  []any
		want  string
	}{
		{
			name:  "record attrs",
			build: func(h *logger.PrettyHandler) slog.Handler { return h },
			args:  []any{"url", "https://example.com/jg.tar.gz", "status", 404},
			want:  "message url=https://example.com/jg.tar.gz status=404\n",
		},
		{
			name:  "package and stage become a label",
			build: func(h *logger.PrettyHandler) slog.Handler { return h },
			args:  []any{"stage", "fetch", "package", "jg", "bytes", 12},
			want:  "[jg:fetch] message bytes=12\n",
		},
		{
			name: "handler attrs come first",
			build: func(h *logger.PrettyHandler) slog.Handler {
				return h.WithAttrs([]slog.Attr{slog.String("package", "jg"), slog.String("version", "0.1.3")})
			},
			args: []any{"stage", "build"},
			want: "[jg:build] message version=0.1.3\n",
		},
		{
			name:  "values with spaces are quoted",
			build: func(h *logger.PrettyHandler) slog.Handler { return h },
			args:  []any{"step_name", "make install", "stdin", ""},
			want:  "message step_name=\"make install\" stdin=\"\"\n",
		},
		{
			name: "group prefixes keys",
			build: func(h *logger.PrettyHandler) slog.Handler {
				return h.WithGroup("install").WithGroup("step")
			},
			args: []any{"package", "jg", "index", 1},
			want: "message install.step.package=jg install.step.index=1\n",
		},
		{
			name: "empty group is ignored",
			build: func(h *logger.PrettyHandler) slog.Handler {
				return h.WithGroup("")
			},
			args: []any{"key", "val"},
			want: "message key=val\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, buf := newTestHandler(t, slog.LevelInfo)
			slog.New(tt.build(handler)).Info("message", tt.args...)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrettyHandler_NilWriter(t *testing.T) {
	require.NotPanics(t, func() {
		_ = logger.NewPrettyHandler(nil, nil)
	})
}

func TestPrettyHandler_Handle_ReturnsError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	handler := logger.NewPrettyHandler(&brokenWriter{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	record := slog.NewRecord(testTime, slog.LevelInfo, "this will fail to write", 0)

	assert.Error(t, handler.Handle(context.Background(), record))
}

// brokenWriter simulates a writer that always returns an error.
type brokenWriter struct{}

func (bw *brokenWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}

var testTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
