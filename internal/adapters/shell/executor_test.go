package shell_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/adapters/shell"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/keg/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func TestExecutor_Run_Argv(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info("hello world").Times(1)

	executor := shell.NewExecutor(logger)

	var stdout bytes.Buffer
	code, err := executor.Run(context.Background(), &ports.Command{
		Argv:   []string{"echo", "hello world"},
		Dir:    t.TempDir(),
		Stdout: &stdout,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello world\n", stdout.String())
}

func TestExecutor_Run_LineQuoting(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	dir := t.TempDir()
	executor := shell.NewExecutor(logger)

	var stdout bytes.Buffer
	code, err := executor.Run(context.Background(), &ports.Command{
		Line:   `printf '%s|%s' "a b" $KEG_NAME`,
		Dir:    dir,
		Env:    []string{"KEG_NAME=jg"},
		Stdout: &stdout,
		Quiet:  true,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "a b|jg", stdout.String())
}

func TestExecutor_Run_Script(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	dir := t.TempDir()
	executor := shell.NewExecutor(logger)

	code, err := executor.Run(context.Background(), &ports.Command{
		Script: "mkdir -p out\nif [ -n \"$PREFIX\" ]; then echo \"$PREFIX\" > out/prefix; fi",
		Dir:    dir,
		Env:    []string{"PREFIX=/opt/keg"},
		Quiet:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(filepath.Join(dir, "out", "prefix"))
	require.NoError(t, err)
	assert.Equal(t, "/opt/keg\n", string(data))
}

func TestExecutor_Run_ScriptExitStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	executor := shell.NewExecutor(logger)

	code, err := executor.Run(context.Background(), &ports.Command{
		Script: "exit 3",
		Dir:    t.TempDir(),
		Quiet:  true,
	})
	require.Error(t, err)
	assert.Equal(t, 3, code)
	assert.ErrorIs(t, err, domain.ErrCommandFailed)
}

func TestExecutor_Run_InvalidScript(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	executor := shell.NewExecutor(logger)

	code, err := executor.Run(context.Background(), &ports.Command{
		Script: "if then fi (",
		Dir:    t.TempDir(),
		Quiet:  true,
	})
	require.Error(t, err)
	assert.Equal(t, -1, code)
	assert.ErrorIs(t, err, domain.ErrCommandFailed)
}

func TestExecutor_Run_Failure(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Error(gomock.Any()).Times(1)

	executor := shell.NewExecutor(logger)

	code, err := executor.Run(context.Background(), &ports.Command{
		Argv: []string{"sh", "-c", "echo broken >&2; exit 7"},
		Dir:  t.TempDir(),
	})

	require.Error(t, err)
	assert.Equal(t, 7, code)
	assert.ErrorIs(t, err, domain.ErrCommandFailed)

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, 7, zErr.Metadata()["exit_code"])
}

func TestExecutor_Run_CommandNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	executor := shell.NewExecutor(logger)

	code, err := executor.Run(context.Background(), &ports.Command{
		Argv:  []string{"keg-command-that-does-not-exist"},
		Dir:   t.TempDir(),
		Quiet: true,
	})

	require.Error(t, err)
	assert.Equal(t, -1, code)
	assert.ErrorIs(t, err, domain.ErrCommandFailed)
}

func TestExecutor_Run_Stdin(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	executor := shell.NewExecutor(logger)

	var stdout bytes.Buffer
	_, err := executor.Run(context.Background(), &ports.Command{
		Argv:   []string{"cat"},
		Dir:    t.TempDir(),
		Stdin:  strings.NewReader(`{"name":"jeff goldblum"}`),
		Stdout: &stdout,
		Quiet:  true,
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"jeff goldblum"}`, stdout.String())
}

func TestExecutor_Run_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	executor := shell.NewExecutor(logger)

	for _, cmd := range []*ports.Command{
		{},
		{Line: "   "},
		{Line: `""`},
	} {
		_, err := executor.Run(context.Background(), cmd)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmptyCommand)
	}
}

func TestExecutor_Run_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	executor := shell.NewExecutor(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := executor.Run(ctx, &ports.Command{
		Argv:  []string{"sleep", "10"},
		Dir:   t.TempDir(),
		Quiet: true,
	})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
