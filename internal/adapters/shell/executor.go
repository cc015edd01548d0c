// Package shell runs build steps and acceptance tests as processes.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

// waitDelay bounds how long Run waits for output pipes after a cancelled
// process was killed.
const waitDelay = 2 * time.Second

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor. Argument vectors and command lines run
// through os/exec; scripts run in an embedded POSIX shell interpreter.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Run executes cmd and waits for it to complete.
func (e *Executor) Run(ctx context.Context, cmd *ports.Command) (int, error) {
	stdout := orDiscard(cmd.Stdout)
	stderr := orDiscard(cmd.Stderr)

	if !cmd.Quiet {
		// Combined writers:
		// 1. Structural Logger (info/error)
		// 2. Output Writers (Span, capture buffers)
		stdoutLog := &logWriter{logger: e.logger, level: "info"}
		stderrLog := &logWriter{logger: e.logger, level: "error"}
		defer func() {
			_ = stdoutLog.Close()
			_ = stderrLog.Close()
		}()
		stdout = io.MultiWriter(stdoutLog, stdout)
		stderr = io.MultiWriter(stderrLog, stderr)
	}

	env := resolveEnvironment(os.Environ(), cmd.Env)

	switch {
	case len(cmd.Argv) > 0:
		return runArgv(ctx, cmd.Argv, cmd, env, stdout, stderr)
	case strings.TrimSpace(cmd.Line) != "":
		argv, err := shell.Fields(cmd.Line, envLookup(env))
		if err != nil {
			return -1, zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "line", cmd.Line)
		}
		if len(argv) == 0 {
			return -1, zerr.With(zerr.Wrap(domain.ErrEmptyCommand, "line has no words"), "line", cmd.Line)
		}
		return runArgv(ctx, argv, cmd, env, stdout, stderr)
	case strings.TrimSpace(cmd.Script) != "":
		return runScript(ctx, cmd, env, stdout, stderr)
	default:
		return -1, domain.ErrEmptyCommand
	}
}

func runArgv(ctx context.Context, argv []string, cmd *ports.Command, env []string, stdout, stderr io.Writer) (int, error) {
	name := argv[0]

	// Resolve the executable path against the step environment
	executable := name
	if !strings.ContainsRune(name, filepath.Separator) && !strings.ContainsRune(name, '/') {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, argv[1:]...) //nolint:gosec // manifest provided command
	c.Args[0] = name
	c.Dir = cmd.Dir
	c.Env = env
	c.Stdin = cmd.Stdin
	c.Stdout = stdout
	c.Stderr = stderr
	c.WaitDelay = waitDelay

	if err := c.Run(); err != nil {
		// Capture exit code if possible
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return exitCode, commandErr(err, name, exitCode)
	}
	return 0, nil
}

func runScript(ctx context.Context, cmd *ports.Command, env []string, stdout, stderr io.Writer) (int, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(cmd.Script), "script")
	if err != nil {
		return -1, zerr.Wrap(domain.ErrCommandFailed, "invalid script: "+err.Error())
	}

	runner, err := interp.New(
		interp.Dir(cmd.Dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(cmd.Stdin, stdout, stderr),
	)
	if err != nil {
		return -1, zerr.Wrap(domain.ErrCommandFailed, err.Error())
	}

	if err := runner.Run(ctx, file); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return int(status), commandErr(err, "script", int(status))
		}
		return -1, commandErr(err, "script", -1)
	}
	return 0, nil
}

func commandErr(err error, name string, exitCode int) error {
	wrapped := zerr.Wrap(domain.ErrCommandFailed, err.Error())
	wrapped = zerr.With(wrapped, "command", name)
	return zerr.With(wrapped, "exit_code", exitCode)
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

type logWriter struct {
	logger ports.Logger
	level  string
	buf    []byte
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	// Scan for newlines
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}

		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	if w.level == "info" {
		w.logger.Info(msg)
	} else {
		w.logger.Error(zerr.New(msg))
	}
}

// resolveEnvironment layers the step environment over the process
// environment. The result is sorted by key.
func resolveEnvironment(sysEnv, stepEnv []string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(stepEnv))
	for _, list := range [][]string{sysEnv, stepEnv} {
		for _, entry := range list {
			if k, v, ok := strings.Cut(entry, "="); ok && k != "" {
				envMap[k] = v
			}
		}
	}

	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	result := make([]string, 0, len(keys))
	for _, k := range keys {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

func envLookup(env []string) func(string) string {
	return func(name string) string {
		for i := len(env) - 1; i >= 0; i-- {
			if k, v, ok := strings.Cut(env[i], "="); ok && k == name {
				return v
			}
		}
		return ""
	}
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	path := envLookup(env)("PATH")
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
