// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"
)

// Command describes a process to run. Exactly one of Argv, Line or Script is set.
type Command struct {
	// Argv is a literal argument vector.
	Argv []string
	// Line is split into words with POSIX shell quoting rules.
	Line string
	// Script is run by an embedded POSIX shell interpreter.
	Script string

	// Dir is the working directory.
	Dir string
	// Env holds KEY=VALUE pairs layered over the process environment.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Quiet stops output from being mirrored to the logger.
	Quiet bool
}

// Executor runs processes.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Run executes cmd and waits for it to finish. It returns the exit code;
	// a non-zero exit is also reported as an error wrapping
	// domain.ErrCommandFailed. A process that could not start reports -1.
	Run(ctx context.Context, cmd *Command) (int, error)
}
