// Package main is the entry point for the keg package installer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/cmd/keg/commands"
	"go.trai.ch/keg/internal/app"
	"go.trai.ch/keg/internal/core/domain"
	_ "go.trai.ch/keg/internal/wiring"
)

// Exit codes reported by keg.
const (
	exitOK = iota
	exitUsage
	exitFetch
	exitBuild
	exitTest
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, func(ctx context.Context) (*app.Components, func(), error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, func() {}, err
	}))
}

func run(
	ctx context.Context,
	args []string,
	stderr io.Writer,
	provider ComponentProvider,
	opts ...func(*app.App),
) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, cleanup, err := provider(ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return exitUsage
	}
	defer cleanup()

	for _, opt := range opts {
		opt(components.App)
	}

	// 2. Interface - CLI
	cli := commands.New(components.App)
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps the stage an install stopped at to the process exit code.
// Everything that fails before an install starts exits with exitUsage.
func exitCode(err error) int {
	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) {
		return exitUsage
	}

	switch stageErr.Stage {
	case domain.StageFetch, domain.StageVerify:
		return exitFetch
	case domain.StageBuild, domain.StagePlace:
		return exitBuild
	case domain.StageTest:
		return exitTest
	default:
		return exitUsage
	}
}
