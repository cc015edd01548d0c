// Package installer drives a single resolved plan through the install
// stages: fetch, verify, build, place and test.
package installer

import (
	"bytes"
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options tune an Installer.
type Options struct {
	// WorkDir is the parent of per-install scratch directories.
	WorkDir      string
	FetchTimeout time.Duration
	TestTimeout  time.Duration
	// LogOutput mirrors build and test output to the logger in addition to
	// the stage span.
	LogOutput bool
}

// OptionsFromSettings returns the installer options for s.
func OptionsFromSettings(s domain.Settings) Options {
	return Options{
		WorkDir:      s.WorkDir,
		FetchTimeout: s.FetchTimeout,
		TestTimeout:  s.TestTimeout,
	}
}

// Installer executes install plans.
type Installer struct {
	fetcher  ports.Fetcher
	digester ports.Digester
	unpacker ports.Unpacker
	finder   ports.BinaryFinder
	placer   ports.Placer
	executor ports.Executor
	logger   ports.Logger
	tracer   ports.Tracer
	opts     Options
}

// New creates a new Installer with the given dependencies.
func New(
	fetcher ports.Fetcher,
	digester ports.Digester,
	unpacker ports.Unpacker,
	finder ports.BinaryFinder,
	placer ports.Placer,
	executor ports.Executor,
	logger ports.Logger,
	tracer ports.Tracer,
	opts Options,
) *Installer {
	return &Installer{
		fetcher:  fetcher,
		digester: digester,
		unpacker: unpacker,
		finder:   finder,
		placer:   placer,
		executor: executor,
		logger:   logger,
		tracer:   tracer,
		opts:     opts,
	}
}

// WithTracer returns a copy of the installer reporting to t.
func (i *Installer) WithTracer(t ports.Tracer) *Installer {
	c := *i
	c.tracer = t
	return &c
}

// WithOptions returns a copy of the installer using opts.
func (i *Installer) WithOptions(opts Options) *Installer {
	c := *i
	c.opts = opts
	return &c
}

// run holds the state of one Install call.
type run struct {
	*Installer
	plan     domain.InstallPlan
	work     string
	artifact string
	stageDir string
	srcRoot  string
	product  string
	result   domain.InstallResult
}

// Install runs plan to completion. On failure the returned result carries the
// failed status and the stage reached, and the error is a *domain.StageError.
// The scratch directory is removed on every exit path.
func (i *Installer) Install(ctx context.Context, plan domain.InstallPlan) (domain.InstallResult, error) {
	ctx, span := i.tracer.Start(ctx, "install "+plan.Package)
	defer span.End()

	span.SetAttribute("package", plan.Package)
	span.SetAttribute("version", plan.Version)
	span.SetAttribute("platform", string(plan.Platform))
	span.SetAttribute("kind", string(plan.Variant.Kind()))

	r := &run{
		Installer: i,
		plan:      plan,
		result: domain.InstallResult{
			Package: plan.Package,
			Version: plan.Version,
			Stage:   domain.StageFetch,
		},
	}

	if err := r.exec(ctx); err != nil {
		span.RecordError(err)
		r.result.Status = domain.FailureStatus(r.result.Stage)
		return r.result, &domain.StageError{Package: plan.Package, Stage: r.result.Stage, Err: err}
	}

	r.result.Status = domain.StatusSucceeded
	r.result.Stage = domain.StageDone
	r.result.InstalledPath = plan.Destination()
	return r.result, nil
}

func (r *run) exec(ctx context.Context) error {
	if r.opts.WorkDir != "" {
		if err := os.MkdirAll(r.opts.WorkDir, domain.DirPerm); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create work directory"), "path", r.opts.WorkDir)
		}
	}

	work, err := os.MkdirTemp(r.opts.WorkDir, "keg-"+r.plan.Package+"-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create work directory")
	}
	defer os.RemoveAll(work) //nolint:errcheck // Best effort cleanup

	r.work = work
	r.artifact = filepath.Join(work, domain.ArtifactFileName)
	r.stageDir = filepath.Join(work, domain.StageDirName)

	stages := []struct {
		stage domain.Stage
		fn    func(context.Context, ports.Span) error
		skip  bool
	}{
		{stage: domain.StageFetch, fn: r.fetch},
		{stage: domain.StageVerify, fn: r.verify},
		{stage: domain.StageBuild, fn: r.build, skip: r.plan.Variant.Kind() != domain.KindSourceArchive},
		{stage: domain.StagePlace, fn: r.place},
		{stage: domain.StageTest, fn: r.test},
	}

	for _, s := range stages {
		if s.skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStage(ctx, s.stage, s.fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) runStage(ctx context.Context, stage domain.Stage, fn func(context.Context, ports.Span) error) error {
	r.result.Stage = stage

	ctx, span := r.tracer.Start(ctx, r.plan.Package+":"+string(stage))
	defer span.End()

	if err := fn(ctx, span); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *run) fetch(ctx context.Context, span ports.Span) error {
	if r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
	}

	span.SetAttribute("url", r.plan.Variant.URL)

	f, err := os.OpenFile(r.artifact, os.O_CREATE|os.O_EXCL|os.O_WRONLY, domain.PrivateFilePerm)
	if err != nil {
		return &domain.FetchError{URL: r.plan.Variant.URL, Err: err}
	}

	n, err := r.fetcher.Fetch(ctx, r.plan.Variant.URL, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = &domain.FetchError{URL: r.plan.Variant.URL, Err: closeErr}
	}
	if err != nil {
		return err
	}

	span.SetAttribute("bytes", n)
	return nil
}

func (r *run) verify(_ context.Context, span ports.Span) error {
	expected := r.plan.Variant.Checksum
	span.SetAttribute("algorithm", expected.Algorithm)

	actual, err := r.digester.Digest(r.artifact, expected.Algorithm)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(actual), []byte(expected.Hex)) != 1 {
		return &domain.VerificationError{URL: r.plan.Variant.URL, Expected: expected, Actual: actual}
	}
	return nil
}

func (r *run) build(ctx context.Context, span ports.Span) error {
	if err := r.unpack(ctx); err != nil {
		return err
	}

	for _, tool := range r.plan.Requires {
		if _, err := exec.LookPath(tool); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrMissingBuildTool, err.Error()), "tool", tool)
		}
	}

	if err := os.MkdirAll(r.stageDir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create staging prefix"), "path", r.stageDir)
	}

	vars := map[string]string{
		"prefix":  r.stageDir,
		"version": r.plan.Version,
		"name":    r.plan.Package,
	}
	env := []string{
		"PREFIX=" + r.stageDir,
		"KEG_VERSION=" + r.plan.Version,
		"KEG_NAME=" + r.plan.Package,
	}

	for idx, raw := range r.plan.Variant.Build {
		step := raw.Expand(vars)
		fmt.Fprintf(span, "$ %s\n", step.Label()) //nolint:errcheck // Progress output

		code, err := r.executor.Run(ctx, &ports.Command{
			Argv:   step.Argv,
			Line:   step.Line,
			Script: step.Script,
			Dir:    r.srcRoot,
			Env:    env,
			Stdout: span,
			Stderr: span,
			Quiet:  !r.opts.LogOutput,
		})
		if err != nil {
			return &domain.BuildError{Step: idx, Name: raw.Label(), ExitCode: code, Err: err}
		}
	}

	product, err := r.finder.Find(r.plan.Binary, filepath.Join(r.stageDir, domain.BinDirName), r.stageDir, r.srcRoot)
	if err != nil {
		return err
	}
	r.product = product
	return nil
}

func (r *run) unpack(ctx context.Context) error {
	root, err := r.unpacker.Unpack(ctx, r.artifact, filepath.Join(r.work, domain.SourceDirName), r.plan.Binary)
	if err != nil {
		return err
	}
	r.srcRoot = root
	return nil
}

func (r *run) place(ctx context.Context, span ports.Span) error {
	dest := r.plan.Destination()
	span.SetAttribute("destination", dest)

	if r.product == "" {
		if err := r.unpack(ctx); err != nil {
			return &domain.PlaceError{Path: dest, Err: err}
		}
		product, err := r.finder.Find(r.plan.Binary, r.srcRoot)
		if err != nil {
			return &domain.PlaceError{Path: dest, Err: err}
		}
		r.product = product
	}

	changed, err := r.placer.Place(ctx, r.product, dest)
	if err != nil {
		return err
	}

	r.result.Unchanged = !changed
	span.SetAttribute("unchanged", !changed)
	if !changed {
		r.logger.Info(fmt.Sprintf("%s %s is already installed at %s", r.plan.Package, r.plan.Version, dest))
	}
	return nil
}

func (r *run) test(ctx context.Context, span ports.Span) error {
	t := r.plan.Test
	if t == nil {
		span.SetAttribute("skipped", true)
		r.logger.Warn(fmt.Sprintf("%s has no acceptance test, skipping", r.plan.Package))
		return nil
	}

	if r.opts.TestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.TestTimeout)
		defer cancel()
	}

	argv := append([]string{r.plan.Destination()}, t.Args...)
	var stdout bytes.Buffer

	code, err := r.executor.Run(ctx, &ports.Command{
		Argv:   argv,
		Dir:    r.work,
		Stdin:  strings.NewReader(t.Stdin),
		Stdout: io.MultiWriter(&stdout, span),
		Stderr: span,
		Quiet:  !r.opts.LogOutput,
	})
	r.result.TestOutput = stdout.Bytes()

	if err != nil {
		return &domain.TestError{
			Expected: t.ExpectedStdout,
			Actual:   stdout.String(),
			ExitCode: code,
			Err:      err,
		}
	}

	if actual := stdout.String(); actual != t.ExpectedStdout {
		return &domain.TestError{
			Expected: t.ExpectedStdout,
			Actual:   actual,
			Diff:     udiff.Unified("expected", "actual", t.ExpectedStdout, actual),
		}
	}
	return nil
}
