// Package app implements the application layer for keg.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/keg/internal/adapters/detector"
	"go.trai.ch/keg/internal/adapters/linear"
	"go.trai.ch/keg/internal/adapters/manifest"
	"go.trai.ch/keg/internal/adapters/telemetry"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/keg/internal/engine/installer"
	"go.trai.ch/keg/internal/engine/resolver"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	manifests ports.ManifestLoader
	settings  ports.SettingsLoader
	installer *installer.Installer
	tracer    *telemetry.OTelTracer
	logger    ports.Logger
	progress  io.Writer
}

// New creates a new App instance.
func New(
	manifests ports.ManifestLoader,
	settings ports.SettingsLoader,
	inst *installer.Installer,
	tracer *telemetry.OTelTracer,
	log ports.Logger,
) *App {
	return &App{
		manifests: manifests,
		settings:  settings,
		installer: inst,
		tracer:    tracer,
		logger:    log,
		progress:  os.Stderr,
	}
}

// WithProgressOutput sets where install progress is rendered.
// This is primarily used for testing.
func (a *App) WithProgressOutput(w io.Writer) *App {
	a.progress = w
	return a
}

// PlanOptions configure how package names are resolved.
type PlanOptions struct {
	// Version pins an exact version.
	Version string
	// Prefix overrides the configured destination prefix.
	Prefix string
	// Platform overrides the host platform.
	Platform string
	// FormulaDirs are searched after the configured formula path.
	FormulaDirs []string
}

// InstallOptions configuration for the Install method.
type InstallOptions struct {
	PlanOptions
	// Jobs bounds concurrent installs. Zero uses the configured value.
	Jobs int
	// JSONLogs switches the logger to JSON and streams process output
	// through it instead of the progress renderer.
	JSONLogs bool
	// Progress selects progress styling: "auto", "color" or "plain".
	Progress string
}

// Plan resolves a single package without installing it.
func (a *App) Plan(ctx context.Context, name string, opts PlanOptions) (domain.InstallPlan, error) {
	plans, _, err := a.resolve(ctx, []string{name}, opts)
	if err != nil {
		return domain.InstallPlan{}, err
	}
	return plans[0], nil
}

// Install resolves every name, then installs the distinct packages
// concurrently. Results are returned in argument order. The returned error is
// the first failure in argument order; later failures are logged.
//
//nolint:cyclop // orchestration function
func (a *App) Install(ctx context.Context, names []string, opts InstallOptions) ([]domain.InstallResult, error) {
	if len(names) == 0 {
		return nil, domain.ErrNoPackagesSpecified
	}

	names = dedupe(names)
	if opts.Version != "" && len(names) > 1 {
		return nil, zerr.With(zerr.Wrap(domain.ErrVersionWithManyPackages, "cannot pin a version"), "packages", names)
	}

	if opts.JSONLogs {
		if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
			l.SetJSON(true)
		}
	}

	plans, settings, err := a.resolve(ctx, names, opts.PlanOptions)
	if err != nil {
		return nil, err
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = settings.Jobs
	}

	instOpts := installer.OptionsFromSettings(settings)
	instOpts.LogOutput = opts.JSONLogs
	inst := a.installer.WithOptions(instOpts)

	var tracer ports.Tracer = a.tracer
	var renderer ports.Renderer
	if !opts.JSONLogs {
		r := linear.NewRenderer(a.progress, a.progress)
		if detector.ResolveMode(detector.DetectEnvironment(), opts.Progress) == detector.ModePlain {
			r = r.WithPlainOutput()
		}
		shutdown := setupOTel(telemetry.NewBridge(r))
		defer shutdown(ctx)

		tracer = a.tracer.WithRenderer(r)
		inst = inst.WithTracer(tracer)
		renderer = r

		if err := renderer.Start(ctx); err != nil {
			return nil, err
		}
	}

	tracer.EmitPlan(ctx, names)

	results := make([]domain.InstallResult, len(plans))
	errs := make([]error, len(plans))

	var g errgroup.Group
	g.SetLimit(max(jobs, 1))
	for i, plan := range plans {
		g.Go(func() error {
			results[i], errs[i] = inst.Install(ctx, plan)
			return nil
		})
	}
	_ = g.Wait()

	if renderer != nil {
		_ = renderer.Stop()
		_ = renderer.Wait()
	}

	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
			continue
		}
		a.logger.Error(err)
	}
	return results, first
}

// Lint parses every manifest document found at paths. A path may be a
// directory or a single file. Every invalid document is reported in the
// joined error; valid manifests are returned in path order.
func (a *App) Lint(ctx context.Context, paths []string) ([]domain.Manifest, error) {
	var files []string
	for _, p := range paths {
		found, err := manifestFiles(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	var valid []domain.Manifest
	var errs error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(file) //nolint:gosec // Path is supplied by the user
		if err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", file))
			continue
		}

		m, err := a.manifests.Parse(file, data)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		valid = append(valid, m)
	}

	return valid, errs
}

func manifestFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", path)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !manifest.IsManifestFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	return files, nil
}

// resolve loads settings and manifests once and resolves every name.
func (a *App) resolve(
	ctx context.Context,
	names []string,
	opts PlanOptions,
) ([]domain.InstallPlan, domain.Settings, error) {
	settings, err := a.settings.Load(ctx)
	if err != nil {
		return nil, domain.Settings{}, err
	}

	platform, err := targetPlatform(opts.Platform)
	if err != nil {
		return nil, domain.Settings{}, err
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = settings.Prefix
	}
	prefix, err = filepath.Abs(prefix)
	if err != nil {
		return nil, domain.Settings{}, zerr.With(zerr.Wrap(err, "invalid prefix"), "prefix", prefix)
	}

	dirs := slices.Concat(settings.FormulaPath, opts.FormulaDirs)
	manifests, err := a.manifests.Load(ctx, dirs)
	if err != nil {
		return nil, domain.Settings{}, err
	}

	plans := make([]domain.InstallPlan, 0, len(names))
	for _, name := range names {
		plan, err := resolver.Resolve(manifests, domain.Request{
			Package:  name,
			Version:  opts.Version,
			Platform: platform,
			Prefix:   prefix,
		})
		if err != nil {
			return nil, domain.Settings{}, err
		}
		plans = append(plans, plan)
	}

	return plans, settings, nil
}

func targetPlatform(name string) (domain.Platform, error) {
	if name == "" {
		return domain.HostPlatform()
	}
	return domain.ParsePlatform(name)
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// setupOTel installs a TracerProvider reporting to the bridge as the global
// provider. The returned function shuts it down and restores the previous one.
func setupOTel(bridge *telemetry.Bridge) func(context.Context) {
	prev := otel.GetTracerProvider()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bridge),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err) //nolint:errcheck // Best effort
		}
		otel.SetTracerProvider(prev)
	}
}
