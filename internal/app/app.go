// Package app implements the application layer for knot.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.trai.ch/knot/internal/adapters/telemetry"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports"
	"go.trai.ch/knot/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	fetchers     ports.FetcherFactory
	manifests    ports.ManifestParser
	lockfiles    ports.LockfileCodec
	workspace    ports.Workspace
	store        ports.ContentStore
	tracer       ports.Tracer
	logger       ports.Logger
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	fetchers ports.FetcherFactory,
	manifests ports.ManifestParser,
	lockfiles ports.LockfileCodec,
	workspace ports.Workspace,
	store ports.ContentStore,
	tracer ports.Tracer,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		fetchers:     fetchers,
		manifests:    manifests,
		lockfiles:    lockfiles,
		workspace:    workspace,
		store:        store,
		tracer:       tracer,
		logger:       log,
	}
}

// Options are the command line settings shared by every command. Flags that
// are set override knot.yaml.
type Options struct {
	// Dir is the package directory. Empty means the working directory.
	Dir string

	Environment     string
	Dev             bool
	StrictAddresses bool
	StrictFetch     bool
	JSONLogs        bool
	Trace           bool
}

// session is one configured run: the merged configuration, a fetcher and a
// resolver bound to it, and the root coordinate.
type session struct {
	cfg      domain.Config
	dir      string
	root     domain.GitCoordinate
	opts     resolver.Options
	resolver *resolver.Resolver
	shutdown func(context.Context) error
}

func (s *session) close(ctx context.Context) {
	if s.shutdown != nil {
		_ = s.shutdown(ctx)
	}
}

type jsonSwitch interface {
	SetJSON(enable bool)
}

func (a *App) open(opts Options) (*session, error) {
	if sw, ok := a.logger.(jsonSwitch); ok && opts.JSONLogs {
		sw.SetJSON(true)
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "resolve package directory"), "path", dir)
	}

	cfg, err := a.configLoader.Load(abs)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if opts.Environment != "" {
		cfg.Environment = opts.Environment
	}
	cfg.Resolution.Dev = cfg.Resolution.Dev || opts.Dev
	cfg.Resolution.StrictAddresses = cfg.Resolution.StrictAddresses || opts.StrictAddresses
	cfg.Resolution.StrictFetch = cfg.Resolution.StrictFetch || opts.StrictFetch

	fetcher, err := a.fetchers.New(cfg.Fetch)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create fetcher")
	}

	s := &session{
		cfg:      cfg,
		dir:      abs,
		root:     domain.GitCoordinate{Repo: domain.LocalRepoPrefix + filepath.ToSlash(abs)},
		resolver: resolver.New(fetcher, a.manifests, a.lockfiles, a.tracer, a.logger),
		opts: resolver.Options{
			Environment:     cfg.Environment,
			Dev:             cfg.Resolution.Dev,
			StrictAddresses: cfg.Resolution.StrictAddresses,
			StrictFetch:     cfg.Resolution.StrictFetch,
		},
	}
	if cfg.Resolution.ImplicitDeps {
		s.opts.System = cfg.SystemDependencies(cfg.Environment)
	}
	if opts.Trace {
		s.shutdown = telemetry.InstallReporter(a.logger)
	}
	return s, nil
}

func (a *App) resolve(ctx context.Context, s *session) (*resolver.Result, error) {
	res, err := s.resolver.Resolve(ctx, s.root, s.opts)
	if err != nil {
		return nil, zerr.With(err, "env", s.cfg.Environment)
	}

	source := "manifests"
	if res.FromLockfile {
		source = domain.LockfileName
	}
	a.logger.Info(fmt.Sprintf("resolved %d packages for %s from %s", res.Graph.Len(), res.Environment, source))
	for _, o := range res.Outcomes {
		if o.Missing() {
			a.logger.Warn(fmt.Sprintf("%s: dependency %s %s: %v", o.From, o.Alias, o.Status, o.Reason))
		}
	}
	return res, nil
}

// Resolve resolves the package and writes the compiler input JSON to out,
// or to w when out is empty. Move.lock is refreshed when configured to.
func (a *App) Resolve(ctx context.Context, opts Options, out string, w io.Writer) error {
	s, err := a.open(opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	res, err := a.resolve(ctx, s)
	if err != nil {
		return err
	}

	data, err := res.Compilation.MarshalCompilerInput()
	if err != nil {
		return err
	}
	if out == "" {
		if _, err := w.Write(data); err != nil {
			return err
		}
	} else {
		if err := a.workspace.WriteFile(out, data); err != nil {
			return err
		}
		a.logger.Info("wrote compiler input to " + out)
	}

	if s.cfg.Lockfile.Write {
		_, err = a.writeLockfile(ctx, s, res)
	}
	return err
}

// Lock resolves the package and writes Move.lock. It returns the lockfile path.
func (a *App) Lock(ctx context.Context, opts Options) (string, error) {
	s, err := a.open(opts)
	if err != nil {
		return "", err
	}
	defer s.close(ctx)

	res, err := a.resolve(ctx, s)
	if err != nil {
		return "", err
	}
	return a.writeLockfile(ctx, s, res)
}

func (a *App) writeLockfile(ctx context.Context, s *session, res *resolver.Result) (string, error) {
	_, span := a.tracer.Start(ctx, "lock")
	defer span.End()

	path := filepath.Join(s.dir, domain.LockfileName)
	text, err := a.lockfiles.Encode(res.Lockfile())
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	current, ok, err := a.workspace.ReadFile(path)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if ok && current == text {
		a.logger.Info(domain.LockfileName + " is up to date")
		return path, nil
	}

	if err := a.workspace.WriteFile(path, []byte(text)); err != nil {
		span.RecordError(err)
		return "", err
	}
	a.logger.Info(fmt.Sprintf("wrote %s for %s", domain.LockfileName, res.Environment))
	return path, nil
}

// Graph resolves the package and returns its compile order view.
func (a *App) Graph(ctx context.Context, opts Options) (*GraphView, error) {
	s, err := a.open(opts)
	if err != nil {
		return nil, err
	}
	defer s.close(ctx)

	res, err := a.resolve(ctx, s)
	if err != nil {
		return nil, err
	}
	return NewGraphView(res), nil
}

// Verify checks Move.lock against the current manifests. The report is
// returned with ErrLockfileStale when any pin no longer matches.
func (a *App) Verify(ctx context.Context, opts Options) (*resolver.Report, error) {
	s, err := a.open(opts)
	if err != nil {
		return nil, err
	}
	defer s.close(ctx)

	report, err := s.resolver.ValidatePins(ctx, s.root, s.opts)
	if err != nil {
		return nil, err
	}
	if report.Stale {
		return report, zerr.With(zerr.Wrap(domain.ErrLockfileStale, report.Reason), "env", report.Environment)
	}
	return report, nil
}

// Clean removes the fetch cache configured for the package directory.
func (a *App) Clean(_ context.Context, opts Options) error {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	cfg, err := a.configLoader.Load(dir)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	root := cfg.Fetch.CacheDir
	if root == "" {
		root = domain.DefaultFetchCachePath()
	}
	a.logger.Info(fmt.Sprintf("removing fetch cache %s...", root))
	if err := a.store.Clear(root); err != nil {
		return zerr.Wrap(err, "failed to remove fetch cache")
	}
	a.logger.Info("removed fetch cache")
	return nil
}
