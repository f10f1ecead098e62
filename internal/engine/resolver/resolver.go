// Package resolver builds the resolved package graph of a Move package.
//
// Resolution runs in phases: the root package is loaded, its Move.lock (when
// present and still valid) drives graph construction, otherwise manifests are
// traversed depth-first. Named addresses are then unified and compile units
// assembled.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports"
	"go.trai.ch/knot/internal/engine/compile"
	"go.trai.ch/zerr"
)

// Options controls one resolution.
type Options struct {
	Environment     string
	Dev             bool
	StrictAddresses bool
	StrictFetch     bool
	// System lists the implicit dependencies added to the root. Nil disables them.
	System []domain.Dependency
}

// Result is the outcome of a resolution.
type Result struct {
	Environment string

	Graph       *domain.DependencyGraph
	Resolved    *domain.ResolvedGraph
	Compilation *compile.Compilation
	Outcomes    []domain.EdgeOutcome
	Conflicts   []domain.AddressConflict

	// Previous is the root's decoded Move.lock, nil when there was none.
	Previous domain.Lockfile
	// FromLockfile is set when the graph was built from Previous.
	FromLockfile bool
	// Stale is set when Previous no longer matched the manifests.
	Stale bool
}

// Lockfile returns the V4 lockfile describing the result. Pins of other
// environments in Previous are copied through.
func (r *Result) Lockfile() *domain.V4Lockfile {
	return domain.WithEnvironment(r.Previous, r.Environment, domain.BuildPins(r.Graph, r.Environment))
}

// Resolver resolves packages through a fetcher.
type Resolver struct {
	fetcher   ports.Fetcher
	manifests ports.ManifestParser
	lockfiles ports.LockfileCodec
	tracer    ports.Tracer
	logger    ports.Logger
}

// New creates a Resolver.
func New(
	fetcher ports.Fetcher,
	manifests ports.ManifestParser,
	lockfiles ports.LockfileCodec,
	tracer ports.Tracer,
	logger ports.Logger,
) *Resolver {
	return &Resolver{
		fetcher:   fetcher,
		manifests: manifests,
		lockfiles: lockfiles,
		tracer:    tracer,
		logger:    logger,
	}
}

// build is a constructed graph with the outcomes of its edges.
type build struct {
	graph    *domain.DependencyGraph
	outcomes []domain.EdgeOutcome
	// ids are the graph's unique IDs once every package is added.
	ids []string
}

// Resolve resolves the package at root.
func (r *Resolver) Resolve(ctx context.Context, root domain.GitCoordinate, opts Options) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "resolve", ports.WithAttribute("env", opts.Environment))
	defer span.End()

	res, err := r.resolve(ctx, root, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("packages", res.Graph.Len())
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, root domain.GitCoordinate, opts Options) (*Result, error) {
	rootPkg, err := r.loadRoot(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{Environment: opts.Environment, Previous: r.rootLockfile(rootPkg)}

	var b *build
	if res.Previous != nil {
		b, err = r.phase(ctx, "lockfile", func(ctx context.Context) (*build, error) {
			return r.fromLockfile(ctx, rootPkg, res.Previous, opts)
		})
		switch {
		case err == nil && b != nil:
			res.FromLockfile = true
		case errors.Is(err, domain.ErrLockfileStale):
			res.Stale = true
			r.logger.Warn(fmt.Sprintf("%s is stale, resolving from manifests: %v", domain.LockfileName, err))
		case err != nil:
			return nil, err
		}
	}

	if b == nil {
		b, err = r.phase(ctx, "traverse", func(ctx context.Context) (*build, error) {
			return r.traverse(ctx, rootPkg, opts)
		})
		if err != nil {
			return nil, err
		}
	}

	if path := b.graph.DetectCycle(); path != nil {
		return nil, &domain.CycleError{Path: path}
	}
	res.Graph = b.graph
	res.Outcomes = b.outcomes

	if err := r.unify(ctx, res, opts); err != nil {
		return nil, err
	}

	_, span := r.tracer.Start(ctx, "compile")
	defer span.End()
	res.Compilation, err = compile.Compute(res.Resolved)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

func (r *Resolver) phase(ctx context.Context, name string, fn func(context.Context) (*build, error)) (*build, error) {
	ctx, span := r.tracer.Start(ctx, name)
	defer span.End()

	b, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if b != nil {
		span.SetAttribute("packages", b.graph.Len())
	}
	return b, nil
}

func (r *Resolver) unify(ctx context.Context, res *Result, opts Options) error {
	_, span := r.tracer.Start(ctx, "unify")
	defer span.End()

	res.Resolved = domain.NewResolvedGraph(res.Graph, domain.WithStrictAddresses(opts.StrictAddresses))
	if err := res.Resolved.Resolve(); err != nil {
		span.RecordError(err)
		return err
	}

	res.Conflicts = res.Resolved.Conflicts()
	for _, c := range res.Conflicts {
		r.logger.Warn(fmt.Sprintf("named address %s: keeping %s from %s, ignoring %s from %s",
			c.Name, c.Kept, c.KeptBy, c.Rejected, c.RejectedBy))
	}
	span.SetAttribute("conflicts", len(res.Conflicts))
	return nil
}

// loadRoot loads the root package and attaches its effective dependency table.
func (r *Resolver) loadRoot(ctx context.Context, coord domain.GitCoordinate, opts Options) (*domain.Package, error) {
	ctx, span := r.tracer.Start(ctx, "load", ports.WithAttribute("coordinate", coord.String()))
	defer span.End()

	pkg, err := r.load(ctx, coord, opts.Environment)
	if err != nil {
		span.RecordError(err)
		return nil, zerr.With(zerr.Wrap(err, "load root package"), "coordinate", coord.String())
	}
	pkg.Declared = rootDependencies(pkg.Manifest, opts)
	return pkg, nil
}

// rootLockfile decodes the root's Move.lock. A lockfile that cannot be
// decoded is ignored with a warning.
func (r *Resolver) rootLockfile(root *domain.Package) domain.Lockfile {
	text, ok := root.Files[domain.LockfileName]
	if !ok {
		return nil
	}
	lock, err := r.lockfiles.Parse(text)
	if err != nil {
		r.logger.Warn(fmt.Sprintf("ignoring %s: %v", domain.LockfileName, err))
		return nil
	}
	return lock
}
