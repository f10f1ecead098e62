package resolver

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// stale wraps a reason as ErrLockfileStale.
func stale(format string, args ...any) error {
	return zerr.Wrap(domain.ErrLockfileStale, fmt.Sprintf(format, args...))
}

// fromLockfile builds the graph from the root's lockfile. It returns a nil
// build when the lockfile has nothing for the environment, and an error
// wrapping ErrLockfileStale when the lockfile no longer matches.
func (r *Resolver) fromLockfile(ctx context.Context, root *domain.Package, lock domain.Lockfile, opts Options) (*build, error) {
	switch l := lock.(type) {
	case *domain.V4Lockfile:
		return r.fromV4(ctx, root, l, opts)
	case *domain.V3Lockfile:
		if err := checkRootNames(root, l.RootDependencyNames()); err != nil {
			return nil, err
		}
		return r.fromV3(ctx, root, l, opts)
	case *domain.LegacyLockfile:
		if err := checkRootNames(root, l.RootDependencies); err != nil {
			return nil, err
		}
		return r.fromLegacy(ctx, root, l, opts)
	default:
		return nil, nil
	}
}

// checkRootNames reports a lockfile as stale when its root dependency names
// differ from the root's declared aliases. Implicit system dependencies may
// be listed or not.
func checkRootNames(root *domain.Package, locked []string) error {
	var explicit, implicit []string
	for _, d := range root.Declared {
		if d.Implicit {
			implicit = append(implicit, d.Alias)
		} else {
			explicit = append(explicit, d.Alias)
		}
	}

	missing, _ := lo.Difference(explicit, locked)
	extra, _ := lo.Difference(locked, append(explicit, implicit...))
	if len(missing) > 0 || len(extra) > 0 {
		return stale("root dependencies changed (missing %v, unexpected %v)", missing, extra)
	}
	return nil
}

// pinCoordinate returns where a locked package lives. Local sources are
// subdirectories of the root's repository.
func pinCoordinate(root *domain.Package, src domain.PinSource) domain.GitCoordinate {
	if src.Local != "" {
		return domain.GitCoordinate{
			Repo:   root.Coordinate.Repo,
			Rev:    root.Coordinate.Rev,
			Subdir: domain.CleanSubdir(src.Local),
		}
	}
	return src.Git.Normalized()
}

// loadPinned loads a locked package; any fetch gap makes the lockfile stale.
func (r *Resolver) loadPinned(ctx context.Context, id string, coord domain.GitCoordinate, env string) (*domain.Package, error) {
	pkg, err := r.load(ctx, coord, env)
	var gap *gapError
	if errors.As(err, &gap) {
		return nil, stale("locked package %s: %v", id, err)
	}
	if err != nil {
		return nil, err
	}
	pkg.Declared = pkg.Manifest.DependenciesFor(false)
	return pkg, nil
}

// lockedNames remembers the first source each package name was locked at.
// Only V4 pins may carry one name at several sources.
type lockedNames map[string]domain.GitCoordinate

func newLockedNames(root *domain.Package) lockedNames {
	return lockedNames{root.Name: root.Coordinate}
}

func (n lockedNames) add(pkg *domain.Package) error {
	first, seen := n[pkg.Name]
	if !seen {
		n[pkg.Name] = pkg.Coordinate
		return nil
	}
	if first.Repo != pkg.Coordinate.Repo || first.Rev != pkg.Coordinate.Rev {
		return &domain.VersionConflictError{Package: pkg.Name, First: first, Conflict: pkg.Coordinate}
	}
	return nil
}

func (r *Resolver) fromV4(ctx context.Context, root *domain.Package, lock *domain.V4Lockfile, opts Options) (*build, error) {
	pins, ok := lock.Pins(opts.Environment)
	if !ok {
		return nil, nil
	}

	rootID, ok := lock.RootPinID(opts.Environment)
	if !ok {
		return nil, stale("no root pin for environment %s", opts.Environment)
	}
	if !domain.PinMatches(pins[rootID], root.ManifestText, root.Declared) {
		return nil, stale("manifest digest of %s changed", rootID)
	}

	g := domain.NewDependencyGraph()
	handles := map[string]int{rootID: g.AddPackage(root)}

	ids := sortPinIDs(lo.Without(slices.Collect(maps.Keys(pins)), rootID))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pin := pins[id]
		if pin.Source.Root {
			return nil, stale("more than one root pin")
		}

		pkg, err := r.loadPinned(ctx, id, pinCoordinate(root, pin.Source), opts.Environment)
		if err != nil {
			return nil, err
		}
		if !domain.PinMatches(pin, pkg.ManifestText, pkg.Declared) {
			return nil, stale("manifest digest of %s changed", id)
		}
		handles[id] = g.AddPackage(pkg)
	}

	b := &build{graph: g, ids: g.CreateIDs()}
	for _, id := range append([]string{rootID}, ids...) {
		from := handles[id]
		deps := pins[id].Deps
		for _, alias := range slices.Sorted(maps.Keys(deps)) {
			to, ok := handles[deps[alias]]
			if !ok {
				return nil, stale("pin %s depends on unknown package %s", id, deps[alias])
			}
			if err := link(b, from, to, alias); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func (r *Resolver) fromV3(ctx context.Context, root *domain.Package, lock *domain.V3Lockfile, opts Options) (*build, error) {
	g := domain.NewDependencyGraph()
	rootIdx := g.AddPackage(root)
	handles := make(map[string]int, len(lock.Packages))
	order := make([]int, 0, len(lock.Packages))
	names := newLockedNames(root)

	for _, p := range lock.Packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkg, err := r.loadPinned(ctx, p.ID, pinCoordinate(root, p.Source), opts.Environment)
		if err != nil {
			return nil, err
		}
		if err := names.add(pkg); err != nil {
			return nil, err
		}
		handles[p.ID] = g.AddPackage(pkg)
		order = append(order, handles[p.ID])
	}

	b := &build{graph: g, ids: g.CreateIDs()}
	edges := func(from int, deps []domain.V3Dependency) error {
		for _, d := range deps {
			to, ok := handles[d.ID]
			if !ok {
				return stale("unknown package id %s", d.ID)
			}
			if err := link(b, from, to, d.Name); err != nil {
				return err
			}
		}
		return nil
	}

	if err := edges(rootIdx, lock.RootDependencies); err != nil {
		return nil, err
	}
	for _, p := range lock.Packages {
		if err := edges(handles[p.ID], p.Dependencies); err != nil {
			return nil, err
		}
	}

	if err := g.SetExplicitOrder(order); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Resolver) fromLegacy(ctx context.Context, root *domain.Package, lock *domain.LegacyLockfile, opts Options) (*build, error) {
	g := domain.NewDependencyGraph()
	rootIdx := g.AddPackage(root)
	packages := lock.OrderedPackages()
	handles := make(map[string]int, len(packages))
	order := make([]int, 0, len(packages))
	names := newLockedNames(root)

	for _, p := range packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkg, err := r.loadPinned(ctx, p.Name, pinCoordinate(root, p.Source), opts.Environment)
		if err != nil {
			return nil, err
		}
		if err := names.add(pkg); err != nil {
			return nil, err
		}
		handles[p.Name] = g.AddPackage(pkg)
		order = append(order, handles[p.Name])
	}

	b := &build{graph: g, ids: g.CreateIDs()}
	edges := func(from int, names []string) error {
		for _, name := range names {
			to, ok := handles[name]
			if !ok {
				return stale("unknown package %s", name)
			}
			if err := link(b, from, to, name); err != nil {
				return err
			}
		}
		return nil
	}

	if err := edges(rootIdx, lock.RootDependencies); err != nil {
		return nil, err
	}
	for _, p := range packages {
		if err := edges(handles[p.Name], p.Dependencies); err != nil {
			return nil, err
		}
	}

	if err := g.SetExplicitOrder(order); err != nil {
		return nil, err
	}
	return b, nil
}

// link adds a locked edge, carrying the declaring package's substitutions
// for alias onto the target.
func link(b *build, from, to int, alias string) error {
	if err := b.graph.AddAliasedDependency(from, to, alias); err != nil {
		return err
	}

	parent, target := b.graph.Package(from), b.graph.Package(to)
	for _, d := range parent.Declared {
		if d.Alias == alias {
			mergeSubstitutions(target, d.Subst)
			break
		}
	}

	b.outcomes = append(b.outcomes, domain.EdgeOutcome{
		From:       b.ids[from],
		Alias:      alias,
		Coordinate: target.Coordinate,
		Status:     domain.EdgeResolved,
	})
	return nil
}

// sortPinIDs orders ids so that name precedes name_1, name_2 and so on,
// keeping unique IDs stable when the graph assigns them again.
func sortPinIDs(ids []string) []string {
	type key struct {
		base string
		n    int
	}
	split := func(id string) key {
		i := strings.LastIndexByte(id, '_')
		if i <= 0 {
			return key{id, 0}
		}
		n, err := strconv.Atoi(id[i+1:])
		if err != nil || n <= 0 {
			return key{id, 0}
		}
		return key{id[:i], n}
	}

	slices.SortFunc(ids, func(a, b string) int {
		ka, kb := split(a), split(b)
		if c := strings.Compare(ka.base, kb.base); c != 0 {
			return c
		}
		return ka.n - kb.n
	})
	return ids
}
