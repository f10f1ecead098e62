package resolver

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/samber/lo"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

var (
	errSubstitutionOnly = errors.New("dependency has no source, only address substitutions")
	errNoCoordinate     = errors.New("local dependency of a package without a coordinate")
)

// frame is one package whose declared dependencies are being followed.
type frame struct {
	node int
	deps []domain.Dependency
	next int
}

// pendingOutcome is an edge outcome whose From is filled once IDs are known.
type pendingOutcome struct {
	from    int
	outcome domain.EdgeOutcome
}

// override is a root dependency that redirects every same-alias declaration.
type override struct {
	dep   domain.Dependency
	coord domain.GitCoordinate
}

type traversal struct {
	r    *Resolver
	opts Options

	graph     *domain.DependencyGraph
	memo      map[string]int
	names     map[string]domain.GitCoordinate
	overrides map[string]override
	outcomes  []pendingOutcome
}

// traverse builds the graph by following manifests depth-first with an
// explicit work-list. Coordinates seen before are reused from the memo.
func (r *Resolver) traverse(ctx context.Context, root *domain.Package, opts Options) (*build, error) {
	t := &traversal{
		r:         r,
		opts:      opts,
		graph:     domain.NewDependencyGraph(),
		memo:      make(map[string]int),
		names:     make(map[string]domain.GitCoordinate),
		overrides: rootOverrides(root),
	}

	rootIdx := t.graph.AddPackage(root)
	t.memo[root.Coordinate.Key()] = rootIdx
	t.names[root.Name] = root.Coordinate

	stack := []*frame{{node: rootIdx, deps: root.Declared}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.deps) {
			stack = stack[:len(stack)-1]
			continue
		}
		dep := top.deps[top.next]
		top.next++

		child, err := t.follow(ctx, top.node, dep)
		if err != nil {
			return nil, err
		}
		if child >= 0 {
			stack = append(stack, &frame{node: child, deps: t.graph.Package(child).Declared})
		}
	}

	return &build{graph: t.graph, outcomes: t.finish()}, nil
}

func rootOverrides(root *domain.Package) map[string]override {
	overrides := make(map[string]override)
	for _, dep := range root.Declared {
		if !dep.Override {
			continue
		}
		if coord, err := coordinate(root, dep); err == nil {
			overrides[dep.Alias] = override{dep: dep, coord: coord}
		}
	}
	return overrides
}

// coordinate returns where dep lives. Local paths are joined onto the
// declaring package's coordinate.
func coordinate(parent *domain.Package, dep domain.Dependency) (domain.GitCoordinate, error) {
	switch dep.Kind {
	case domain.DependencyGit:
		return dep.Git.Normalized(), nil
	case domain.DependencyLocal:
		if parent.Coordinate.IsZero() {
			return domain.GitCoordinate{}, errNoCoordinate
		}
		return parent.Coordinate.Join(dep.Local), nil
	default:
		return domain.GitCoordinate{}, errSubstitutionOnly
	}
}

// follow processes one declared edge of parent. It returns the handle of a
// newly added package to descend into, or -1.
func (t *traversal) follow(ctx context.Context, parent int, dep domain.Dependency) (int, error) {
	parentPkg := t.graph.Package(parent)
	outcome := domain.EdgeOutcome{Alias: dep.Alias}

	var coord domain.GitCoordinate
	if o, ok := t.overrides[dep.Alias]; ok && parent != t.graph.Root() {
		subst := dep.Subst
		dep = o.dep
		dep.Alias = outcome.Alias
		if dep.Subst == nil {
			dep.Subst = subst
		}
		coord = o.coord
		outcome.Overridden = true
	} else {
		var err error
		if coord, err = coordinate(parentPkg, dep); err != nil {
			outcome.Status = domain.EdgeDropped
			outcome.Reason = err
			t.record(parent, outcome)
			return -1, nil
		}
	}
	outcome.Coordinate = coord

	if idx, ok := t.memo[coord.Key()]; ok {
		if err := t.graph.AddAliasedDependency(parent, idx, dep.Alias); err != nil {
			return -1, err
		}
		mergeSubstitutions(t.graph.Package(idx), dep.Subst)
		outcome.Status = domain.EdgeReused
		t.record(parent, outcome)
		return -1, nil
	}

	pkg, err := t.r.load(ctx, coord, t.opts.Environment)
	var gap *gapError
	switch {
	case errors.As(err, &gap):
		if t.opts.StrictFetch {
			return -1, zerr.With(zerr.Wrap(err, "follow dependency"), "alias", dep.Alias)
		}
		t.r.logger.Warn(fmt.Sprintf("skipping %s of %s: %v", dep.Alias, parentPkg.Name, err))
		outcome.Status = domain.EdgeSkipped
		outcome.Reason = err
		t.record(parent, outcome)
		return -1, nil
	case err != nil:
		return -1, err
	}

	if first, seen := t.names[pkg.Name]; seen && (first.Repo != coord.Repo || first.Rev != coord.Rev) {
		return -1, &domain.VersionConflictError{Package: pkg.Name, First: first, Conflict: coord}
	}

	pkg.Declared = pkg.Manifest.DependenciesFor(false)
	pkg.Substitutions = maps.Clone(dep.Subst)

	idx := t.graph.AddPackage(pkg)
	t.memo[coord.Key()] = idx
	if _, seen := t.names[pkg.Name]; !seen {
		t.names[pkg.Name] = coord
	}
	if err := t.graph.AddAliasedDependency(parent, idx, dep.Alias); err != nil {
		return -1, err
	}

	outcome.Status = domain.EdgeResolved
	t.record(parent, outcome)
	return idx, nil
}

func (t *traversal) record(from int, outcome domain.EdgeOutcome) {
	t.outcomes = append(t.outcomes, pendingOutcome{from: from, outcome: outcome})
}

// finish fills in the unique ID of every outcome's declaring package.
func (t *traversal) finish() []domain.EdgeOutcome {
	ids := t.graph.CreateIDs()
	return lo.Map(t.outcomes, func(p pendingOutcome, _ int) domain.EdgeOutcome {
		p.outcome.From = ids[p.from]
		return p.outcome
	})
}

// mergeSubstitutions adds subst to the package's substitutions. Assignments
// made by an earlier edge win.
func mergeSubstitutions(pkg *domain.Package, subst map[string]string) {
	if len(subst) == 0 {
		return
	}
	pkg.Substitutions = lo.Assign(subst, pkg.Substitutions)
}
