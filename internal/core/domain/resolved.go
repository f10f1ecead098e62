package domain

import (
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// AddressTable maps named addresses to their unified value.
// One table is shared by pointer between every package of a resolved graph.
type AddressTable struct {
	entries map[string]Address
}

// NewAddressTable creates an empty table.
func NewAddressTable() *AddressTable {
	return &AddressTable{entries: make(map[string]Address)}
}

// Get returns the value bound to name.
func (t *AddressTable) Get(name string) (Address, bool) {
	if t == nil {
		return ZeroAddress, false
	}
	a, ok := t.entries[name]
	return a, ok
}

// Set binds name to addr, replacing any previous value.
func (t *AddressTable) Set(name string, addr Address) {
	t.entries[name] = addr
}

// Len returns the number of bound names.
func (t *AddressTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Names returns the bound names sorted.
func (t *AddressTable) Names() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.entries))
}

// Snapshot returns a copy of the table contents.
func (t *AddressTable) Snapshot() map[string]Address {
	if t == nil {
		return map[string]Address{}
	}
	return maps.Clone(t.entries)
}

// AddressConflict records a named address bound to two different values.
type AddressConflict struct {
	Name       string
	Kept       Address
	KeptBy     string
	Rejected   Address
	RejectedBy string
}

// ResolvedGraph unifies the named addresses of every package in a dependency graph.
type ResolvedGraph struct {
	graph     *DependencyGraph
	table     *AddressTable
	strict    bool
	conflicts []AddressConflict
}

// ResolveOption configures a ResolvedGraph.
type ResolveOption func(*ResolvedGraph)

// WithStrictAddresses makes Resolve fail on conflicting named addresses instead of keeping the first value.
func WithStrictAddresses(strict bool) ResolveOption {
	return func(r *ResolvedGraph) {
		r.strict = strict
	}
}

// NewResolvedGraph wraps g. Call Resolve before reading the table.
func NewResolvedGraph(g *DependencyGraph, opts ...ResolveOption) *ResolvedGraph {
	r := &ResolvedGraph{graph: g, table: NewAddressTable()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Graph returns the underlying dependency graph.
func (r *ResolvedGraph) Graph() *DependencyGraph {
	return r.graph
}

// Resolve merges named addresses over [root, ...TopologicalOrder()]. The first value
// written for a name wins. A later different value is recorded as a conflict, or
// returned as ErrAddressConflict in strict mode.
func (r *ResolvedGraph) Resolve() error {
	if r.graph.Root() < 0 {
		return ErrNoRoot
	}

	r.table = NewAddressTable()
	r.conflicts = nil
	owner := make(map[string]string)
	ids := r.graph.CreateIDs()

	order := append([]int{r.graph.Root()}, r.graph.TopologicalOrder()...)
	for _, idx := range order {
		pkg := r.graph.Package(idx)
		declared := declaredAddresses(pkg)
		for _, name := range slices.Sorted(maps.Keys(declared)) {
			value := declared[name]
			existing, ok := r.table.Get(name)
			if !ok {
				r.table.Set(name, value)
				owner[name] = ids[idx]
				continue
			}
			if existing == value {
				continue
			}
			conflict := AddressConflict{
				Name:       name,
				Kept:       existing,
				KeptBy:     owner[name],
				Rejected:   value,
				RejectedBy: ids[idx],
			}
			if r.strict {
				err := zerr.With(zerr.Wrap(ErrAddressConflict, "unify named addresses"), "name", name)
				err = zerr.With(err, "kept", conflict.KeptBy+"="+existing.String())
				return zerr.With(err, "rejected", conflict.RejectedBy+"="+value.String())
			}
			r.conflicts = append(r.conflicts, conflict)
		}
	}

	for _, idx := range order {
		r.applyRenames(r.graph.Package(idx))
	}

	for _, pkg := range r.graph.Packages() {
		pkg.resolved = r.table
	}
	return nil
}

// declaredAddresses returns the package's assigned named addresses with edge
// substitution assignments applied on top.
func declaredAddresses(pkg *Package) map[string]Address {
	declared := make(map[string]Address)
	if pkg.Manifest != nil {
		maps.Copy(declared, pkg.Manifest.Addresses)
	}
	for name, value := range pkg.Substitutions {
		if addr, ok := substitutionAddress(value); ok {
			declared[name] = addr
		}
	}
	return declared
}

// substitutionAddress reports whether a substitution value is an address
// assignment. Assignments must carry the 0x prefix; anything else is a rename.
func substitutionAddress(value string) (Address, bool) {
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		return ZeroAddress, false
	}
	addr, err := ParseAddress(value)
	return addr, err == nil
}

// applyRenames binds the target of a rename substitution ("a" = "b") to the value of
// the dependency's address a when b is still unbound.
func (r *ResolvedGraph) applyRenames(pkg *Package) {
	for _, from := range slices.Sorted(maps.Keys(pkg.Substitutions)) {
		to := pkg.Substitutions[from]
		if _, ok := substitutionAddress(to); ok {
			continue
		}
		value, ok := r.table.Get(from)
		if !ok {
			continue
		}
		if _, bound := r.table.Get(to); !bound {
			r.table.Set(to, value)
		}
	}
}

// UnifiedAddressTable returns a copy of the unified table.
func (r *ResolvedGraph) UnifiedAddressTable() map[string]Address {
	return r.table.Snapshot()
}

// Table returns the shared table attached to every package.
func (r *ResolvedGraph) Table() *AddressTable {
	return r.table
}

// Conflicts returns the conflicts tolerated by the last lenient Resolve.
func (r *ResolvedGraph) Conflicts() []AddressConflict {
	return slices.Clone(r.conflicts)
}
