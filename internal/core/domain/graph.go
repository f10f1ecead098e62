// Package domain contains the core domain models and business logic for package dependency resolution.
package domain

import (
	"iter"
	"sort"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

type edgeKey struct {
	from, to int
}

// DependencyGraph is an arena of packages connected by dependency edges.
// Nodes are addressed by integer handle; two nodes may share a declared name.
type DependencyGraph struct {
	nodes   []*Package
	edges   [][]int
	edgeSet map[edgeKey]struct{}
	aliases map[edgeKey]string
	names   map[string]int
	root    int

	explicitOrder []int
}

// OrderedPackage is one entry of the compiler input order.
type OrderedPackage struct {
	ID    string
	Index int
}

// NewDependencyGraph creates an empty graph. The first package added becomes the root.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		edgeSet: make(map[edgeKey]struct{}),
		aliases: make(map[edgeKey]string),
		names:   make(map[string]int),
		root:    -1,
	}
}

// AddPackage appends a node and returns its handle. It never deduplicates by name.
func (g *DependencyGraph) AddPackage(pkg *Package) int {
	idx := len(g.nodes)
	g.nodes = append(g.nodes, pkg)
	g.edges = append(g.edges, nil)
	if _, seen := g.names[pkg.Name]; !seen {
		g.names[pkg.Name] = idx
	}
	if g.root < 0 {
		g.root = idx
	}
	return idx
}

// SetRoot marks the node that orderings start from.
func (g *DependencyGraph) SetRoot(idx int) error {
	if err := g.check(idx); err != nil {
		return err
	}
	g.root = idx
	return nil
}

// Root returns the root handle, or -1 for an empty graph.
func (g *DependencyGraph) Root() int {
	return g.root
}

// RootPackage returns the root package, or nil for an empty graph.
func (g *DependencyGraph) RootPackage() *Package {
	if g.root < 0 {
		return nil
	}
	return g.nodes[g.root]
}

// Len returns the number of nodes.
func (g *DependencyGraph) Len() int {
	return len(g.nodes)
}

// Package returns the package stored at idx, or nil when idx is out of range.
func (g *DependencyGraph) Package(idx int) *Package {
	if idx < 0 || idx >= len(g.nodes) {
		return nil
	}
	return g.nodes[idx]
}

// Lookup returns the first node added with the given name.
// Names are not identities; use it for convenience addressing only.
func (g *DependencyGraph) Lookup(name string) (int, bool) {
	idx, ok := g.names[name]
	return idx, ok
}

// Packages iterates nodes in insertion order.
func (g *DependencyGraph) Packages() iter.Seq2[int, *Package] {
	return func(yield func(int, *Package) bool) {
		for i, p := range g.nodes {
			if !yield(i, p) {
				return
			}
		}
	}
}

// AddDependency inserts the edge from -> to. Adding an existing edge is a no-op.
func (g *DependencyGraph) AddDependency(from, to int) error {
	return g.AddAliasedDependency(from, to, "")
}

// AddAliasedDependency inserts the edge from -> to and records the alias it was declared under.
// The first non-empty alias recorded for an edge is kept.
func (g *DependencyGraph) AddAliasedDependency(from, to int, alias string) error {
	if err := g.check(from); err != nil {
		return err
	}
	if err := g.check(to); err != nil {
		return err
	}

	key := edgeKey{from: from, to: to}
	if _, exists := g.edgeSet[key]; !exists {
		g.edgeSet[key] = struct{}{}
		g.edges[from] = append(g.edges[from], to)
	}
	if _, labeled := g.aliases[key]; !labeled && alias != "" {
		g.aliases[key] = alias
	}
	return nil
}

// EdgeAlias returns the alias recorded for the edge from -> to.
func (g *DependencyGraph) EdgeAlias(from, to int) (string, bool) {
	alias, ok := g.aliases[edgeKey{from: from, to: to}]
	return alias, ok
}

// ImmediateDependencies returns the direct dependencies of idx in insertion order.
func (g *DependencyGraph) ImmediateDependencies(idx int) []int {
	if idx < 0 || idx >= len(g.edges) {
		return nil
	}
	out := make([]int, len(g.edges[idx]))
	copy(out, g.edges[idx])
	return out
}

// TransitiveDependencies returns every node reachable from idx, excluding idx, sorted by handle.
func (g *DependencyGraph) TransitiveDependencies(idx int) []int {
	if idx < 0 || idx >= len(g.edges) {
		return nil
	}
	seen := map[int]bool{idx: true}
	stack := append([]int(nil), g.edges[idx]...)
	var out []int
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		stack = append(stack, g.edges[n]...)
	}
	sort.Ints(out)
	return out
}

// sortedChildren returns the children of idx ordered by declared name, ties by handle.
func (g *DependencyGraph) sortedChildren(idx int) []int {
	children := append([]int(nil), g.edges[idx]...)
	sort.SliceStable(children, func(i, j int) bool {
		a, b := g.nodes[children[i]].Name, g.nodes[children[j]].Name
		if a != b {
			return a < b
		}
		return children[i] < children[j]
	})
	return children
}

// postOrder walks depth-first from the root and emits each node after its children.
// It uses an explicit stack so deep graphs cannot exhaust the goroutine stack.
func (g *DependencyGraph) postOrder() []int {
	if g.root < 0 {
		return nil
	}

	type frame struct {
		node     int
		children []int
		next     int
	}

	visited := make([]bool, len(g.nodes))
	order := make([]int, 0, len(g.nodes))
	visited[g.root] = true
	stack := []*frame{{node: g.root, children: g.sortedChildren(g.root)}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.children) {
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
			continue
		}
		child := top.children[top.next]
		top.next++
		if visited[child] {
			continue
		}
		visited[child] = true
		stack = append(stack, &frame{node: child, children: g.sortedChildren(child)})
	}
	return order
}

// TopologicalOrder returns every node reachable from the root, dependencies first.
// The root itself is excluded.
func (g *DependencyGraph) TopologicalOrder() []int {
	order := g.postOrder()
	if len(order) == 0 {
		return nil
	}
	return order[:len(order)-1]
}

// SetExplicitOrder installs a lockfile-provided dependency order used by
// CompilerInputOrderWithIndices instead of the computed post-order.
// The root must not be part of order; it is always emitted last.
func (g *DependencyGraph) SetExplicitOrder(order []int) error {
	for _, idx := range order {
		if err := g.check(idx); err != nil {
			return err
		}
	}
	g.explicitOrder = append([]int(nil), order...)
	return nil
}

// CreateIDs assigns unique IDs in insertion order: the first node with a name keeps it,
// later ones get name_1, name_2 and so on.
func (g *DependencyGraph) CreateIDs() []string {
	ids := make([]string, len(g.nodes))
	counts := make(map[string]int, len(g.nodes))
	for i, p := range g.nodes {
		n := counts[p.Name]
		if n == 0 {
			ids[i] = p.Name
		} else {
			ids[i] = p.Name + "_" + strconv.Itoa(n)
		}
		counts[p.Name] = n + 1
	}
	return ids
}

// CompilerInputOrderWithIndices returns the root-inclusive post-order with unique IDs.
// Nodes sharing a non-zero linkage address collapse to the one visited last,
// which is the occurrence closest to the root.
func (g *DependencyGraph) CompilerInputOrderWithIndices() []OrderedPackage {
	var sequence []int
	if g.explicitOrder != nil && g.root >= 0 {
		sequence = make([]int, 0, len(g.explicitOrder)+1)
		for _, idx := range g.explicitOrder {
			if idx != g.root {
				sequence = append(sequence, idx)
			}
		}
		sequence = append(sequence, g.root)
	} else {
		sequence = g.postOrder()
	}

	keep := make(map[Address]int)
	for _, idx := range sequence {
		if idx == g.root {
			continue
		}
		if addr := g.nodes[idx].LinkageAddress(); !addr.IsZero() {
			keep[addr] = idx
		}
	}

	ids := g.CreateIDs()
	out := make([]OrderedPackage, 0, len(sequence))
	for _, idx := range sequence {
		if idx != g.root {
			if addr := g.nodes[idx].LinkageAddress(); !addr.IsZero() && keep[addr] != idx {
				continue
			}
		}
		out = append(out, OrderedPackage{ID: ids[idx], Index: idx})
	}
	return out
}

// CompilerInputOrder returns the unique IDs of CompilerInputOrderWithIndices.
func (g *DependencyGraph) CompilerInputOrder() []string {
	ordered := g.CompilerInputOrderWithIndices()
	ids := make([]string, len(ordered))
	for i, o := range ordered {
		ids[i] = o.ID
	}
	return ids
}

// DetectCycle returns the closed path of a dependency cycle, such as [A B C A],
// or nil when the graph is acyclic.
func (g *DependencyGraph) DetectCycle() []string {
	const (
		white = iota
		gray
		black
	)
	type frame struct {
		node     int
		children []int
		next     int
	}

	color := make([]int, len(g.nodes))
	var cycle []int

	// visit walks from s with an explicit stack; the stack is the current path.
	visit := func(s int) bool {
		color[s] = gray
		stack := []*frame{{node: s, children: g.sortedChildren(s)}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next >= len(top.children) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			v := top.children[top.next]
			top.next++
			switch color[v] {
			case gray:
				path := make([]int, len(stack))
				for i, f := range stack {
					path[i] = f.node
				}
				cycle = closeCycle(path, v)
				return true
			case white:
				color[v] = gray
				stack = append(stack, &frame{node: v, children: g.sortedChildren(v)})
			}
		}
		return false
	}

	starts := make([]int, 0, len(g.nodes)+1)
	if g.root >= 0 {
		starts = append(starts, g.root)
	}
	for i := range g.nodes {
		starts = append(starts, i)
	}
	for _, s := range starts {
		if color[s] == white && visit(s) {
			break
		}
	}
	if cycle == nil {
		return nil
	}

	ids := g.CreateIDs()
	out := make([]string, len(cycle))
	for i, idx := range cycle {
		out[i] = ids[idx]
	}
	return out
}

func closeCycle(path []int, back int) []int {
	start := 0
	for i, n := range path {
		if n == back {
			start = i
			break
		}
	}
	cycle := append([]int(nil), path[start:]...)
	return append(cycle, back)
}

// Validate returns a CycleError when the graph contains a cycle.
func (g *DependencyGraph) Validate() error {
	if cycle := g.DetectCycle(); cycle != nil {
		return &CycleError{Path: cycle}
	}
	return nil
}

func (g *DependencyGraph) check(idx int) error {
	if idx < 0 || idx >= len(g.nodes) {
		return zerr.With(zerr.Wrap(ErrPackageNotFound, "graph index out of range"), "index", idx)
	}
	return nil
}

// CycleError reports a dependency cycle with its full path.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return ErrCycleDetected.Error() + ": " + strings.Join(e.Path, " -> ")
}

// Unwrap makes errors.Is(err, ErrCycleDetected) hold.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// VersionConflictError reports one package name reached from two different sources.
type VersionConflictError struct {
	Package  string
	First    GitCoordinate
	Conflict GitCoordinate
}

func (e *VersionConflictError) Error() string {
	return ErrVersionConflict.Error() + " " + strconv.Quote(e.Package) +
		": " + e.First.String() + " and " + e.Conflict.String()
}

// Unwrap makes errors.Is(err, ErrVersionConflict) hold.
func (e *VersionConflictError) Unwrap() error {
	return ErrVersionConflict
}
