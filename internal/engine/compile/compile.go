// Package compile assembles resolved packages into self-contained compile units.
package compile

import (
	"sort"
	"strings"

	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// vfsDepsPrefix is the synthetic directory dependency sources are sorted under.
const vfsDepsPrefix = "/vfs/deps/"

// SourceFile is one Move source of a unit. Path is relative to the package root.
type SourceFile struct {
	Path    string
	Content string
}

// Unit is everything the compiler needs to build one package in isolation.
type Unit struct {
	ID    string
	Name  string
	Index int

	SourceFiles    []SourceFile
	Edition        domain.Edition
	AddressMapping map[string]domain.Address

	// BuildAddress is used for bytecode linkage. OutputAddress is reported as
	// the package ID. Both are zero for unpublished packages.
	BuildAddress  domain.Address
	OutputAddress domain.Address

	// Manifest is the reconstructed Move.toml: package identity and the
	// address mapping, without dependencies.
	Manifest string
}

// Compilation is the result of Compute: dependency units in compiler input
// order followed by the root unit.
type Compilation struct {
	Root         Unit
	Dependencies []Unit

	// Registry holds the zero sentinel of every package without any known
	// address, under the name as declared and lower-cased.
	Registry map[string]domain.Address

	// sentinels lists the registry names recorded for each graph index.
	sentinels map[int][]string
}

// Compute builds the compile units of a resolved graph. Resolve must have run.
func Compute(r *domain.ResolvedGraph) (*Compilation, error) {
	g := r.Graph()
	if g.Root() < 0 {
		return nil, domain.ErrNoRoot
	}
	table := r.Table()
	if table == nil {
		return nil, zerr.Wrap(domain.ErrCompileFailed, "address table is not resolved")
	}

	c := &Compilation{
		Registry:  make(map[string]domain.Address),
		sentinels: make(map[int][]string),
	}
	for _, ordered := range g.CompilerInputOrderWithIndices() {
		if ordered.Index == g.Root() {
			continue
		}
		unit, err := c.dependencyUnit(g, ordered, table)
		if err != nil {
			return nil, err
		}
		c.Dependencies = append(c.Dependencies, unit)
	}

	root, err := c.rootUnit(g, table)
	if err != nil {
		return nil, err
	}
	c.Root = root
	return c, nil
}

func (c *Compilation) dependencyUnit(g *domain.DependencyGraph, ordered domain.OrderedPackage, table *domain.AddressTable) (Unit, error) {
	pkg := g.Package(ordered.Index)
	unit := Unit{
		ID:           ordered.ID,
		Name:         pkg.Name,
		Index:        ordered.Index,
		Edition:      pkg.Edition(),
		BuildAddress: pkg.Publication.BuildAddress(),
	}

	output, found := pkg.Publication.OutputAddress()
	if !found {
		output, found = lookupFold(table, pkg.Name)
	}

	if unit.BuildAddress.IsZero() && !found {
		unit.OutputAddress = domain.ZeroAddress
		c.record(ordered.Index, pkg.Name)
	} else {
		unit.OutputAddress = output
	}

	unit.AddressMapping = c.bind(g, ordered.Index, table.Snapshot())
	unit.SourceFiles = dependencySources(pkg)

	text, err := reconstructManifest(pkg, unit.AddressMapping)
	if err != nil {
		return Unit{}, zerr.With(err, "package", ordered.ID)
	}
	unit.Manifest = text
	return unit, nil
}

func (c *Compilation) rootUnit(g *domain.DependencyGraph, table *domain.AddressTable) (Unit, error) {
	root := g.RootPackage()
	unit := Unit{
		ID:             g.CreateIDs()[g.Root()],
		Name:           root.Name,
		Index:          g.Root(),
		Edition:        root.Edition(),
		AddressMapping: c.bind(g, g.Root(), table.Snapshot()),
		BuildAddress:   root.Publication.BuildAddress(),
		SourceFiles:    rootSources(root),
	}
	unit.OutputAddress, _ = root.Publication.OutputAddress()

	text, err := reconstructManifest(root, unit.AddressMapping)
	if err != nil {
		return Unit{}, zerr.With(err, "package", unit.ID)
	}
	unit.Manifest = text
	return unit, nil
}

// record registers the zero sentinel for the package at idx under its name
// and the lower-cased name.
func (c *Compilation) record(idx int, name string) {
	names := []string{name}
	if lower := strings.ToLower(name); lower != name {
		names = append(names, lower)
	}
	for _, n := range names {
		c.Registry[n] = domain.ZeroAddress
	}
	c.sentinels[idx] = names
}

// bind overwrites every mapping entry that has a registry value, then adds the
// sentinels of idx and of its dependencies under the names their manifests
// leave unassigned. Those names never reach the unified table.
func (c *Compilation) bind(g *domain.DependencyGraph, idx int, mapping map[string]domain.Address) map[string]domain.Address {
	for name := range mapping {
		if addr, ok := c.Registry[name]; ok {
			mapping[name] = addr
		}
	}

	for _, owner := range append([]int{idx}, g.TransitiveDependencies(idx)...) {
		m := g.Package(owner).Manifest
		if m == nil {
			continue
		}
		for _, name := range c.sentinels[owner] {
			if m.DeclaresAddress(name) {
				mapping[name] = c.Registry[name]
			}
		}
	}

	if m := g.Package(idx).Manifest; m != nil {
		for _, name := range m.Unassigned {
			if addr, ok := c.Registry[name]; ok {
				mapping[name] = addr
			}
		}
	}
	return mapping
}

// lookupFold finds name in the table, exactly first and then lower-cased.
func lookupFold(table *domain.AddressTable, name string) (domain.Address, bool) {
	if addr, ok := table.Get(name); ok {
		return addr, true
	}
	return table.Get(strings.ToLower(name))
}

// dependencySources returns the package's Move files ordered byte-wise by
// their path under the synthetic dependency directory.
func dependencySources(pkg *domain.Package) []SourceFile {
	files := moveFiles(pkg)
	prefix := vfsDepsPrefix + pkg.Name + "/"
	sort.Slice(files, func(i, j int) bool {
		return prefix+files[i].Path < prefix+files[j].Path
	})
	return files
}

// rootSources orders sources/ before tests/ before anything else, then byte-wise.
func rootSources(pkg *domain.Package) []SourceFile {
	files := moveFiles(pkg)
	sort.Slice(files, func(i, j int) bool {
		ri, rj := rootRank(files[i].Path), rootRank(files[j].Path)
		if ri != rj {
			return ri < rj
		}
		return files[i].Path < files[j].Path
	})
	return files
}

func rootRank(rel string) int {
	switch {
	case strings.HasPrefix(rel, domain.SourcesDirName+"/"):
		return 0
	case strings.HasPrefix(rel, domain.TestsDirName+"/"):
		return 1
	default:
		return 2
	}
}

func moveFiles(pkg *domain.Package) []SourceFile {
	paths := pkg.SourcePaths()
	files := make([]SourceFile, 0, len(paths))
	for _, rel := range paths {
		if !domain.IsPackageFile(rel) {
			continue
		}
		files = append(files, SourceFile{Path: rel, Content: pkg.Files[rel]})
	}
	return files
}
