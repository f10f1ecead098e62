package domain

import (
	"maps"
	"slices"
	"strings"
)

// LockfileSchema identifies which lockfile variant was decoded.
type LockfileSchema uint8

const (
	// SchemaLegacy covers lockfiles without a version and versions 0 to 2.
	SchemaLegacy LockfileSchema = iota
	// SchemaV3 is the array-of-records form with explicit ids.
	SchemaV3
	// SchemaV4 is the per-environment pinned form.
	SchemaV4
)

// String returns a short name for the schema.
func (s LockfileSchema) String() string {
	switch s {
	case SchemaLegacy:
		return "legacy"
	case SchemaV3:
		return "v3"
	case SchemaV4:
		return "v4"
	default:
		return "unknown"
	}
}

// CurrentLockfileVersion is the version written by knot.
const CurrentLockfileVersion = 4

// Lockfile is the closed set of decoded lockfile variants:
// *LegacyLockfile, *V3Lockfile and *V4Lockfile.
type Lockfile interface {
	Schema() LockfileSchema
	Version() int
}

// PinSource is where a locked package comes from. Exactly one of Git, Local or Root is set.
type PinSource struct {
	Git   GitCoordinate
	Local string
	Root  bool
}

// IsGit reports whether the source is a repository coordinate.
func (s PinSource) IsGit() bool {
	return !s.Root && s.Local == "" && s.Git.Repo != ""
}

// EnvRecord is a legacy/V3 [env.<name>] section describing the root's publication.
type EnvRecord struct {
	ChainID          string
	Original         Address
	Latest           Address
	PublishedVersion string
}

// Publication converts the record into publication info.
func (e EnvRecord) Publication() Publication {
	return Publication{Original: e.Original, Latest: e.Latest}
}

// LegacyPackage is one [[move.package]] record of a legacy lockfile.
type LegacyPackage struct {
	Name         string
	Source       PinSource
	Dependencies []string
}

// LegacyLockfile covers unversioned and v0 to v2 lockfiles.
type LegacyLockfile struct {
	LockVersion      int
	RootDependencies []string
	Order            []string
	Packages         []LegacyPackage
	Envs             map[string]EnvRecord
}

// Schema implements Lockfile.
func (l *LegacyLockfile) Schema() LockfileSchema { return SchemaLegacy }

// Version implements Lockfile.
func (l *LegacyLockfile) Version() int { return l.LockVersion }

// OrderedPackages returns records in the explicit order when one is present,
// else in array order. Names missing from the order list keep array order at the end.
func (l *LegacyLockfile) OrderedPackages() []LegacyPackage {
	if len(l.Order) == 0 {
		return slices.Clone(l.Packages)
	}
	byName := make(map[string]LegacyPackage, len(l.Packages))
	for _, p := range l.Packages {
		byName[p.Name] = p
	}
	out := make([]LegacyPackage, 0, len(l.Packages))
	placed := make(map[string]bool, len(l.Packages))
	for _, name := range l.Order {
		if p, ok := byName[name]; ok && !placed[name] {
			out = append(out, p)
			placed[name] = true
		}
	}
	for _, p := range l.Packages {
		if !placed[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

// V3Dependency references a locked package by id under a declared name.
type V3Dependency struct {
	ID   string
	Name string
}

// V3Package is one [[move.package]] record of a version 3 lockfile.
type V3Package struct {
	ID           string
	Source       PinSource
	Dependencies []V3Dependency
}

// V3Lockfile is a version 3 lockfile. Package order is the compiler order.
type V3Lockfile struct {
	RootDependencies []V3Dependency
	Packages         []V3Package
	Envs             map[string]EnvRecord
}

// Schema implements Lockfile.
func (l *V3Lockfile) Schema() LockfileSchema { return SchemaV3 }

// Version implements Lockfile.
func (l *V3Lockfile) Version() int { return 3 }

// RootDependencyNames returns the declared names of the root's dependencies.
func (l *V3Lockfile) RootDependencyNames() []string {
	names := make([]string, len(l.RootDependencies))
	for i, d := range l.RootDependencies {
		names[i] = d.Name
	}
	return names
}

// Pin fixes one package's source and manifest digest for an environment.
type Pin struct {
	Source         PinSource
	UseEnvironment string
	ManifestDigest string
	// Deps maps dependency alias to the pinned package id.
	Deps map[string]string
}

// V4Lockfile maps environment -> package id -> pin.
type V4Lockfile struct {
	LockVersion int
	Pinned      map[string]map[string]Pin
}

// Schema implements Lockfile.
func (l *V4Lockfile) Schema() LockfileSchema { return SchemaV4 }

// Version implements Lockfile.
func (l *V4Lockfile) Version() int { return l.LockVersion }

// Environments returns the pinned environment names sorted.
func (l *V4Lockfile) Environments() []string {
	return slices.Sorted(maps.Keys(l.Pinned))
}

// Pins returns the pins of one environment.
func (l *V4Lockfile) Pins(env string) (map[string]Pin, bool) {
	pins, ok := l.Pinned[env]
	return pins, ok && len(pins) > 0
}

// RootPinID returns the id of the root pin of env.
func (l *V4Lockfile) RootPinID(env string) (string, bool) {
	for _, id := range slices.Sorted(maps.Keys(l.Pinned[env])) {
		if l.Pinned[env][id].Source.Root {
			return id, true
		}
	}
	return "", false
}

// WithEnvironment returns a new V4 lockfile holding pins for env and every other
// environment of previous copied through unchanged. previous may be nil or a
// non-V4 variant, in which case only env is written.
func WithEnvironment(previous Lockfile, env string, pins map[string]Pin) *V4Lockfile {
	out := &V4Lockfile{
		LockVersion: CurrentLockfileVersion,
		Pinned:      make(map[string]map[string]Pin),
	}
	if prev, ok := previous.(*V4Lockfile); ok {
		for name, envPins := range prev.Pinned {
			if name == env {
				continue
			}
			out.Pinned[name] = maps.Clone(envPins)
		}
	}
	out.Pinned[env] = maps.Clone(pins)
	return out
}

// BuildPins derives the pins of env from a dependency graph. Pin ids are the graph's
// unique IDs; every pin's digest covers the package's effective dependency table.
func BuildPins(g *DependencyGraph, env string) map[string]Pin {
	ids := g.CreateIDs()
	rootRepo := ""
	if root := g.RootPackage(); root != nil {
		rootRepo = root.Coordinate.Repo
	}

	pins := make(map[string]Pin, g.Len())
	for idx, pkg := range g.Packages() {
		pin := Pin{
			UseEnvironment: env,
			ManifestDigest: DependencyDigest(pkg.Declared),
			Deps:           make(map[string]string),
		}
		switch {
		case idx == g.Root():
			pin.Source = PinSource{Root: true}
		case IsLocalRepo(pkg.Coordinate.Repo) && pkg.Coordinate.Repo == rootRepo:
			pin.Source = PinSource{Local: pkg.Coordinate.Subdir}
		default:
			pin.Source = PinSource{Git: pkg.Coordinate}
		}
		for _, child := range g.ImmediateDependencies(idx) {
			alias, ok := g.EdgeAlias(idx, child)
			if !ok {
				alias = g.Package(child).Name
			}
			pin.Deps[alias] = ids[child]
		}
		pins[ids[idx]] = pin
	}
	return pins
}

// LocalRepoPrefix marks coordinates that point at a directory on disk.
const LocalRepoPrefix = "file://"

// IsLocalRepo reports whether repo is an on-disk directory coordinate.
func IsLocalRepo(repo string) bool {
	return strings.HasPrefix(repo, LocalRepoPrefix)
}

// LocalRepoDir returns the directory of an on-disk coordinate.
func LocalRepoDir(repo string) string {
	return strings.TrimPrefix(repo, LocalRepoPrefix)
}
