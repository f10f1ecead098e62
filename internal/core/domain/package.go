package domain

import (
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// Edition is the Move language edition a package compiles under.
type Edition string

const (
	// EditionLegacy is the pre-2024 edition and the default.
	EditionLegacy Edition = "legacy"
	// Edition2024 is the 2024 edition.
	Edition2024 Edition = "2024"
	// Edition2024Alpha is the 2024 alpha edition.
	Edition2024Alpha Edition = "2024.alpha"
	// Edition2024Beta is the 2024 beta edition.
	Edition2024Beta Edition = "2024.beta"
)

// ParseEdition validates an edition string. The empty string means legacy.
func ParseEdition(s string) (Edition, error) {
	switch e := Edition(strings.TrimSpace(s)); e {
	case "":
		return EditionLegacy, nil
	case EditionLegacy, Edition2024, Edition2024Alpha, Edition2024Beta:
		return e, nil
	default:
		return "", zerr.With(zerr.Wrap(ErrInvalidEdition, "parse edition"), "edition", s)
	}
}

// Manifest is the decoded form of a Move.toml.
type Manifest struct {
	Name    string
	Version string
	Edition Edition

	// PublishedAt and OriginalID are zero when the manifest does not set them.
	PublishedAt Address
	OriginalID  Address

	// Addresses holds assigned named addresses. Unassigned lists names declared as "_".
	Addresses  map[string]Address
	Unassigned []string

	// Dependencies and DevDependencies keep declaration order.
	Dependencies    []Dependency
	DevDependencies []Dependency
}

// DeclaresAddress reports whether the manifest names addr, assigned or not.
func (m *Manifest) DeclaresAddress(name string) bool {
	if _, ok := m.Addresses[name]; ok {
		return true
	}
	for _, u := range m.Unassigned {
		if u == name {
			return true
		}
	}
	return false
}

// DependenciesFor returns the declared dependencies, with dev-dependencies appended in dev mode.
func (m *Manifest) DependenciesFor(dev bool) []Dependency {
	deps := make([]Dependency, 0, len(m.Dependencies)+len(m.DevDependencies))
	deps = append(deps, m.Dependencies...)
	if dev {
		deps = append(deps, m.DevDependencies...)
	}
	return deps
}

// Dependency returns the declared dependency with the given alias.
func (m *Manifest) Dependency(alias string) (Dependency, bool) {
	for _, d := range m.Dependencies {
		if d.Alias == alias {
			return d, true
		}
	}
	for _, d := range m.DevDependencies {
		if d.Alias == alias {
			return d, true
		}
	}
	return Dependency{}, false
}

// Publication holds the three address roles of a package. Zero means unknown.
type Publication struct {
	Original  Address
	Published Address
	Latest    Address
}

// Fill returns p with every zero field taken from other.
func (p Publication) Fill(other Publication) Publication {
	if p.Original.IsZero() {
		p.Original = other.Original
	}
	if p.Published.IsZero() {
		p.Published = other.Published
	}
	if p.Latest.IsZero() {
		p.Latest = other.Latest
	}
	return p
}

// BuildAddress is the address used for bytecode linkage:
// original, else published, else latest, else zero.
func (p Publication) BuildAddress() Address {
	a, _ := FirstNonZero(p.Original, p.Published, p.Latest)
	return a
}

// OutputAddress is the address reported as the package ID:
// latest, else original, else published.
func (p Publication) OutputAddress() (Address, bool) {
	return FirstNonZero(p.Latest, p.Original, p.Published)
}

// Package is one fetched and decoded Move package.
type Package struct {
	Name       string
	Coordinate GitCoordinate
	Manifest   *Manifest
	// ManifestText is the raw Move.toml, kept for digest validation.
	ManifestText string
	// Files maps paths relative to the package root to their content.
	Files       map[string]string
	Publication Publication

	// Declared is the effective dependency table the package was traversed with:
	// manifest entries plus implicit system and dev entries for the root.
	Declared []Dependency

	// Substitutions are assignments applied by the declaring edge before merging.
	Substitutions map[string]string

	resolved *AddressTable
}

// NewPackage builds a package from its manifest and file set.
func NewPackage(coord GitCoordinate, manifest *Manifest, manifestText string, files map[string]string) *Package {
	p := &Package{
		Coordinate:   coord.Normalized(),
		Manifest:     manifest,
		ManifestText: manifestText,
		Files:        files,
	}
	if manifest != nil {
		p.Name = manifest.Name
		p.Publication = Publication{
			Original:  manifest.OriginalID,
			Published: manifest.PublishedAt,
		}
	}
	return p
}

// Edition returns the manifest edition, defaulting to legacy.
func (p *Package) Edition() Edition {
	if p.Manifest == nil || p.Manifest.Edition == "" {
		return EditionLegacy
	}
	return p.Manifest.Edition
}

// LinkageAddress is the address that identifies the package's compiled unit.
func (p *Package) LinkageAddress() Address {
	return p.Publication.BuildAddress()
}

// SourcePaths returns the relative paths of Move source files, sorted byte-wise.
func (p *Package) SourcePaths() []string {
	paths := make([]string, 0, len(p.Files))
	for rel := range p.Files {
		if strings.HasSuffix(rel, SourceExt) {
			paths = append(paths, rel)
		}
	}
	sort.Strings(paths)
	return paths
}

// ResolvedTable returns the unified address table attached by ResolvedGraph.Resolve.
func (p *Package) ResolvedTable() *AddressTable {
	return p.resolved
}
