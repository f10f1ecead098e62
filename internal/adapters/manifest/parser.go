// Package manifest decodes Move.toml manifests and Published.toml records.
package manifest

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// Parser implements ports.ManifestParser using BurntSushi/toml.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

const (
	sectionDependencies    = "dependencies"
	sectionDevDependencies = "dev-dependencies"
)

// Parse decodes Move.toml text. Dependencies keep their declaration order.
func (p *Parser) Parse(text string) (*domain.Manifest, error) {
	var doc manifestFile
	md, err := toml.Decode(text, &doc)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrManifestParseFailed.Error())
	}

	name := strings.TrimSpace(doc.Package.Name)
	if name == "" {
		return nil, zerr.Wrap(domain.ErrMissingPackageName, "decode [package]")
	}

	edition, err := domain.ParseEdition(doc.Package.Edition)
	if err != nil {
		return nil, zerr.With(err, "package", name)
	}

	m := &domain.Manifest{
		Name:      name,
		Version:   doc.Package.Version,
		Edition:   edition,
		Addresses: make(map[string]domain.Address, len(doc.Addresses)),
	}

	if m.PublishedAt, err = optionalAddress(doc.Package.PublishedAt); err != nil {
		return nil, zerr.With(err, "field", "published-at")
	}
	if m.OriginalID, err = optionalAddress(doc.Package.OriginalID); err != nil {
		return nil, zerr.With(err, "field", "original-id")
	}

	for addrName, value := range doc.Addresses {
		if strings.TrimSpace(value) == domain.UnassignedAddress {
			m.Unassigned = append(m.Unassigned, addrName)
			continue
		}
		addr, err := domain.ParseAddress(value)
		if err != nil {
			return nil, zerr.With(err, "named_address", addrName)
		}
		m.Addresses[addrName] = addr
	}
	sort.Strings(m.Unassigned)

	if m.Dependencies, err = dependencies(md, sectionDependencies, doc.Dependencies, false); err != nil {
		return nil, zerr.With(err, "package", name)
	}
	if m.DevDependencies, err = dependencies(md, sectionDevDependencies, doc.DevDependencies, true); err != nil {
		return nil, zerr.With(err, "package", name)
	}

	return m, nil
}

func optionalAddress(value string) (domain.Address, error) {
	if strings.TrimSpace(value) == "" {
		return domain.ZeroAddress, nil
	}
	return domain.ParseAddress(value)
}

// dependencies converts one dependency table, ordered as the keys appear in the file.
func dependencies(md toml.MetaData, section string, table map[string]dependencyEntry, dev bool) ([]domain.Dependency, error) {
	if len(table) == 0 {
		return nil, nil
	}
	deps := make([]domain.Dependency, 0, len(table))
	for _, alias := range declarationOrder(md, section, table) {
		dep, err := table[alias].toDomain(alias)
		if err != nil {
			return nil, err
		}
		dep.Dev = dev
		deps = append(deps, dep)
	}
	return deps, nil
}

// declarationOrder returns the keys of a top-level table in file order. Keys the
// metadata does not report are appended sorted.
func declarationOrder(md toml.MetaData, section string, table map[string]dependencyEntry) []string {
	order := make([]string, 0, len(table))
	seen := make(map[string]bool, len(table))
	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != section {
			continue
		}
		if _, ok := table[key[1]]; ok && !seen[key[1]] {
			order = append(order, key[1])
			seen[key[1]] = true
		}
	}
	rest := make([]string, 0)
	for alias := range table {
		if !seen[alias] {
			rest = append(rest, alias)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
