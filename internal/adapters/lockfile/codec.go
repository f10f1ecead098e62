// Package lockfile decodes every supported Move.lock schema and encodes V4 lockfiles.
package lockfile

import (
	"bytes"
	"maps"

	"github.com/BurntSushi/toml"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// Header is written at the top of every generated lockfile.
const Header = "# @generated by knot\n# This file is managed by the resolver. Do not edit it by hand.\n\n"

// Codec implements ports.LockfileCodec using BurntSushi/toml.
type Codec struct{}

// NewCodec creates a new Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Parse decodes lockfile text once, selecting the variant from [move] version:
// missing, 0, 1 and 2 are legacy, 3 is V3, 4 and above are V4.
func (c *Codec) Parse(text string) (domain.Lockfile, error) {
	var doc lockfileFile
	if _, err := toml.Decode(text, &doc); err != nil {
		return nil, zerr.Wrap(err, domain.ErrLockfileParseFailed.Error())
	}

	version := 0
	if doc.Move.Version != nil {
		version = *doc.Move.Version
	}

	switch {
	case version < 0:
		return nil, zerr.With(domain.ErrLockfileParseFailed, "version", version)
	case version >= domain.CurrentLockfileVersion:
		return decodeV4(&doc, version), nil
	case version == 3:
		return decodeV3(&doc), nil
	default:
		return decodeLegacy(&doc, version), nil
	}
}

func decodeLegacy(doc *lockfileFile, version int) *domain.LegacyLockfile {
	lock := &domain.LegacyLockfile{
		LockVersion: version,
		Order:       doc.Move.Order,
		Envs:        decodeEnvs(doc.Env),
	}
	for _, d := range doc.Move.Dependencies {
		lock.RootDependencies = append(lock.RootDependencies, d.Name)
	}
	for _, p := range doc.Move.Package {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		pkg := domain.LegacyPackage{Name: name, Source: p.Source.toDomain()}
		for _, d := range p.Dependencies {
			pkg.Dependencies = append(pkg.Dependencies, d.Name)
		}
		lock.Packages = append(lock.Packages, pkg)
	}
	return lock
}

func decodeV3(doc *lockfileFile) *domain.V3Lockfile {
	lock := &domain.V3Lockfile{Envs: decodeEnvs(doc.Env)}
	for _, d := range doc.Move.Dependencies {
		lock.RootDependencies = append(lock.RootDependencies, domain.V3Dependency{ID: d.ID, Name: d.Name})
	}
	for _, p := range doc.Move.Package {
		id := p.ID
		if id == "" {
			id = p.Name
		}
		pkg := domain.V3Package{ID: id, Source: p.Source.toDomain()}
		for _, d := range p.Dependencies {
			pkg.Dependencies = append(pkg.Dependencies, domain.V3Dependency{ID: d.ID, Name: d.Name})
		}
		lock.Packages = append(lock.Packages, pkg)
	}
	return lock
}

func decodeV4(doc *lockfileFile, version int) *domain.V4Lockfile {
	lock := &domain.V4Lockfile{
		LockVersion: version,
		Pinned:      make(map[string]map[string]domain.Pin, len(doc.Pinned)),
	}
	for env, pins := range doc.Pinned {
		decoded := make(map[string]domain.Pin, len(pins))
		for id, p := range pins {
			digest := p.ManifestDigest
			if digest == "" {
				digest = p.LegacyDigest
			}
			decoded[id] = domain.Pin{
				Source:         p.Source.toDomain(),
				UseEnvironment: p.UseEnvironment,
				ManifestDigest: digest,
				Deps:           maps.Clone(map[string]string(p.Deps)),
			}
		}
		lock.Pinned[env] = decoded
	}
	return lock
}

// decodeEnvs converts [env.<name>] tables. Unparseable addresses are left zero.
func decodeEnvs(envs map[string]envFile) map[string]domain.EnvRecord {
	if len(envs) == 0 {
		return nil
	}
	out := make(map[string]domain.EnvRecord, len(envs))
	for name, e := range envs {
		original, _ := domain.ParseAddress(e.OriginalPublishedID)
		latest, _ := domain.ParseAddress(e.LatestPublishedID)
		out[name] = domain.EnvRecord{
			ChainID:          e.ChainID,
			Original:         original,
			Latest:           latest,
			PublishedVersion: e.PublishedVersion,
		}
	}
	return out
}

// Encode serializes lock as a V4 lockfile. Environments and package ids are
// emitted sorted, so equal lockfiles always produce identical text.
func (c *Codec) Encode(lock *domain.V4Lockfile) (string, error) {
	if lock == nil {
		return "", zerr.Wrap(domain.ErrLockfileEncodeFailed, "nil lockfile")
	}

	version := lock.LockVersion
	if version < domain.CurrentLockfileVersion {
		version = domain.CurrentLockfileVersion
	}
	doc := v4File{
		Move:   v4Move{Version: version},
		Pinned: make(map[string]map[string]pinFile, len(lock.Pinned)),
	}
	for env, pins := range lock.Pinned {
		encoded := make(map[string]pinFile, len(pins))
		for id, p := range pins {
			deps := depsFile(p.Deps)
			if deps == nil {
				deps = depsFile{}
			}
			encoded[id] = pinFile{
				Source:         sourceFromDomain(p.Source),
				UseEnvironment: p.UseEnvironment,
				ManifestDigest: p.ManifestDigest,
				Deps:           deps,
			}
		}
		doc.Pinned[env] = encoded
	}

	var buf bytes.Buffer
	buf.WriteString(Header)
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		return "", zerr.Wrap(err, domain.ErrLockfileEncodeFailed.Error())
	}
	return buf.String(), nil
}
