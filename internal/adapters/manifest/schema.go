package manifest

import (
	"strings"

	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// manifestFile is the on-disk shape of Move.toml. Unknown keys are ignored.
type manifestFile struct {
	Package         packageSection             `toml:"package"`
	Addresses       map[string]string          `toml:"addresses"`
	Dependencies    map[string]dependencyEntry `toml:"dependencies"`
	DevDependencies map[string]dependencyEntry `toml:"dev-dependencies"`
}

type packageSection struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Edition     string `toml:"edition"`
	PublishedAt string `toml:"published-at"`
	OriginalID  string `toml:"original-id"`
}

// dependencyEntry is one inline dependency table.
type dependencyEntry struct {
	Git       string            `toml:"git"`
	Rev       string            `toml:"rev"`
	Subdir    string            `toml:"subdir"`
	Local     string            `toml:"local"`
	AddrSubst map[string]string `toml:"addr_subst"`
	Override  bool              `toml:"override"`
}

func (e dependencyEntry) toDomain(alias string) (domain.Dependency, error) {
	dep := domain.Dependency{
		Alias:    alias,
		Subst:    e.AddrSubst,
		Override: e.Override,
	}
	switch {
	case e.Git != "" && e.Local != "":
		return dep, zerr.With(zerr.Wrap(domain.ErrInvalidDependency, "both git and local set"), "dependency", alias)
	case e.Git != "":
		dep.Kind = domain.DependencyGit
		dep.Git = domain.GitCoordinate{Repo: strings.TrimSpace(e.Git), Rev: e.Rev, Subdir: e.Subdir}.Normalized()
	case e.Local != "":
		dep.Kind = domain.DependencyLocal
		dep.Local = e.Local
	case len(e.AddrSubst) > 0:
		dep.Kind = domain.DependencySubstitution
	default:
		return dep, zerr.With(zerr.Wrap(domain.ErrInvalidDependency, "no git, local or addr_subst"), "dependency", alias)
	}
	return dep, nil
}

// publishedFile is the on-disk shape of Published.toml.
type publishedFile struct {
	Published map[string]publishedEntry `toml:"published"`
}

type publishedEntry struct {
	PublishedAt string `toml:"published-at"`
	OriginalID  string `toml:"original-id"`
}
