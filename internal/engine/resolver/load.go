package resolver

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// gapError marks a dependency whose content could not be fetched.
type gapError struct {
	coord domain.GitCoordinate
	cause error
}

func (e *gapError) Error() string {
	return domain.ErrFetchGap.Error() + " " + e.coord.String() + ": " + e.cause.Error()
}

// Unwrap makes errors.Is hold for both ErrFetchGap and the cause.
func (e *gapError) Unwrap() []error {
	return []error{domain.ErrFetchGap, e.cause}
}

// load fetches the package at coord and decodes its manifest and publication.
// Fetch failures and missing manifests are returned as *gapError; a manifest
// that does not decode is a hard error.
func (r *Resolver) load(ctx context.Context, coord domain.GitCoordinate, env string) (*domain.Package, error) {
	files, err := r.fetcher.Fetch(ctx, coord)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &gapError{coord: coord, cause: err}
	}

	text, ok := files[domain.ManifestFileName]
	if !ok {
		return nil, &gapError{coord: coord, cause: domain.ErrManifestNotFound}
	}

	manifest, err := r.manifests.Parse(text)
	if err != nil {
		return nil, zerr.With(err, "coordinate", coord.String())
	}

	pkg := domain.NewPackage(coord, manifest, text, files)
	pkg.Publication = r.publication(pkg, env)
	return pkg, nil
}

// publication merges the package's publication records for env. Published.toml
// takes precedence over the package's own Move.lock, which takes precedence
// over the manifest fields. Records that do not decode are ignored with a warning.
func (r *Resolver) publication(pkg *domain.Package, env string) domain.Publication {
	var pub domain.Publication

	if text, ok := pkg.Files[domain.PublishedFileName]; ok {
		record, found, err := r.manifests.ParsePublished(text, env)
		switch {
		case err != nil:
			r.logger.Warn(fmt.Sprintf("%s: ignoring %s: %v", pkg.Name, domain.PublishedFileName, err))
		case found:
			pub = record
		}
	}

	if text, ok := pkg.Files[domain.LockfileName]; ok {
		lock, err := r.lockfiles.Parse(text)
		if err != nil {
			r.logger.Warn(fmt.Sprintf("%s: ignoring %s: %v", pkg.Name, domain.LockfileName, err))
		} else {
			pub = pub.Fill(envPublication(lock, env))
		}
	}

	return pub.Fill(pkg.Publication)
}

func envPublication(lock domain.Lockfile, env string) domain.Publication {
	var envs map[string]domain.EnvRecord
	switch l := lock.(type) {
	case *domain.LegacyLockfile:
		envs = l.Envs
	case *domain.V3Lockfile:
		envs = l.Envs
	}
	return envs[env].Publication()
}

// rootDependencies returns the root's effective dependency table: manifest
// entries, dev entries in dev mode and the implicit system packages. System
// packages are only added when the root declares none of them and is not one.
func rootDependencies(m *domain.Manifest, opts Options) []domain.Dependency {
	deps := m.DependenciesFor(opts.Dev)
	if len(opts.System) == 0 {
		return deps
	}

	system := lo.SliceToMap(opts.System, func(d domain.Dependency) (string, struct{}) {
		return d.Alias, struct{}{}
	})
	if _, ok := system[m.Name]; ok {
		return deps
	}
	declared := lo.ContainsBy(deps, func(d domain.Dependency) bool {
		_, ok := system[d.Alias]
		return ok
	})
	if declared {
		return deps
	}
	return append(deps, opts.System...)
}
