package fetcher

import (
	"context"
	"path/filepath"

	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports"
)

// LocalFetcher serves file:// coordinates from the workspace. Revisions are ignored.
type LocalFetcher struct {
	ws ports.Workspace
}

// NewLocalFetcher creates a LocalFetcher reading through ws.
func NewLocalFetcher(ws ports.Workspace) *LocalFetcher {
	return &LocalFetcher{ws: ws}
}

// Fetch implements ports.Fetcher.
func (f *LocalFetcher) Fetch(_ context.Context, coord domain.GitCoordinate) (map[string]string, error) {
	return f.ws.ReadPackage(localDir(coord))
}

// FetchFile implements ports.Fetcher.
func (f *LocalFetcher) FetchFile(_ context.Context, coord domain.GitCoordinate, path string) (string, bool, error) {
	return f.ws.ReadFile(filepath.Join(localDir(coord), filepath.FromSlash(path)))
}

func localDir(coord domain.GitCoordinate) string {
	dir := domain.LocalRepoDir(coord.Repo)
	if sub := domain.CleanSubdir(coord.Subdir); sub != "" {
		dir = filepath.Join(dir, filepath.FromSlash(sub))
	}
	return dir
}
