package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// Workspace implements ports.Workspace on the local file system.
type Workspace struct {
	walker *Walker
}

// NewWorkspace creates a new Workspace.
func NewWorkspace(walker *Walker) *Workspace {
	return &Workspace{walker: walker}
}

// ReadPackage returns the package files below dir, keyed by slash-separated
// relative path. A directory without a manifest yields an empty map.
func (w *Workspace) ReadPackage(dir string) (map[string]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrPackageReadFailed.Error()), "path", dir)
	}
	if !info.IsDir() {
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageReadFailed, "not a directory"), "path", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, domain.ManifestFileName)); errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}

	files := make(map[string]string)
	for rel, err := range w.walker.WalkFiles(dir) {
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrPackageReadFailed.Error()), "path", dir)
		}
		if !domain.IsPackageFile(rel) {
			continue
		}
		path := filepath.Join(dir, filepath.FromSlash(rel))
		//nolint:gosec // Path comes from walking the package directory
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrPackageReadFailed.Error()), "path", path)
		}
		files[rel] = string(data)
	}
	return files, nil
}

// ReadFile returns the content of path. The boolean is false when it does not exist.
func (w *Workspace) ReadFile(path string) (string, bool, error) {
	//nolint:gosec // Path is provided by trusted caller
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, zerr.With(zerr.Wrap(err, domain.ErrPackageReadFailed.Error()), "path", path)
	}
	return string(data), true, nil
}

// WriteFile atomically replaces path with data, creating parent directories.
func (w *Workspace) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrWriteFailed.Error()), "path", path)
	}
	if err := renameio.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrWriteFailed.Error()), "path", path)
	}
	return nil
}
