package domain

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// KnotDirName is the name of the per-user knot directory under the cache root.
	KnotDirName = "knot"

	// FetchCacheDirName is the name of the fetched repository content cache directory.
	FetchCacheDirName = "fetch"

	// ConfigFileName is the name of the knot configuration file.
	ConfigFileName = "knot.yaml"

	// ManifestFileName is the name of a Move package manifest.
	ManifestFileName = "Move.toml"

	// LockfileName is the name of a Move package lockfile.
	LockfileName = "Move.lock"

	// PublishedFileName is the name of the per-environment publication record.
	PublishedFileName = "Published.toml"

	// SourceExt is the extension of Move source files.
	SourceExt = ".move"

	// SourcesDirName is the directory holding package sources.
	SourcesDirName = "sources"

	// TestsDirName is the directory holding package tests.
	TestsDirName = "tests"

	// BuildDirName is the compiler output directory, never read as input.
	BuildDirName = "build"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultFetchCachePath returns the default location of the fetch cache.
// It joins the user cache directory, knot and fetch, falling back to the
// system temp directory when no user cache directory is known.
func DefaultFetchCachePath() string {
	root, err := os.UserCacheDir()
	if err != nil || root == "" {
		root = os.TempDir()
	}
	return filepath.Join(root, KnotDirName, FetchCacheDirName)
}

// IsPackageFile reports whether rel, a slash-separated path relative to a
// package root, is read during resolution: the manifest, the lockfile, the
// publication record and Move sources outside the build directory.
func IsPackageFile(rel string) bool {
	switch rel {
	case ManifestFileName, LockfileName, PublishedFileName:
		return true
	}
	if rel == BuildDirName || strings.HasPrefix(rel, BuildDirName+"/") {
		return false
	}
	return strings.HasSuffix(rel, SourceExt)
}
