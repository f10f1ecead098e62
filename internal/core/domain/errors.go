package domain

import "go.trai.ch/zerr"

var (
	// ErrCycleDetected is returned when a cycle is detected in the package dependency graph.
	ErrCycleDetected = zerr.New("dependency cycle detected")

	// ErrVersionConflict is returned when one package name resolves to two different sources.
	ErrVersionConflict = zerr.New("conflicting sources for package")

	// ErrAddressConflict is returned in strict mode when two packages bind one named address differently.
	ErrAddressConflict = zerr.New("conflicting named address")

	// ErrLockfileStale is returned when a lockfile no longer matches the manifests it pins.
	ErrLockfileStale = zerr.New("lockfile is stale")

	// ErrFetchGap is returned in strict fetch mode when a dependency could not be fetched.
	ErrFetchGap = zerr.New("dependency could not be fetched")

	// ErrInvalidAddress is returned when an address literal cannot be parsed.
	ErrInvalidAddress = zerr.New("invalid address")

	// ErrInvalidEdition is returned when a manifest declares an unknown edition.
	ErrInvalidEdition = zerr.New("invalid edition")

	// ErrPackageNotFound is returned when a graph index or name does not exist.
	ErrPackageNotFound = zerr.New("package not found")

	// ErrNoRoot is returned when an operation needs a root package and none was set.
	ErrNoRoot = zerr.New("graph has no root package")

	// ErrManifestNotFound is returned when a package has no Move.toml.
	ErrManifestNotFound = zerr.New("package has no manifest")

	// ErrManifestParseFailed is returned when a Move.toml cannot be decoded.
	ErrManifestParseFailed = zerr.New("failed to parse manifest")

	// ErrMissingPackageName is returned when a manifest has no [package] name.
	ErrMissingPackageName = zerr.New("manifest has no package name")

	// ErrInvalidDependency is returned when a dependency declaration has an unknown shape.
	ErrInvalidDependency = zerr.New("invalid dependency declaration")

	// ErrLockfileParseFailed is returned when a Move.lock cannot be decoded.
	ErrLockfileParseFailed = zerr.New("failed to parse lockfile")

	// ErrLockfileEncodeFailed is returned when a lockfile cannot be serialized.
	ErrLockfileEncodeFailed = zerr.New("failed to encode lockfile")

	// ErrPublishedParseFailed is returned when a Published.toml cannot be decoded.
	ErrPublishedParseFailed = zerr.New("failed to parse Published.toml")

	// ErrFetchFailed is returned when a fetcher cannot retrieve repository content.
	ErrFetchFailed = zerr.New("failed to fetch repository content")

	// ErrRevisionNotFound is returned when a revision does not exist in a repository.
	ErrRevisionNotFound = zerr.New("revision not found")

	// ErrInvalidRepository is returned when a repository URL cannot be understood.
	ErrInvalidRepository = zerr.New("invalid repository url")

	// ErrCacheCreateFailed is returned when the fetch cache directory cannot be created.
	ErrCacheCreateFailed = zerr.New("failed to create fetch cache directory")

	// ErrCacheReadFailed is returned when a fetch cache entry cannot be read.
	ErrCacheReadFailed = zerr.New("failed to read fetch cache entry")

	// ErrCacheWriteFailed is returned when a fetch cache entry cannot be written.
	ErrCacheWriteFailed = zerr.New("failed to write fetch cache entry")

	// ErrCacheLocked is returned when the fetch cache lock cannot be acquired.
	ErrCacheLocked = zerr.New("fetch cache is locked by another process")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrPackageReadFailed is returned when a local package directory cannot be read.
	ErrPackageReadFailed = zerr.New("failed to read package directory")

	// ErrWriteFailed is returned when an output file cannot be written.
	ErrWriteFailed = zerr.New("failed to write file")

	// ErrCompileFailed is returned when compile units cannot be assembled.
	ErrCompileFailed = zerr.New("failed to assemble compile units")
)
