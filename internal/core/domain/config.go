package domain

import "strings"

const (
	// DefaultEnvironment is the environment resolved when none is configured.
	DefaultEnvironment = "testnet"

	// DefaultSystemRepo hosts the Move standard library and the Sui framework.
	DefaultSystemRepo = "https://github.com/MystenLabs/sui.git"

	// DefaultSystemRev is the revision pattern of system packages; {env} is substituted.
	DefaultSystemRev = "framework/{env}"

	// DefaultTokenEnv is the environment variable holding a GitHub token.
	DefaultTokenEnv = "GITHUB_TOKEN"

	// DefaultFetchConcurrency bounds concurrent file downloads per package.
	DefaultFetchConcurrency = 8
)

// SystemPackage is an implicit dependency added to the root when it is not declared.
type SystemPackage struct {
	Name   string
	Subdir string
}

// DefaultSystemPackages lists the implicit dependencies in the order they are added.
func DefaultSystemPackages() []SystemPackage {
	return []SystemPackage{
		{Name: "MoveStdlib", Subdir: "crates/sui-framework/packages/move-stdlib"},
		{Name: "Sui", Subdir: "crates/sui-framework/packages/sui-framework"},
	}
}

// Config is the resolved knot configuration.
type Config struct {
	Environment string
	Resolution  ResolutionConfig
	Fetch       FetchConfig
	Lockfile    LockfileConfig
}

// ResolutionConfig controls graph construction.
type ResolutionConfig struct {
	StrictAddresses bool
	StrictFetch     bool
	ImplicitDeps    bool
	Dev             bool
}

// FetchConfig controls repository fetching.
type FetchConfig struct {
	CacheDir    string
	TokenEnv    string
	Concurrency int
	SystemRepo  string
	SystemRev   string
}

// LockfileConfig controls lockfile output.
type LockfileConfig struct {
	Write bool
}

// DefaultConfig returns the configuration used when no knot.yaml exists.
func DefaultConfig() Config {
	return Config{
		Environment: DefaultEnvironment,
		Resolution: ResolutionConfig{
			ImplicitDeps: true,
		},
		Fetch: FetchConfig{
			CacheDir:    DefaultFetchCachePath(),
			TokenEnv:    DefaultTokenEnv,
			Concurrency: DefaultFetchConcurrency,
			SystemRepo:  DefaultSystemRepo,
			SystemRev:   DefaultSystemRev,
		},
		Lockfile: LockfileConfig{Write: true},
	}
}

// SystemDependencies returns the implicit dependencies for env.
func (c Config) SystemDependencies(env string) []Dependency {
	rev := strings.ReplaceAll(c.Fetch.SystemRev, "{env}", env)
	pkgs := DefaultSystemPackages()
	deps := make([]Dependency, 0, len(pkgs))
	for _, p := range pkgs {
		deps = append(deps, Dependency{
			Alias:    p.Name,
			Kind:     DependencyGit,
			Git:      GitCoordinate{Repo: c.Fetch.SystemRepo, Rev: rev, Subdir: p.Subdir},
			Implicit: true,
		})
	}
	return deps
}
