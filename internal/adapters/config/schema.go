package config

// Knotfile represents the structure of the knot.yaml configuration file.
// Pointer fields distinguish an explicit false or zero from an absent key.
type Knotfile struct {
	Version     string        `yaml:"version"`
	Environment string        `yaml:"environment"`
	Resolution  ResolutionDTO `yaml:"resolution"`
	Fetch       FetchDTO      `yaml:"fetch"`
	Lockfile    LockfileDTO   `yaml:"lockfile"`
}

// ResolutionDTO represents the resolution section.
type ResolutionDTO struct {
	StrictAddresses *bool `yaml:"strict_addresses"`
	StrictFetch     *bool `yaml:"strict_fetch"`
	ImplicitDeps    *bool `yaml:"implicit_deps"`
	Dev             *bool `yaml:"dev"`
}

// FetchDTO represents the fetch section.
type FetchDTO struct {
	CacheDir       string    `yaml:"cache_dir"`
	GitHubTokenEnv string    `yaml:"github_token_env"`
	Concurrency    *int      `yaml:"concurrency"`
	System         SystemDTO `yaml:"system"`
}

// SystemDTO locates the implicit system packages.
type SystemDTO struct {
	Repo string `yaml:"repo"`
	Rev  string `yaml:"rev"`
}

// LockfileDTO represents the lockfile section.
type LockfileDTO struct {
	Write *bool `yaml:"write"`
}
