// Package config provides the configuration loader for knot.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only knot.yaml schema version understood.
const SupportedVersion = "1"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds knot.yaml in dir or the nearest parent directory and overlays it
// on the defaults. Without a file the defaults are returned.
func (l *Loader) Load(dir string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	path, ok, err := findConfiguration(dir)
	if err != nil || !ok {
		return cfg, err
	}

	var knotfile Knotfile
	if err := readAndUnmarshalYAML(path, &knotfile); err != nil {
		return domain.Config{}, err
	}
	if knotfile.Version != "" && knotfile.Version != SupportedVersion {
		l.Logger.Warn(fmt.Sprintf("%s declares version %q, expected %q", domain.ConfigFileName, knotfile.Version, SupportedVersion))
	}

	if err := apply(&cfg, &knotfile, filepath.Dir(path)); err != nil {
		return domain.Config{}, zerr.With(err, "path", path)
	}
	return cfg, nil
}

func findConfiguration(dir string) (string, bool, error) {
	currentDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", dir)
	}

	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", false, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", candidate)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false, nil
		}
		currentDir = parentDir
	}
}

func readAndUnmarshalYAML(path string, v any) error {
	//nolint:gosec // Path is discovered by walking up from the package directory
	data, err := os.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}
	return nil
}

func apply(cfg *domain.Config, k *Knotfile, baseDir string) error {
	if k.Environment != "" {
		cfg.Environment = k.Environment
	}

	setBool(&cfg.Resolution.StrictAddresses, k.Resolution.StrictAddresses)
	setBool(&cfg.Resolution.StrictFetch, k.Resolution.StrictFetch)
	setBool(&cfg.Resolution.ImplicitDeps, k.Resolution.ImplicitDeps)
	setBool(&cfg.Resolution.Dev, k.Resolution.Dev)
	setBool(&cfg.Lockfile.Write, k.Lockfile.Write)

	if k.Fetch.CacheDir != "" {
		cacheDir := k.Fetch.CacheDir
		if !filepath.IsAbs(cacheDir) {
			cacheDir = filepath.Join(baseDir, cacheDir)
		}
		cfg.Fetch.CacheDir = filepath.Clean(cacheDir)
	}
	if k.Fetch.GitHubTokenEnv != "" {
		cfg.Fetch.TokenEnv = k.Fetch.GitHubTokenEnv
	}
	if k.Fetch.Concurrency != nil {
		if *k.Fetch.Concurrency <= 0 {
			return zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, "fetch.concurrency must be positive"),
				"concurrency", *k.Fetch.Concurrency)
		}
		cfg.Fetch.Concurrency = *k.Fetch.Concurrency
	}
	if k.Fetch.System.Repo != "" {
		cfg.Fetch.SystemRepo = k.Fetch.System.Repo
	}
	if k.Fetch.System.Rev != "" {
		cfg.Fetch.SystemRev = k.Fetch.System.Rev
	}
	return nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
