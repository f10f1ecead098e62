package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/adapters/config"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	cfg, err := loader.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig(), cfg)
}

func TestLoad_Overlay(t *testing.T) {
	content := `
version: "1"
environment: mainnet
resolution:
  strict_addresses: true
  implicit_deps: false
  dev: true
fetch:
  cache_dir: .knot-cache
  github_token_env: MY_TOKEN
  concurrency: 3
  system:
    repo: https://github.com/example/sui.git
    rev: release/{env}
lockfile:
  write: false
`
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, content)

	ctrl := gomock.NewController(t)
	cfg, err := config.NewLoader(mocks.NewMockLogger(ctrl)).Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "mainnet", cfg.Environment)
	assert.True(t, cfg.Resolution.StrictAddresses)
	assert.False(t, cfg.Resolution.StrictFetch, "unset keys keep their default")
	assert.False(t, cfg.Resolution.ImplicitDeps)
	assert.True(t, cfg.Resolution.Dev)
	assert.Equal(t, filepath.Join(tmpDir, ".knot-cache"), cfg.Fetch.CacheDir)
	assert.Equal(t, "MY_TOKEN", cfg.Fetch.TokenEnv)
	assert.Equal(t, 3, cfg.Fetch.Concurrency)
	assert.Equal(t, "https://github.com/example/sui.git", cfg.Fetch.SystemRepo)
	assert.False(t, cfg.Lockfile.Write)

	deps := cfg.SystemDependencies(cfg.Environment)
	require.Len(t, deps, 2)
	assert.Equal(t, "release/mainnet", deps[0].Git.Rev)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "environment: [unclosed",
			wantErr: domain.ErrConfigParseFailed.Error(),
		},
		{
			name:    "non-positive concurrency",
			content: "fetch:\n  concurrency: 0\n",
			wantErr: "fetch.concurrency must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeConfig(t, tmpDir, tt.content)

			ctrl := gomock.NewController(t)
			_, err := config.NewLoader(mocks.NewMockLogger(ctrl)).Load(tmpDir)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_UnknownVersionWarns(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "version: \"2\"\n")

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).Times(1)

	cfg, err := config.NewLoader(log).Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultEnvironment, cfg.Environment)
}
