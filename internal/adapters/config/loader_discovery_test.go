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

func TestLoad_Discovery(t *testing.T) {
	// Structure:
	// root/
	//   knot.yaml (environment: devnet)
	//   packages/
	//     demo/          <- package directory
	//       sources/     <- cwd for the nested case
	//   other/
	//     knot.yaml (environment: mainnet)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "environment: devnet\n")
	writeConfig(t, filepath.Join(tmpDir, "other"), "environment: mainnet\n")
	nested := filepath.Join(tmpDir, "packages", "demo", "sources")
	require.NoError(t, os.MkdirAll(nested, domain.DirPerm))

	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	cfg, err := loader.Load(filepath.Join(tmpDir, "packages", "demo"))
	require.NoError(t, err)
	assert.Equal(t, "devnet", cfg.Environment)

	cfg, err = loader.Load(nested)
	require.NoError(t, err)
	assert.Equal(t, "devnet", cfg.Environment)

	cfg, err = loader.Load(filepath.Join(tmpDir, "other"))
	require.NoError(t, err)
	assert.Equal(t, "mainnet", cfg.Environment, "the nearest file wins")
}

func TestLoad_RelativeDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "environment: devnet\n")
	t.Chdir(tmpDir)

	ctrl := gomock.NewController(t)
	cfg, err := config.NewLoader(mocks.NewMockLogger(ctrl)).Load(".")
	require.NoError(t, err)
	assert.Equal(t, "devnet", cfg.Environment)
}
