package fs_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/adapters/fs"
	"go.trai.ch/knot/internal/core/domain"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
		require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
	}
}

func TestWalker_WalkFiles(t *testing.T) {
	// tmp/
	//   .git/config
	//   build/Demo/bytecode.mv
	//   sources/demo.move
	//   README.md
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		".git/config":            "git config",
		"build/Demo/bytecode.mv": "bytes",
		"sources/demo.move":      "module demo::demo {}",
		"README.md":              "# Readme",
	})

	var got []string
	for rel, err := range fs.NewWalker().WalkFiles(tmpDir) {
		require.NoError(t, err)
		got = append(got, rel)
	}
	slices.Sort(got)

	assert.Equal(t, []string{"README.md", "sources/demo.move"}, got)
}

func TestWalker_WalkFiles_MissingRoot(t *testing.T) {
	var errs int
	for _, err := range fs.NewWalker().WalkFiles(filepath.Join(t.TempDir(), "missing")) {
		if err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestWorkspace_ReadPackage(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"Move.toml":                 "[package]\nname = \"Demo\"\n",
		"Move.lock":                 "[move]\nversion = 4\n",
		"sources/demo.move":         "module demo::demo {}",
		"tests/demo_tests.move":     "module demo::demo_tests {}",
		"build/Demo/sources/x.move": "stale copy",
		"README.md":                 "# Readme",
	})

	ws := fs.NewWorkspace(fs.NewWalker())
	files, err := ws.ReadPackage(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"Move.toml":             "[package]\nname = \"Demo\"\n",
		"Move.lock":             "[move]\nversion = 4\n",
		"sources/demo.move":     "module demo::demo {}",
		"tests/demo_tests.move": "module demo::demo_tests {}",
	}, files)
}

func TestWorkspace_ReadPackage_NoManifest(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{"sources/a.move": "module a::a {}"})

	ws := fs.NewWorkspace(fs.NewWalker())

	files, err := ws.ReadPackage(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = ws.ReadPackage(filepath.Join(tmpDir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestWorkspace_ReadWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	ws := fs.NewWorkspace(fs.NewWalker())
	path := filepath.Join(tmpDir, "out", "nested", "Move.lock")

	_, ok, err := ws.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ws.WriteFile(path, []byte("first")))
	require.NoError(t, ws.WriteFile(path, []byte("second")))

	content, ok, err := ws.ReadFile(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", content)
}
