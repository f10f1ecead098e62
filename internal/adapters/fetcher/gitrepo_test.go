package fetcher_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/adapters/fetcher"
	"go.trai.ch/knot/internal/core/domain"
)

// memoryRepo builds a repository holding files in one commit on master and
// on the branch framework/testnet.
func memoryRepo(t *testing.T, files map[string]string) (*git.Repository, plumbing.Hash) {
	t.Helper()
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	for path, content := range files {
		require.NoError(t, util.WriteFile(fs, path, []byte(content), domain.FilePerm))
	}
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "knot", Email: "knot@example.com", When: time.Unix(0, 0)},
	})
	require.NoError(t, err)

	branch := plumbing.NewHashReference(plumbing.NewBranchReferenceName("framework/testnet"), hash)
	require.NoError(t, repo.Storer.SetReference(branch))
	return repo, hash
}

func TestGitFetcher(t *testing.T) {
	repo, hash := memoryRepo(t, map[string]string{
		"packages/lib/Move.toml":        "[package]\nname = \"Lib\"\n",
		"packages/lib/sources/lib.move": "module lib::lib {}",
		"packages/lib/build/Lib/x.move": "stale",
		"packages/lib/README.md":        "# Lib",
		"README.md":                     "# Repo",
	})

	var opens atomic.Int32
	f := fetcher.NewGitFetcher(func(_ context.Context, url string) (*git.Repository, error) {
		opens.Add(1)
		assert.Equal(t, "https://git.example.org/move/lib.git", url)
		return repo, nil
	})
	ctx := context.Background()
	want := map[string]string{
		"Move.toml":        "[package]\nname = \"Lib\"\n",
		"sources/lib.move": "module lib::lib {}",
	}

	for _, rev := range []string{"framework/testnet", "master", hash.String()} {
		t.Run(rev, func(t *testing.T) {
			coord := domain.GitCoordinate{Repo: "https://git.example.org/move/lib.git", Rev: rev, Subdir: "packages/lib"}
			files, err := f.Fetch(ctx, coord)
			require.NoError(t, err)
			assert.Equal(t, want, files)
		})
	}
	assert.Equal(t, int32(1), opens.Load(), "the repository is opened once")

	coord := domain.GitCoordinate{Repo: "https://git.example.org/move/lib.git", Rev: "master", Subdir: "packages/lib"}
	content, ok, err := f.FetchFile(ctx, coord, "Move.toml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want["Move.toml"], content)

	_, ok, err = f.FetchFile(ctx, coord, "Move.lock")
	require.NoError(t, err)
	assert.False(t, ok)

	missingDir := coord
	missingDir.Subdir = "packages/none"
	files, err := f.Fetch(ctx, missingDir)
	require.NoError(t, err)
	assert.Empty(t, files)

	badRev := coord
	badRev.Rev = "no-such-branch"
	_, err = f.Fetch(ctx, badRev)
	assert.ErrorIs(t, err, domain.ErrRevisionNotFound)
}
