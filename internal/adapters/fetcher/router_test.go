package fetcher_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/adapters/fetcher"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestIsGitHub(t *testing.T) {
	assert.True(t, fetcher.IsGitHub("https://github.com/MystenLabs/sui.git"))
	assert.True(t, fetcher.IsGitHub("https://github.com/MystenLabs/sui"))
	assert.False(t, fetcher.IsGitHub("https://gitlab.com/group/project.git"))
	assert.False(t, fetcher.IsGitHub("file:///work/demo"))
}

func TestRouter_Route(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	local := mocks.NewMockFetcher(ctrl)
	gh := mocks.NewMockFetcher(ctrl)
	git := mocks.NewMockFetcher(ctrl)

	localCoord := domain.GitCoordinate{Repo: "file:///work/demo", Subdir: "lib"}
	ghCoord := domain.GitCoordinate{Repo: "https://github.com/MystenLabs/sui.git", Rev: "main"}
	gitCoord := domain.GitCoordinate{Repo: "https://git.example.org/move/lib.git", Rev: "v1"}

	local.EXPECT().Fetch(ctx, localCoord).Return(map[string]string{"Move.toml": "local"}, nil)
	gh.EXPECT().Fetch(ctx, ghCoord).Return(map[string]string{"Move.toml": "github"}, nil)
	git.EXPECT().FetchFile(ctx, gitCoord, "Move.lock").Return("git", true, nil)

	r := fetcher.NewRouter(local, gh, git)

	files, err := r.Fetch(ctx, localCoord)
	require.NoError(t, err)
	assert.Equal(t, "local", files["Move.toml"])

	files, err = r.Fetch(ctx, ghCoord)
	require.NoError(t, err)
	assert.Equal(t, "github", files["Move.toml"])

	content, ok, err := r.FetchFile(ctx, gitCoord, "Move.lock")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "git", content)
}

func TestLocalFetcher(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	ws := mocks.NewMockWorkspace(ctrl)
	coord := domain.GitCoordinate{Repo: "file:///work/demo", Subdir: "../lib"}
	dir := filepath.Join("/work", "lib")

	ws.EXPECT().ReadPackage(dir).Return(map[string]string{"Move.toml": "x"}, nil)
	ws.EXPECT().ReadFile(filepath.Join(dir, "Move.lock")).Return("", false, nil)

	f := fetcher.NewLocalFetcher(ws)
	files, err := f.Fetch(ctx, coord)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Move.toml": "x"}, files)

	_, ok, err := f.FetchFile(ctx, coord, "Move.lock")
	require.NoError(t, err)
	assert.False(t, ok)
}
