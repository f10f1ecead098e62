package fetcher

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// Opener returns a repository for url.
type Opener func(ctx context.Context, url string) (*git.Repository, error)

// CloneInMemory clones url with all branches and tags into memory, without a worktree.
func CloneInMemory(ctx context.Context, url string) (*git.Repository, error) {
	return git.CloneContext(ctx, memory.NewStorage(), nil, &git.CloneOptions{
		URL:  url,
		Tags: git.AllTags,
	})
}

// GitFetcher reads repository content from git objects. Each repository is
// opened once per fetcher and shared by every revision read from it.
type GitFetcher struct {
	open Opener

	mu    sync.Mutex
	repos map[string]*git.Repository
	group singleflight.Group
}

// NewGitFetcher creates a GitFetcher. A nil open clones into memory.
func NewGitFetcher(open Opener) *GitFetcher {
	if open == nil {
		open = CloneInMemory
	}
	return &GitFetcher{open: open, repos: make(map[string]*git.Repository)}
}

// Fetch implements ports.Fetcher.
func (f *GitFetcher) Fetch(ctx context.Context, coord domain.GitCoordinate) (map[string]string, error) {
	root, err := f.rootTree(ctx, coord)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string)
	sub := domain.CleanSubdir(coord.Subdir)
	tree := root
	if sub != "" {
		tree, err = root.Tree(sub)
		if errors.Is(err, object.ErrDirectoryNotFound) {
			return files, nil
		}
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "coordinate", coord.String())
		}
	}

	err = tree.Files().ForEach(func(file *object.File) error {
		if !domain.IsPackageFile(file.Name) {
			return nil
		}
		content, err := file.Contents()
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "path", file.Name)
		}
		files[file.Name] = content
		return nil
	})
	if err != nil {
		return nil, zerr.With(err, "coordinate", coord.String())
	}
	return files, nil
}

// FetchFile implements ports.Fetcher.
func (f *GitFetcher) FetchFile(ctx context.Context, coord domain.GitCoordinate, rel string) (string, bool, error) {
	root, err := f.rootTree(ctx, coord)
	if err != nil {
		return "", false, err
	}

	full := path.Join(domain.CleanSubdir(coord.Subdir), rel)
	file, err := root.File(full)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return "", false, nil
		}
		return "", false, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "path", full)
	}

	reader, err := file.Reader()
	if err != nil {
		return "", false, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "path", full)
	}
	defer func() {
		_ = reader.Close()
	}()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", false, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "path", full)
	}
	return string(data), true, nil
}

func (f *GitFetcher) rootTree(ctx context.Context, coord domain.GitCoordinate) (*object.Tree, error) {
	repo, err := f.repository(ctx, coord.Repo)
	if err != nil {
		return nil, err
	}

	hash, err := resolveRevision(repo, coord.Rev)
	if err != nil {
		return nil, zerr.With(err, "coordinate", coord.String())
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "coordinate", coord.String())
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "coordinate", coord.String())
	}
	return tree, nil
}

func (f *GitFetcher) repository(ctx context.Context, url string) (*git.Repository, error) {
	f.mu.Lock()
	repo, ok := f.repos[url]
	f.mu.Unlock()
	if ok {
		return repo, nil
	}

	v, err, _ := f.group.Do(url, func() (any, error) {
		repo, err := f.open(ctx, url)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "repo", url)
		}
		f.mu.Lock()
		f.repos[url] = repo
		f.mu.Unlock()
		return repo, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*git.Repository), nil
}

// resolveRevision accepts commit ids, tags, local branches and remote-tracking
// branches of origin. An empty revision means HEAD.
func resolveRevision(repo *git.Repository, rev string) (*plumbing.Hash, error) {
	candidates := []string{rev}
	switch {
	case rev == "":
		candidates = []string{"HEAD"}
	case !strings.HasPrefix(rev, "origin/"):
		candidates = append(candidates, "origin/"+rev)
	}
	for _, c := range candidates {
		if hash, err := repo.ResolveRevision(plumbing.Revision(c)); err == nil {
			return hash, nil
		}
	}
	return nil, zerr.With(zerr.Wrap(domain.ErrRevisionNotFound, "resolve revision"), "rev", rev)
}
