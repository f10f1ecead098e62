// Package fetcher implements ports.Fetcher for GitHub, generic git remotes and
// local directories, plus an on-disk caching decorator.
package fetcher

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/google/go-github/v59/github"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// GitHubFetcher reads repository content through the GitHub REST API:
// one recursive tree listing per revision, then blobs downloaded concurrently.
type GitHubFetcher struct {
	client      *github.Client
	concurrency int
}

// NewGitHubFetcher creates a fetcher using client. concurrency bounds parallel blob downloads.
func NewGitHubFetcher(client *github.Client, concurrency int) *GitHubFetcher {
	if concurrency <= 0 {
		concurrency = domain.DefaultFetchConcurrency
	}
	return &GitHubFetcher{client: client, concurrency: concurrency}
}

// Fetch downloads every package file below coord.Subdir.
func (f *GitHubFetcher) Fetch(ctx context.Context, coord domain.GitCoordinate) (map[string]string, error) {
	owner, repo, err := repoName(coord.Repo)
	if err != nil {
		return nil, err
	}

	sha, _, err := f.client.Repositories.GetCommitSHA1(ctx, owner, repo, coord.Rev, "")
	if err != nil {
		if isNotFound(err) {
			return nil, zerr.With(zerr.Wrap(domain.ErrRevisionNotFound, "resolve revision"), "coordinate", coord.String())
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "coordinate", coord.String())
	}

	tree, _, err := f.client.Git.GetTree(ctx, owner, repo, sha, true)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "coordinate", coord.String())
	}
	if tree.GetTruncated() {
		return nil, zerr.With(zerr.Wrap(domain.ErrFetchFailed, "tree listing truncated"), "coordinate", coord.String())
	}

	prefix := subdirPrefix(coord.Subdir)
	blobs := make(map[string]string)
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || !strings.HasPrefix(entry.GetPath(), prefix) {
			continue
		}
		rel := strings.TrimPrefix(entry.GetPath(), prefix)
		if domain.IsPackageFile(rel) {
			blobs[rel] = entry.GetSHA()
		}
	}

	var mu sync.Mutex
	files := make(map[string]string, len(blobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for rel, blobSHA := range blobs {
		g.Go(func() error {
			data, _, err := f.client.Git.GetBlobRaw(gctx, owner, repo, blobSHA)
			if err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "path", rel)
			}
			mu.Lock()
			files[rel] = string(data)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, zerr.With(err, "coordinate", coord.String())
	}
	return files, nil
}

// FetchFile downloads one file through the contents API.
func (f *GitHubFetcher) FetchFile(ctx context.Context, coord domain.GitCoordinate, rel string) (string, bool, error) {
	owner, repo, err := repoName(coord.Repo)
	if err != nil {
		return "", false, err
	}

	full := path.Join(domain.CleanSubdir(coord.Subdir), rel)
	opts := &github.RepositoryContentGetOptions{Ref: coord.Rev}
	file, _, _, err := f.client.Repositories.GetContents(ctx, owner, repo, full, opts)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "path", full)
	}
	if file == nil {
		// A directory listing.
		return "", false, nil
	}
	content, err := file.GetContent()
	if err != nil {
		return "", false, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "path", full)
	}
	return content, true, nil
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// subdirPrefix returns the tree path prefix of subdir, empty for the repository root.
func subdirPrefix(subdir string) string {
	if s := domain.CleanSubdir(subdir); s != "" {
		return s + "/"
	}
	return ""
}
