package fetcher

import (
	"context"
	"regexp"

	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports"
)

var commitID = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// IsImmutable reports whether coord pins an exact commit of a remote repository.
// Only such coordinates are safe to serve from the cache.
func IsImmutable(coord domain.GitCoordinate) bool {
	return !domain.IsLocalRepo(coord.Repo) && commitID.MatchString(coord.Rev)
}

// CachedFetcher stores the file sets of immutable coordinates in a ContentStore.
type CachedFetcher struct {
	next  ports.Fetcher
	store ports.ContentStore
	root  string
}

// NewCachedFetcher wraps next with a cache rooted at root.
func NewCachedFetcher(next ports.Fetcher, store ports.ContentStore, root string) *CachedFetcher {
	return &CachedFetcher{next: next, store: store, root: root}
}

// Fetch implements ports.Fetcher. Cache read and write failures fall through
// to the wrapped fetcher.
func (c *CachedFetcher) Fetch(ctx context.Context, coord domain.GitCoordinate) (map[string]string, error) {
	if !IsImmutable(coord) {
		return c.next.Fetch(ctx, coord)
	}

	key := coord.Key()
	if files, ok, err := c.store.Get(c.root, key); err == nil && ok {
		return files, nil
	}

	files, err := c.next.Fetch(ctx, coord)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		_ = c.store.Put(c.root, key, files)
	}
	return files, nil
}

// FetchFile implements ports.Fetcher. Files of a cached package are answered
// from its entry.
func (c *CachedFetcher) FetchFile(ctx context.Context, coord domain.GitCoordinate, path string) (string, bool, error) {
	if IsImmutable(coord) {
		if files, ok, err := c.store.Get(c.root, coord.Key()); err == nil && ok {
			content, found := files[path]
			return content, found, nil
		}
	}
	return c.next.FetchFile(ctx, coord, path)
}
