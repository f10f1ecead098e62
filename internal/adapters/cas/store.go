// Package cas implements the on-disk content store for fetched package file sets.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	lockFileName   = ".lock"
	maxLockRetries = 50
	lockRetryDelay = 10 * time.Millisecond
)

// entry is the JSON document stored per key.
type entry struct {
	Key   string            `json:"key"`
	Files map[string]string `json:"files"`
}

// Store implements ports.ContentStore using a file-per-key strategy.
// Writers hold an exclusive flock on the root; entries are replaced atomically.
type Store struct{}

// NewStore creates a new ContentStore.
func NewStore() *Store {
	return &Store{}
}

// Get retrieves the file set stored under key.
func (s *Store) Get(root, key string) (map[string]string, bool, error) {
	filename := s.getFilename(root, key)
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "path", filename)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "path", filename)
	}
	// Hash collisions are treated as misses.
	if e.Key != key {
		return nil, false, nil
	}
	if e.Files == nil {
		e.Files = map[string]string{}
	}
	return e.Files, true, nil
}

// Put stores the file set under key.
func (s *Store) Put(root, key string, files map[string]string) error {
	data, err := json.Marshal(entry{Key: key, Files: files})
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	if err := os.MkdirAll(root, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheCreateFailed.Error()), "path", root)
	}

	filename := s.getFilename(root, key)
	return withLock(root, func() error {
		if err := renameio.WriteFile(filename, data, domain.FilePerm); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", filename)
		}
		return nil
	})
}

// Clear removes every entry below root. A missing root is not an error.
func (s *Store) Clear(root string) error {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return withLock(root, func() error {
		entries, err := os.ReadDir(root)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", root)
		}
		for _, e := range entries {
			if e.Name() == lockFileName {
				continue
			}
			if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", e.Name())
			}
		}
		return nil
	})
}

func (s *Store) getFilename(root, key string) string {
	hash := strconv.FormatUint(xxhash.Sum64String(key), 16)
	return filepath.Join(root, hash+".json")
}

// withLock runs fn while holding the exclusive lock of root.
func withLock(root string, fn func() error) error {
	lock := flock.New(filepath.Join(root, lockFileName))

	var locked bool
	var err error
	for range maxLockRetries {
		locked, err = lock.TryLock()
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCacheLocked.Error()), "path", root)
		}
		if locked {
			break
		}
		time.Sleep(lockRetryDelay)
	}
	if !locked {
		return zerr.With(zerr.Wrap(domain.ErrCacheLocked, "acquire cache lock"), "path", root)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	return fn()
}
