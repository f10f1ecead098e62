package ports

//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// ContentStore persists fetched package file sets keyed by an opaque string.
// Every operation takes the cache root directory explicitly.
type ContentStore interface {
	// Get retrieves the file set stored under key.
	// Returns nil, false, nil if not found.
	Get(root, key string) (map[string]string, bool, error)

	// Put stores the file set under key, replacing any previous entry.
	Put(root, key string, files map[string]string) error

	// Clear removes every entry below root.
	Clear(root string) error
}
