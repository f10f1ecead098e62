package ports

import (
	"context"

	"go.trai.ch/knot/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks

// Fetcher retrieves package content by repository coordinate.
type Fetcher interface {
	// Fetch returns every file below coord.Subdir at coord.Rev, keyed by path
	// relative to the subdirectory. An empty map means nothing exists there.
	Fetch(ctx context.Context, coord domain.GitCoordinate) (map[string]string, error)

	// FetchFile returns one file, with path relative to coord.Subdir.
	// The boolean is false when the file does not exist.
	FetchFile(ctx context.Context, coord domain.GitCoordinate, path string) (string, bool, error)
}

// FetcherFactory builds a Fetcher for one resolution from the fetch configuration.
type FetcherFactory interface {
	New(cfg domain.FetchConfig) (Fetcher, error)
}
