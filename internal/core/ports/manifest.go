package ports

import "go.trai.ch/knot/internal/core/domain"

//go:generate go run go.uber.org/mock/mockgen -source=manifest.go -destination=mocks/mock_manifest.go -package=mocks

// ManifestParser decodes package manifests and publication records.
type ManifestParser interface {
	// Parse decodes Move.toml text.
	Parse(text string) (*domain.Manifest, error)

	// ParsePublished decodes the env section of Published.toml text.
	// The boolean is false when the file has no entry for env.
	ParsePublished(text, env string) (domain.Publication, bool, error)
}
