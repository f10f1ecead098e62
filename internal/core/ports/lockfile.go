package ports

import "go.trai.ch/knot/internal/core/domain"

//go:generate go run go.uber.org/mock/mockgen -source=lockfile.go -destination=mocks/mock_lockfile.go -package=mocks

// LockfileCodec decodes every supported Move.lock schema and encodes the current one.
type LockfileCodec interface {
	// Parse decodes lockfile text into one of the domain lockfile variants.
	Parse(text string) (domain.Lockfile, error)

	// Encode serializes a V4 lockfile deterministically.
	Encode(lock *domain.V4Lockfile) (string, error)
}
