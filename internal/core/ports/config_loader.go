package ports

import "go.trai.ch/knot/internal/core/domain"

// ConfigLoader defines the interface for loading the knot configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds knot.yaml starting at dir and walking up, and returns the
	// configuration with defaults applied. A missing file yields the defaults.
	Load(dir string) (domain.Config, error)
}
