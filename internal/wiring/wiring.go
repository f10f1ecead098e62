// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/knot/internal/adapters/cas"
	_ "go.trai.ch/knot/internal/adapters/config"
	_ "go.trai.ch/knot/internal/adapters/fetcher"
	_ "go.trai.ch/knot/internal/adapters/fs"
	_ "go.trai.ch/knot/internal/adapters/lockfile"
	_ "go.trai.ch/knot/internal/adapters/logger"
	_ "go.trai.ch/knot/internal/adapters/manifest"
	_ "go.trai.ch/knot/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/knot/internal/app"
)
