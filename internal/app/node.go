package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/knot/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/knot/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/knot/internal/adapters/fetcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/knot/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/knot/internal/adapters/lockfile"  //nolint:depguard // Wired in app layer
	"go.trai.ch/knot/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/knot/internal/adapters/manifest"  //nolint:depguard // Wired in app layer
	"go.trai.ch/knot/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/knot/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			fetcher.NodeID,
			manifest.NodeID,
			lockfile.NodeID,
			fs.WorkspaceNodeID,
			cas.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	fetchers, err := graft.Dep[ports.FetcherFactory](ctx)
	if err != nil {
		return nil, err
	}

	manifests, err := graft.Dep[ports.ManifestParser](ctx)
	if err != nil {
		return nil, err
	}

	lockfiles, err := graft.Dep[ports.LockfileCodec](ctx)
	if err != nil {
		return nil, err
	}

	ws, err := graft.Dep[ports.Workspace](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.ContentStore](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, fetchers, manifests, lockfiles, ws, store, tracer, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    app,
		Logger: log,
	}, nil
}
