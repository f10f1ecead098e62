package fetcher

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/knot/internal/adapters/cas"
	"go.trai.ch/knot/internal/adapters/fs"
	"go.trai.ch/knot/internal/core/ports"
)

// NodeID is the unique identifier for the fetcher factory Graft node.
const NodeID graft.ID = "adapter.fetcher"

func init() {
	graft.Register(graft.Node[ports.FetcherFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{cas.NodeID, fs.WorkspaceNodeID},
		Run: func(ctx context.Context) (ports.FetcherFactory, error) {
			store, err := graft.Dep[ports.ContentStore](ctx)
			if err != nil {
				return nil, err
			}
			ws, err := graft.Dep[ports.Workspace](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(store, ws), nil
		},
	})
}
