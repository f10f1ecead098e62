package fetcher

import (
	"os"

	"github.com/google/go-github/v59/github"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports"
)

// Factory implements ports.FetcherFactory. It assembles the fetcher chain:
// a CachedFetcher over a Router of local, GitHub and generic git fetchers.
type Factory struct {
	store ports.ContentStore
	ws    ports.Workspace

	// NewGitHubClient builds the API client. Tests point it at a local server.
	NewGitHubClient func(token string) *github.Client
}

// NewFactory creates a Factory.
func NewFactory(store ports.ContentStore, ws ports.Workspace) *Factory {
	return &Factory{store: store, ws: ws, NewGitHubClient: defaultGitHubClient}
}

func defaultGitHubClient(token string) *github.Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// New implements ports.FetcherFactory.
func (f *Factory) New(cfg domain.FetchConfig) (ports.Fetcher, error) {
	var token string
	if cfg.TokenEnv != "" {
		token = os.Getenv(cfg.TokenEnv)
	}
	root := cfg.CacheDir
	if root == "" {
		root = domain.DefaultFetchCachePath()
	}

	router := NewRouter(
		NewLocalFetcher(f.ws),
		NewGitHubFetcher(f.NewGitHubClient(token), cfg.Concurrency),
		NewGitFetcher(nil),
	)
	return NewCachedFetcher(router, f.store, root), nil
}
