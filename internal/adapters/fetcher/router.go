package fetcher

import (
	"context"

	giturl "github.com/kubescape/go-git-url"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports"
	"go.trai.ch/zerr"
)

const githubHost = "github.com"

// Router dispatches each coordinate to the fetcher that serves its host:
// file:// directories go to local, github.com to the API client and every
// other remote to the generic git fetcher.
type Router struct {
	local  ports.Fetcher
	github ports.Fetcher
	git    ports.Fetcher
}

// NewRouter creates a Router. github may be nil, in which case GitHub
// repositories are served by git.
func NewRouter(local, github, git ports.Fetcher) *Router {
	return &Router{local: local, github: github, git: git}
}

// Fetch implements ports.Fetcher.
func (r *Router) Fetch(ctx context.Context, coord domain.GitCoordinate) (map[string]string, error) {
	return r.route(coord).Fetch(ctx, coord)
}

// FetchFile implements ports.Fetcher.
func (r *Router) FetchFile(ctx context.Context, coord domain.GitCoordinate, path string) (string, bool, error) {
	return r.route(coord).FetchFile(ctx, coord, path)
}

func (r *Router) route(coord domain.GitCoordinate) ports.Fetcher {
	if domain.IsLocalRepo(coord.Repo) {
		return r.local
	}
	if r.github != nil && IsGitHub(coord.Repo) {
		return r.github
	}
	return r.git
}

// IsGitHub reports whether repo is hosted on github.com.
func IsGitHub(repo string) bool {
	u, err := giturl.NewGitURL(repo)
	if err != nil {
		return false
	}
	return u.GetHostName() == githubHost
}

// repoName returns the owner and repository name of a hosted repository URL.
func repoName(repo string) (owner, name string, err error) {
	u, err := giturl.NewGitURL(repo)
	if err != nil {
		return "", "", zerr.With(zerr.Wrap(err, domain.ErrInvalidRepository.Error()), "repo", repo)
	}
	if u.GetOwnerName() == "" || u.GetRepoName() == "" {
		return "", "", zerr.With(zerr.Wrap(domain.ErrInvalidRepository, "missing owner or name"), "repo", repo)
	}
	return u.GetOwnerName(), u.GetRepoName(), nil
}
