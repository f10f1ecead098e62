package resolver_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"go.trai.ch/knot/internal/adapters/lockfile"
	"go.trai.ch/knot/internal/adapters/manifest"
	"go.trai.ch/knot/internal/adapters/telemetry"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports/mocks"
	"go.trai.ch/knot/internal/engine/resolver"
	"go.uber.org/mock/gomock"
)

var rootCoord = domain.GitCoordinate{Repo: "file:///work/demo"}

func gitCoord(name, rev string) domain.GitCoordinate {
	return domain.GitCoordinate{Repo: "https://example.com/" + strings.ToLower(name) + ".git", Rev: rev}
}

// memFetcher serves packages from memory, keyed by coordinate.
type memFetcher struct {
	pkgs    map[string]map[string]string
	fetched []string
}

func newMemFetcher() *memFetcher {
	return &memFetcher{pkgs: make(map[string]map[string]string)}
}

func (f *memFetcher) put(coord domain.GitCoordinate, files map[string]string) {
	f.pkgs[coord.Key()] = files
}

func (f *memFetcher) Fetch(_ context.Context, coord domain.GitCoordinate) (map[string]string, error) {
	f.fetched = append(f.fetched, coord.Key())
	files, ok := f.pkgs[coord.Key()]
	if !ok {
		return nil, fmt.Errorf("no package at %s", coord)
	}
	return files, nil
}

func (f *memFetcher) FetchFile(_ context.Context, coord domain.GitCoordinate, path string) (string, bool, error) {
	files, ok := f.pkgs[coord.Key()]
	if !ok {
		return "", false, nil
	}
	content, ok := files[path]
	return content, ok, nil
}

// pkgFiles returns a package with one source file. deps are dependency
// table lines such as `A = { local = "../a" }`.
func pkgFiles(name string, deps ...string) map[string]string {
	var b strings.Builder
	fmt.Fprintf(&b, "[package]\nname = %q\nedition = \"2024.beta\"\n", name)
	if len(deps) > 0 {
		b.WriteString("\n[dependencies]\n")
		for _, d := range deps {
			b.WriteString(d + "\n")
		}
	}
	fmt.Fprintf(&b, "\n[addresses]\n%s = \"0x0\"\n", strings.ToLower(name))

	return map[string]string{
		domain.ManifestFileName: b.String(),
		"sources/" + strings.ToLower(name) + ".move": "module " + strings.ToLower(name) + "::m {}\n",
	}
}

func gitDep(alias string, coord domain.GitCoordinate) string {
	line := fmt.Sprintf("%s = { git = %q, rev = %q", alias, coord.Repo, coord.Rev)
	if coord.Subdir != "" {
		line += fmt.Sprintf(", subdir = %q", coord.Subdir)
	}
	return line + " }"
}

type fixture struct {
	fetcher  *memFetcher
	resolver *resolver.Resolver
	warnings []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)

	f := &fixture{fetcher: newMemFetcher()}
	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		f.warnings = append(f.warnings, msg)
	}).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()

	f.resolver = resolver.New(f.fetcher, manifest.NewParser(), lockfile.NewCodec(), telemetry.NewNoOpTracer(), log)
	return f
}

func (f *fixture) resolve(t *testing.T, opts resolver.Options) (*resolver.Result, error) {
	t.Helper()
	if opts.Environment == "" {
		opts.Environment = "testnet"
	}
	return f.resolver.Resolve(context.Background(), rootCoord, opts)
}

// lock writes the V4 lockfile of res into the root package.
func (f *fixture) lock(t *testing.T, res *resolver.Result) string {
	t.Helper()
	text, err := lockfile.NewCodec().Encode(res.Lockfile())
	if err != nil {
		t.Fatalf("encode lockfile: %v", err)
	}
	f.fetcher.pkgs[rootCoord.Key()][domain.LockfileName] = text
	return text
}

func statuses(outcomes []domain.EdgeOutcome) []string {
	out := make([]string, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.From + "->" + o.Alias + ":" + string(o.Status)
	}
	sort.Strings(out)
	return out
}
