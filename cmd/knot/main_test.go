package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/adapters/lockfile"
	"go.trai.ch/knot/internal/adapters/manifest"
	"go.trai.ch/knot/internal/adapters/telemetry"
	"go.trai.ch/knot/internal/app"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newComponents(t *testing.T, ctrl *gomock.Controller) (*app.Components, *mocks.MockConfigLoader, *mocks.MockLogger) {
	t.Helper()
	loader := mocks.NewMockConfigLoader(ctrl)
	log := mocks.NewMockLogger(ctrl)

	application := app.New(
		loader,
		mocks.NewMockFetcherFactory(ctrl),
		manifest.NewParser(),
		lockfile.NewCodec(),
		mocks.NewMockWorkspace(ctrl),
		mocks.NewMockContentStore(ctrl),
		telemetry.NewNoOpTracer(),
		log,
	)
	return &app.Components{App: application, Logger: log}, loader, log
}

func provide(c *app.Components) ComponentProvider {
	return func(_ context.Context) (*app.Components, func(), error) {
		return c, func() {}, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	components, _, _ := newComponents(t, ctrl)

	stdout := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stdout, new(bytes.Buffer), provide(components))
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "knot version")
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that command failures are logged and exit 1.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	components, loader, log := newComponents(t, ctrl)

	loadErr := errors.New("broken knot.yaml")
	loader.EXPECT().Load(gomock.Any()).Return(domain.Config{}, loadErr)
	log.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, loadErr)
	})

	exitCode := run(context.Background(), []string{"graph", t.TempDir()}, new(bytes.Buffer), new(bytes.Buffer), provide(components))
	assert.Equal(t, 1, exitCode)
}

// TestRun_VerifyStale verifies that a stale lockfile exits 1 without logging an error.
func TestRun_VerifyStale(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	factory := mocks.NewMockFetcherFactory(ctrl)
	fetch := mocks.NewMockFetcher(ctrl)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Move.toml"), []byte("[package]\nname = \"Demo\"\n"), 0o600))

	cfg := domain.DefaultConfig()
	cfg.Resolution.ImplicitDeps = false
	loader.EXPECT().Load(gomock.Any()).Return(cfg, nil)
	factory.EXPECT().New(gomock.Any()).Return(fetch, nil)
	fetch.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(map[string]string{
		"Move.toml": "[package]\nname = \"Demo\"\n",
		"Move.lock": "[move]\nversion = 2\ndependencies = [{ name = \"Removed\" }]\n",
	}, nil)

	application := app.New(loader, factory, manifest.NewParser(), lockfile.NewCodec(),
		mocks.NewMockWorkspace(ctrl), mocks.NewMockContentStore(ctrl), telemetry.NewNoOpTracer(), log)

	stdout := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"verify", dir}, stdout, new(bytes.Buffer),
		provide(&app.Components{App: application, Logger: log}))
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stdout.String(), "stale")
}
