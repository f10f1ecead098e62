package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/adapters/lockfile"
	"go.trai.ch/knot/internal/adapters/manifest"
	"go.trai.ch/knot/internal/adapters/telemetry"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports"
	"go.trai.ch/knot/internal/core/ports/mocks"
	"go.trai.ch/knot/internal/engine/resolver"
	"go.uber.org/mock/gomock"
)

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return log
}

func TestResolve_PhaseSpans(t *testing.T) {
	ctrl := gomock.NewController(t)
	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)

	var names []string
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, name string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			names = append(names, name)
			return ctx, span
		}).AnyTimes()
	span.EXPECT().End().AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).Times(0)

	fetcher := newMemFetcher()
	a := gitCoord("A", "v1")
	fetcher.put(rootCoord, pkgFiles("Demo", gitDep("A", a)))
	fetcher.put(a, pkgFiles("A"))

	r := resolver.New(fetcher, manifest.NewParser(), lockfile.NewCodec(), tracer, quietLogger(ctrl))
	_, err := r.Resolve(context.Background(), rootCoord, resolver.Options{Environment: "testnet"})
	require.NoError(t, err)

	assert.Equal(t, []string{"resolve", "load", "traverse", "unify", "compile"}, names)
}

func TestResolve_ManifestParseErrorIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	parser := mocks.NewMockManifestParser(ctrl)
	parseErr := errors.New("bad manifest")
	parser.EXPECT().Parse(gomock.Any()).Return(nil, parseErr)

	fetcher := newMemFetcher()
	fetcher.put(rootCoord, pkgFiles("Demo"))

	r := resolver.New(fetcher, parser, lockfile.NewCodec(), telemetry.NewNoOpTracer(), quietLogger(ctrl))
	_, err := r.Resolve(context.Background(), rootCoord, resolver.Options{Environment: "testnet"})
	require.ErrorIs(t, err, parseErr)
	assert.ErrorContains(t, err, "load root package")
}

func TestResolve_LockfileDecodeFailureIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	codec := mocks.NewMockLockfileCodec(ctrl)
	// once for the publication record, once as the previous lockfile
	codec.EXPECT().Parse("opaque").Return(nil, domain.ErrLockfileParseFailed).Times(2)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	var warnings []string
	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		warnings = append(warnings, msg)
	}).AnyTimes()

	fetcher := newMemFetcher()
	files := pkgFiles("Demo")
	files[domain.LockfileName] = "opaque"
	fetcher.put(rootCoord, files)

	r := resolver.New(fetcher, manifest.NewParser(), codec, telemetry.NewNoOpTracer(), log)
	res, err := r.Resolve(context.Background(), rootCoord, resolver.Options{Environment: "testnet"})
	require.NoError(t, err)

	assert.Nil(t, res.Previous)
	assert.False(t, res.FromLockfile)
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Contains(t, w, domain.ErrLockfileParseFailed.Error())
	}
}
