package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/engine/resolver"
)

func TestValidatePins(t *testing.T) {
	ctx := context.Background()
	opts := resolver.Options{Environment: "testnet"}

	t.Run("valid", func(t *testing.T) {
		f, _ := lockedFixture(t)
		report, err := f.resolver.ValidatePins(ctx, rootCoord, opts)
		require.NoError(t, err)

		assert.Equal(t, domain.SchemaV4, report.Schema)
		assert.False(t, report.Stale)
		assert.False(t, report.Missing)
		require.Len(t, report.Pins, 4)
		for _, p := range report.Pins {
			assert.Equal(t, resolver.PinValid, p.State, p.ID)
		}
	})

	t.Run("stale", func(t *testing.T) {
		f, _ := lockedFixture(t)
		f.fetcher.put(gitCoord("C", "v1"), pkgFiles("C", gitDep("D", gitCoord("D", "v1"))))

		report, err := f.resolver.ValidatePins(ctx, rootCoord, opts)
		require.NoError(t, err)
		assert.True(t, report.Stale)
		assert.Contains(t, report.Reason, "C")
	})

	t.Run("missing source", func(t *testing.T) {
		f, _ := lockedFixture(t)
		delete(f.fetcher.pkgs, gitCoord("C", "v1").Key())

		report, err := f.resolver.ValidatePins(ctx, rootCoord, opts)
		require.NoError(t, err)
		assert.True(t, report.Stale)

		var states []resolver.PinState
		for _, p := range report.Pins {
			if p.ID == "C" {
				states = append(states, p.State)
			}
		}
		assert.Equal(t, []resolver.PinState{resolver.PinMissing}, states)
	})

	t.Run("no lockfile", func(t *testing.T) {
		f := newFixture(t)
		f.fetcher.put(rootCoord, pkgFiles("Demo"))

		report, err := f.resolver.ValidatePins(ctx, rootCoord, opts)
		require.NoError(t, err)
		assert.True(t, report.Missing)
	})

	t.Run("legacy root names", func(t *testing.T) {
		f := newFixture(t)
		files := pkgFiles("Demo", gitDep("A", gitCoord("A", "v1")))
		files[domain.LockfileName] = "[move]\ndependencies = [\"A\", \"B\"]\n"
		f.fetcher.put(rootCoord, files)

		report, err := f.resolver.ValidatePins(ctx, rootCoord, opts)
		require.NoError(t, err)
		assert.Equal(t, domain.SchemaLegacy, report.Schema)
		assert.True(t, report.Stale)
	})
}
