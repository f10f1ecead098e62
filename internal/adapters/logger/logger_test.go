package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New().(*logger.Logger)
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Golden(t *testing.T) {
	tests := []struct {
		name       string
		log        func(*logger.Logger)
		goldenName string
	}{
		{
			name:       "info",
			log:        func(l *logger.Logger) { l.Info("resolved 3 packages") },
			goldenName: "info_basic",
		},
		{
			name:       "warn",
			log:        func(l *logger.Logger) { l.Warn("Move.lock is stale, resolving from manifests") },
			goldenName: "warn_basic",
		},
		{
			name: "error chain",
			log: func(l *logger.Logger) {
				l.Error(zerr.Wrap(zerr.Wrap(errors.New("connection refused"), "failed to fetch Sui"), "resolution failed"))
			},
			goldenName: "error_chain",
		},
		{
			name: "error metadata",
			log: func(l *logger.Logger) {
				l.Error(zerr.With(zerr.Wrap(errors.New("404 Not Found"), "revision not found"), "rev", "deadbeef"))
			},
			goldenName: "error_metadata",
		},
		{
			name:       "nil error",
			log:        func(l *logger.Logger) { l.Error(nil) },
			goldenName: "error_nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			tt.log(lg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_JSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)

	lg.Error(zerr.With(zerr.Wrap(errors.New("boom"), "fetch failed"), "repo", "sui"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "fetch failed", record["msg"])
	assert.Equal(t, "sui", record["repo"])
	assert.Contains(t, record["error"], "boom")

	buf.Reset()
	lg.SetJSON(false)
	lg.Info("plain")
	assert.Equal(t, "plain\n", buf.String())
}

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := slog.New(logger.NewPrettyHandler(buf, nil)).With("env", "testnet").WithGroup("phase")
	lg.Info("done", "name", "fetch")
	lg.Debug("hidden")

	assert.Equal(t, "done env=testnet phase.name=fetch\n", buf.String())
}
