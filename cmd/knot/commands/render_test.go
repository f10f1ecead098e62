package commands

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"go.trai.ch/knot/internal/app"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/engine/resolver"
)

func sampleView() *app.GraphView {
	stdlib := domain.GitCoordinate{
		Repo:   "https://github.com/MystenLabs/sui.git",
		Rev:    "framework/testnet",
		Subdir: "crates/sui-framework/packages/move-stdlib",
	}
	lib := domain.GitCoordinate{Repo: "file:///work/demo", Subdir: "../lib"}

	return &app.GraphView{
		Environment: "testnet",
		Packages: []app.GraphPackage{
			{
				ID:            "MoveStdlib",
				Name:          "MoveStdlib",
				Coordinate:    stdlib,
				BuildAddress:  domain.MustParseAddress("0x1"),
				OutputAddress: domain.MustParseAddress("0x1"),
			},
			{ID: "Lib", Name: "Lib", Coordinate: lib},
			{ID: "Demo", Name: "Demo", Root: true, Dependencies: []string{"Lib", "MoveStdlib"}},
		},
		Outcomes: []domain.EdgeOutcome{
			{From: "Demo", Alias: "Lib", Coordinate: lib, Status: domain.EdgeResolved},
			{From: "Demo", Alias: "MoveStdlib", Coordinate: stdlib, Status: domain.EdgeResolved},
			{From: "Lib", Alias: "Gone", Status: domain.EdgeSkipped, Reason: errors.New("no package at gone")},
		},
	}
}

func TestRenderGraph(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name       string
		outcomes   bool
		goldenName string
	}{
		{name: "packages only", outcomes: false, goldenName: "graph"},
		{name: "with outcomes", outcomes: true, goldenName: "graph_outcomes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderGraph(&buf, sampleView(), tt.outcomes)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestRenderReport(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name       string
		report     *resolver.Report
		goldenName string
	}{
		{
			name: "stale",
			report: &resolver.Report{
				Environment: "testnet",
				Schema:      domain.SchemaV4,
				Stale:       true,
				Reason:      "manifest digest of C changed",
				Pins: []resolver.PinStatus{
					{ID: "Demo", State: resolver.PinValid},
					{ID: "C", State: resolver.PinStale},
					{ID: "Gone", State: resolver.PinMissing, Reason: "package has no manifest"},
				},
			},
			goldenName: "verify_stale",
		},
		{
			name: "valid",
			report: &resolver.Report{
				Environment: "mainnet",
				Schema:      domain.SchemaLegacy,
			},
			goldenName: "verify_valid",
		},
		{
			name:       "missing",
			report:     &resolver.Report{Environment: "devnet", Missing: true},
			goldenName: "verify_missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderReport(&buf, tt.report)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}
