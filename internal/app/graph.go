package app

import (
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/engine/compile"
	"go.trai.ch/knot/internal/engine/resolver"
)

// GraphView is the compile order of a resolution as presented by the graph command.
type GraphView struct {
	Environment  string
	FromLockfile bool
	Stale        bool

	// Packages are in compiler input order, root last.
	Packages  []GraphPackage
	Outcomes  []domain.EdgeOutcome
	Conflicts []domain.AddressConflict
}

// GraphPackage is one compile unit with its direct dependencies.
type GraphPackage struct {
	ID            string
	Name          string
	Root          bool
	Coordinate    domain.GitCoordinate
	BuildAddress  domain.Address
	OutputAddress domain.Address
	// Dependencies are unique IDs of the package's direct dependencies.
	Dependencies []string
}

// NewGraphView builds the view of a resolution result.
func NewGraphView(res *resolver.Result) *GraphView {
	g := res.Graph
	ids := g.CreateIDs()

	view := &GraphView{
		Environment:  res.Environment,
		FromLockfile: res.FromLockfile,
		Stale:        res.Stale,
		Outcomes:     res.Outcomes,
		Conflicts:    res.Conflicts,
	}

	add := func(unit compile.Unit, root bool) {
		p := GraphPackage{
			ID:            unit.ID,
			Name:          unit.Name,
			Root:          root,
			Coordinate:    g.Package(unit.Index).Coordinate,
			BuildAddress:  unit.BuildAddress,
			OutputAddress: unit.OutputAddress,
		}
		for _, child := range g.ImmediateDependencies(unit.Index) {
			p.Dependencies = append(p.Dependencies, ids[child])
		}
		view.Packages = append(view.Packages, p)
	}

	for _, unit := range res.Compilation.Dependencies {
		add(unit, false)
	}
	add(res.Compilation.Root, true)
	return view
}
