package compile

import (
	"encoding/json"
	"path"

	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// DependenciesDir is the directory dependency files are placed under in the
// compiler input.
const DependenciesDir = "dependencies"

// CompilerInput is the JSON document handed to the Move compiler.
type CompilerInput struct {
	Files        map[string]string `json:"files"`
	Dependencies []CompilerPackage `json:"dependencies"`
}

// CompilerPackage is one dependency unit in the compiler input.
type CompilerPackage struct {
	Name           string            `json:"name"`
	Files          map[string]string `json:"files"`
	Edition        string            `json:"edition"`
	AddressMapping map[string]string `json:"addressMapping"`
	// PublishedIDForOutput is omitted for unpublished packages.
	PublishedIDForOutput string `json:"publishedIdForOutput,omitempty"`
}

// CompilerInput converts the compilation into the compiler's JSON contract.
// Dependencies keep compiler input order.
func (c *Compilation) CompilerInput() CompilerInput {
	input := CompilerInput{
		Files:        unitFiles(c.Root, ""),
		Dependencies: make([]CompilerPackage, 0, len(c.Dependencies)),
	}

	for _, unit := range c.Dependencies {
		pkg := CompilerPackage{
			Name:           unit.ID,
			Files:          unitFiles(unit, path.Join(DependenciesDir, unit.ID)),
			Edition:        string(unit.Edition),
			AddressMapping: make(map[string]string, len(unit.AddressMapping)),
		}
		if pkg.Edition == "" {
			pkg.Edition = string(domain.EditionLegacy)
		}
		for name, addr := range unit.AddressMapping {
			pkg.AddressMapping[name] = addr.String()
		}
		if !unit.OutputAddress.IsZero() {
			pkg.PublishedIDForOutput = unit.OutputAddress.String()
		}
		input.Dependencies = append(input.Dependencies, pkg)
	}
	return input
}

// MarshalCompilerInput encodes the compiler input as indented JSON.
func (c *Compilation) MarshalCompilerInput() ([]byte, error) {
	data, err := json.MarshalIndent(c.CompilerInput(), "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrCompileFailed.Error())
	}
	return append(data, '\n'), nil
}

func unitFiles(unit Unit, dir string) map[string]string {
	files := make(map[string]string, len(unit.SourceFiles)+1)
	files[path.Join(dir, domain.ManifestFileName)] = unit.Manifest
	for _, f := range unit.SourceFiles {
		files[path.Join(dir, f.Path)] = f.Content
	}
	return files
}
