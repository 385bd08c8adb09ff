package catalog

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"

	"github.com/lixenwraith/wfc3d/lattice"
	"github.com/lixenwraith/wfc3d/moduleset"
	"github.com/lixenwraith/wfc3d/toml"
)

// moduleDTO is the on-disk shape of one module entry. The six-direction
// fields (Connectors, Walkable, Neighbors) are always ordered +x, +y, +z,
// -x, -y, -z, matching lattice.Directions — the in-house TOML decoder only
// round-trips slices, not fixed-size arrays, so the direction axis is a
// plain ordered list rather than a keyed table.
type moduleDTO struct {
	Name        string     `toml:"name"`
	Probability float64    `toml:"probability"`
	Connectors  []int      `toml:"connectors"`
	Walkable    []bool     `toml:"walkable"`
	Neighbors   [][]string `toml:"neighbors"`
}

type catalogDTO struct {
	Module []moduleDTO `toml:"module"`
}

// LoadTOML parses a catalog from TOML source. Neighbor lists reference
// other modules by name; names are resolved to indices in catalog order
// before the usual New validation (zero-supporter rejection) runs.
func LoadTOML(data []byte) (*Catalog, error) {
	var dto catalogDTO
	if err := toml.Unmarshal(data, &dto); err != nil {
		return nil, pkgerrors.Wrap(err, "catalog: parse toml")
	}

	nameIndex := make(map[string]int, len(dto.Module))
	for i, m := range dto.Module {
		nameIndex[m.Name] = i
	}

	modules := make([]Module, len(dto.Module))
	for i, m := range dto.Module {
		if len(m.Connectors) != lattice.DirCount || len(m.Walkable) != lattice.DirCount || len(m.Neighbors) != lattice.DirCount {
			return nil, fmt.Errorf("catalog: module %q: connectors, walkable, and neighbors must each list exactly %d entries (one per direction, +x +y +z -x -y -z)",
				m.Name, lattice.DirCount)
		}

		mod := Module{Name: m.Name, Probability: m.Probability}
		for _, d := range lattice.Directions {
			mod.Connectors[d] = m.Connectors[d]
			mod.Walkable[d] = m.Walkable[d]

			set := moduleset.New(len(dto.Module))
			for _, nbName := range m.Neighbors[d] {
				j, ok := nameIndex[nbName]
				if !ok {
					return nil, fmt.Errorf("catalog: module %q: unknown neighbor %q on direction %s", m.Name, nbName, d)
				}
				set.Add(j)
			}
			mod.PossibleNeighbors[d] = set
		}
		modules[i] = mod
	}
	return New(modules)
}

// LoadTOMLFile reads path and parses it as a catalog.
func LoadTOMLFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "catalog: read file")
	}
	return LoadTOML(data)
}
