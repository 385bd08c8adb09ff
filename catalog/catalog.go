// Package catalog holds the immutable module table consumed by the solver:
// per-module probabilities and the precomputed possible_neighbors relation.
// Catalog authoring itself — where PossibleNeighbors comes from — is an
// external collaborator; this package only validates and indexes what it is
// given.
package catalog

import (
	"math"

	"github.com/lixenwraith/wfc3d/lattice"
	"github.com/lixenwraith/wfc3d/moduleset"
	"github.com/lixenwraith/wfc3d/wfcerr"
)

// Module is one immutable catalog entry.
type Module struct {
	// Index is the module's position in the catalog, i ∈ [0, N).
	Index int
	// Name is a human-readable label, used only in diagnostics.
	Name string
	// Probability is p_i, the collapse weight. Must be > 0.
	Probability float64
	// PossibleNeighbors[d] is the set of module indices allowed as the
	// neighbor on direction d.
	PossibleNeighbors [lattice.DirCount]moduleset.Set
	// Connectors[d] tags the module's face on direction d with a connector
	// id, for boundary enforcement (EnforceConnector/ExcludeConnector) that
	// filters by face identity rather than by full neighbor-set membership.
	// Zero value means "untagged" and matches only other untagged faces.
	Connectors [lattice.DirCount]int
	// Walkable[d] marks whether the module's face on direction d is
	// traversable, for EnforceWalkway.
	Walkable [lattice.DirCount]bool
}

// Catalog is the immutable, shared-by-reference module table. No slot ever
// mutates it.
type Catalog struct {
	modules []Module
	plogp   []float64
	// initHealth[d][i] = |PossibleNeighbors[i][d]|, the maximum support i
	// can ever receive from direction d — the same direction RemoveModules
	// walks when it decrements a neighbor's counters, so the baseline and
	// the decrements are counting the same set.
	initHealth [lattice.DirCount][]int16
}

// N returns the module universe size.
func (c *Catalog) N() int { return len(c.modules) }

// Module returns the catalog entry for index i.
func (c *Catalog) Module(i int) *Module { return &c.modules[i] }

// Prob implements moduleset.EntropySource.
func (c *Catalog) Prob(i int) float64 { return c.modules[i].Probability }

// PLogP implements moduleset.EntropySource.
func (c *Catalog) PLogP(i int) float64 { return c.plogp[i] }

// InitialHealth returns init_health[d][i], the per-direction baseline
// support count computed at load time.
func (c *Catalog) InitialHealth(d lattice.Direction) []int16 {
	return c.initHealth[d]
}

// FullSet returns a new candidate set containing every module — the seed
// state for a freshly created, uncollapsed slot.
func (c *Catalog) FullSet() moduleset.Set {
	return moduleset.Full(len(c.modules))
}

// EmptySet returns a new, empty candidate set sized for this catalog.
func (c *Catalog) EmptySet() moduleset.Set {
	return moduleset.New(len(c.modules))
}

// New validates and indexes a module list, computing PLogP and InitialHealth.
// Rejects (CatalogInvalid) any module with a direction admitting zero
// supporters — such a module could never appear as a neighbor on that
// direction from any other module, making it unreachable.
func New(modules []Module) (*Catalog, error) {
	n := len(modules)
	c := &Catalog{
		modules: modules,
		plogp:   make([]float64, n),
	}
	for i := range c.modules {
		c.modules[i].Index = i
		p := c.modules[i].Probability
		if p > 0 {
			c.plogp[i] = p * math.Log(p)
		}
	}

	for _, d := range lattice.Directions {
		health := make([]int16, n)
		for i := 0; i < n; i++ {
			// init_health[d][i] = |PN[i][d]|: the number of modules j that i
			// itself tolerates as its own d-neighbor. RemoveModules decrements
			// a neighbor T's health[d.Inverse()][j] once per removed module m
			// with j ∈ PN[m][d] — the same PossibleNeighbors[d] set counted
			// here, so the baseline and the decrements stay consistent.
			count := c.modules[i].PossibleNeighbors[d].Count()
			health[i] = int16(count)
			if count == 0 {
				return nil, wfcerr.CatalogInvalid(i, c.modules[i].Name, d)
			}
		}
		c.initHealth[d] = health
	}

	// Reachability: some module must list i in its PossibleNeighbors[d], or
	// i can never sit on the d side of any other module.
	for _, d := range lattice.Directions {
		for i := 0; i < n; i++ {
			reachable := false
			for j := 0; j < n && !reachable; j++ {
				reachable = c.modules[j].PossibleNeighbors[d].Contains(i)
			}
			if !reachable {
				return nil, wfcerr.CatalogInvalid(i, c.modules[i].Name, d)
			}
		}
	}
	return c, nil
}
