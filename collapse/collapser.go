// Package collapse implements the top-level driver: the work-area scan
// that picks the next slot to collapse, the weighted random choice itself,
// and the backtrack policy that recovers from contradictions. Everything
// below this package (slot, worldmap, history, propagation, catalog) is
// mechanism; this is the policy that sequences them, grounded on the
// teacher's genetic Engine — config struct with sane defaults, an
// injected *rand.Rand, a context-free Run loop that checks a
// caller-supplied continuation predicate each iteration.
package collapse

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lixenwraith/wfc3d/lattice"
	"github.com/lixenwraith/wfc3d/moduleset"
	"github.com/lixenwraith/wfc3d/parameter"
	"github.com/lixenwraith/wfc3d/wfcerr"
	"github.com/lixenwraith/wfc3d/worldmap"
)

// Config controls one Collapser's generation policy.
type Config struct {
	// InitialBacktrackAmount is how many collapses Undo reverses on the
	// first contradiction in a row. Doubles on each consecutive
	// contradiction and resets after the next successful collapse.
	InitialBacktrackAmount int
	// ProgressCadence is how many successful collapses pass between
	// Observer.OnProgress calls when a run is started with showProgress.
	ProgressCadence int
	// Seed seeds the PRNG driving weighted random collapse. Zero means
	// seed from the runtime's entropy source.
	Seed uint64
}

// DefaultConfig returns the package's recommended defaults.
func DefaultConfig() Config {
	return Config{
		InitialBacktrackAmount: parameter.InitialBacktrackAmount,
		ProgressCadence:        parameter.ProgressCadence,
		Seed:                   0,
	}
}

// ConnectorMode selects which side of a connector match a boundary
// constraint keeps.
type ConnectorMode int

const (
	// EnforceConnectorMode retains only modules whose face matches.
	EnforceConnectorMode ConnectorMode = iota
	// ExcludeConnectorMode discards modules whose face matches.
	ExcludeConnectorMode
)

// BoundaryConstraint is one external boundary rule: at Position, on
// Direction, keep or discard modules tagged with Connector depending on
// Mode.
type BoundaryConstraint struct {
	Position  lattice.Position
	Direction lattice.Direction
	Connector int
	Mode      ConnectorMode
}

// Observer receives progress and lifecycle notifications from a running or
// previously-run Collapser. All methods are optional in spirit — a nil
// Observer is never consulted.
type Observer interface {
	// OnProgress is called every ProgressCadence successful collapses
	// during a showProgress run. Returning false cancels the run; the
	// caller sees wfcerr.Cancelled.
	OnProgress(remaining, total int) bool
	// OnCollapsed is called once a slot's module is fixed.
	OnCollapsed(pos lattice.Position, moduleIndex int)
	// OnCollapseUndone is called when Undo clears a slot's module.
	OnCollapseUndone(pos lattice.Position)
	// OnHitRangeLimit is called when propagation would cross outside the
	// Map's addressable range (StreamingMap with a range limit only).
	OnHitRangeLimit(pos lattice.Position, removed moduleset.Set)
}

// Collapser drives one Map's generation: selecting the next slot to
// collapse, collapsing it, and recovering via Undo on contradiction. It
// registers itself as the Map's CollapseObserver and RangeLimitObserver,
// so Map-driven notifications (including those caused by a Slot's own
// propagation, not just calls made directly through this Collapser) keep
// the work area and any attached Observer in sync.
type Collapser struct {
	m   worldmap.Map
	rng *rand.Rand
	cfg Config

	observer Observer

	workArea        map[lattice.Position]struct{}
	backtrackAmount int
	successCount    int
}

// New creates a Collapser driving m. Only one Collapser should drive a
// given Map at a time — both register themselves as its sole
// CollapseObserver/RangeLimitObserver.
func New(m worldmap.Map, cfg Config) *Collapser {
	var rng *rand.Rand
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	} else {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	c := &Collapser{
		m:               m,
		rng:             rng,
		cfg:             cfg,
		backtrackAmount: cfg.InitialBacktrackAmount,
		workArea:        make(map[lattice.Position]struct{}),
	}
	m.SetCollapseObserver(c)
	m.SetRangeLimitObserver(c)
	return c
}

// SetObserver attaches o to receive future notifications. Pass nil to
// detach.
func (c *Collapser) SetObserver(o Observer) { c.observer = o }

// Collapse resolves every uncollapsed slot among targets (and anything
// drawn in by propagation or backtracking) down to a single module each,
// by repeatedly collapsing the lowest-entropy still-uncollapsed slot in
// the work area. Targets outside the Map's addressable area are a
// programming error (IllegalCollapse), not a recoverable condition.
func (c *Collapser) Collapse(targets []lattice.Position, showProgress bool) error {
	c.m.Queue().Clear()
	c.workArea = make(map[lattice.Position]struct{}, len(targets))
	for _, pos := range targets {
		sl := c.m.GetSlot(pos)
		if sl == nil {
			return wfcerr.IllegalCollapse(fmt.Sprintf("collapse target %+v is outside the map's addressable area", pos))
		}
		if !sl.Collapsed() {
			c.workArea[pos] = struct{}{}
		}
	}
	total := len(c.workArea)
	c.backtrackAmount = c.cfg.InitialBacktrackAmount

	for len(c.workArea) > 0 {
		pos, ok := c.pickMinEntropy()
		if !ok {
			break
		}
		sl := c.m.GetSlot(pos)

		err := sl.CollapseRandom(c.rng)
		if err == nil {
			c.backtrackAmount = c.cfg.InitialBacktrackAmount
			c.successCount++
			if showProgress && c.cfg.ProgressCadence > 0 &&
				c.successCount%c.cfg.ProgressCadence == 0 && c.observer != nil {
				if !c.observer.OnProgress(len(c.workArea), total) {
					return wfcerr.Cancelled()
				}
			}
			continue
		}

		var cf *wfcerr.CollapseFailedErr
		if errors.As(err, &cf) {
			c.m.Queue().Clear()
			if uerr := c.undoSteps(c.backtrackAmount); uerr != nil {
				return wfcerr.GenerationFailed(cf.Position)
			}
			c.backtrackAmount *= 2
			continue
		}
		return err
	}
	return nil
}

// CollapseBox is a convenience overload of Collapse over every position in
// box, in box's natural (X fastest, then Y, then Z) order — the order only
// matters for which box positions seed the work area, not for selection
// order within the run, which is always by entropy.
func (c *Collapser) CollapseBox(box lattice.Box, showProgress bool) error {
	return c.Collapse(box.Positions(), showProgress)
}

// pickMinEntropy scans the work area for the lowest-entropy slot. Ties are
// broken by position, not by map iteration order — Go's map iteration
// order is randomized per-process, so relying on "whichever is visited
// first" would make generation non-reproducible even with a fixed seed.
// The comparison below always prefers the lexicographically smaller
// (Z, Y, X) position on an exact tie, independent of visitation order.
func (c *Collapser) pickMinEntropy() (lattice.Position, bool) {
	var best lattice.Position
	bestEntropy := math.Inf(1)
	have := false
	for pos := range c.workArea {
		e := c.m.GetSlot(pos).Entropy()
		if !have || e < bestEntropy || (e == bestEntropy && lessPos(pos, best)) {
			best, bestEntropy, have = pos, e, true
		}
	}
	return best, have
}

func lessPos(a, b lattice.Position) bool {
	if a.Z != b.Z {
		return a.Z < b.Z
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

var errHistoryExhausted = errors.New("history exhausted")

// undoSteps pops and reverses up to steps History items, stopping early
// (with errHistoryExhausted) if the ring runs dry first.
func (c *Collapser) undoSteps(steps int) error {
	for i := 0; i < steps; i++ {
		item := c.m.History().Pop()
		if item == nil {
			return errHistoryExhausted
		}
		for pos, set := range item.Removed {
			if sl := c.m.GetSlot(pos); sl != nil {
				sl.AddModules(set)
			}
		}
	}
	return nil
}

// Undo reverses the last steps collapses (and every propagation
// consequence recorded alongside them), independent of any Collapse run —
// a host can call this directly to roll back a prior generation.
func (c *Collapser) Undo(steps int) error {
	if err := c.undoSteps(steps); err != nil {
		return wfcerr.GenerationFailed(lattice.Position{})
	}
	return nil
}

// ApplyBoundaryConstraints enforces each constraint in order, stopping at
// the first error. A constraint naming a position outside the Map's
// addressable area is an IllegalCollapse, not a recoverable condition.
func (c *Collapser) ApplyBoundaryConstraints(constraints []BoundaryConstraint) error {
	for _, bc := range constraints {
		sl := c.m.GetSlot(bc.Position)
		if sl == nil {
			return wfcerr.IllegalCollapse(fmt.Sprintf("boundary constraint at %+v is outside the map's addressable area", bc.Position))
		}
		var err error
		switch bc.Mode {
		case EnforceConnectorMode:
			err = sl.EnforceConnector(bc.Direction, bc.Connector)
		case ExcludeConnectorMode:
			err = sl.ExcludeConnector(bc.Direction, bc.Connector)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// EnforceWalkway drops modules at pos whose face on d is not walkable.
func (c *Collapser) EnforceWalkway(pos lattice.Position, d lattice.Direction) error {
	sl := c.m.GetSlot(pos)
	if sl == nil {
		return wfcerr.IllegalCollapse(fmt.Sprintf("enforce_walkway at %+v is outside the map's addressable area", pos))
	}
	return sl.EnforceWalkway(d)
}

// EnforceWalkwayPair applies EnforceWalkway on both sides of the axis
// connecting two lattice-adjacent positions: at a facing b, and at b
// facing a.
func (c *Collapser) EnforceWalkwayPair(a, b lattice.Position) error {
	d, ok := directionBetween(a, b)
	if !ok {
		return wfcerr.IllegalCollapse(fmt.Sprintf("enforce_walkway_pair: %+v and %+v are not lattice-adjacent", a, b))
	}
	if err := c.EnforceWalkway(a, d); err != nil {
		return err
	}
	return c.EnforceWalkway(b, d.Inverse())
}

func directionBetween(a, b lattice.Position) (lattice.Direction, bool) {
	for _, d := range lattice.Directions {
		if a.Add(d) == b {
			return d, true
		}
	}
	return 0, false
}

// NotifyCollapsed implements worldmap.CollapseObserver.
func (c *Collapser) NotifyCollapsed(pos lattice.Position) {
	delete(c.workArea, pos)
	if c.observer == nil {
		return
	}
	if sl := c.m.GetSlot(pos); sl != nil {
		if idx, ok := sl.Module(); ok {
			c.observer.OnCollapsed(pos, idx)
		}
	}
}

// NotifyCollapseUndone implements worldmap.CollapseObserver. A position
// undone back into the uncollapsed state always rejoins the work area,
// even if it was never one of the current Collapse call's targets — it is
// live and needs resolving regardless of which call originally collapsed
// it, since History is shared across a Map's whole lifetime.
func (c *Collapser) NotifyCollapseUndone(pos lattice.Position) {
	c.workArea[pos] = struct{}{}
	if c.observer != nil {
		c.observer.OnCollapseUndone(pos)
	}
}

// OnHitRangeLimit implements worldmap.RangeLimitObserver.
func (c *Collapser) OnHitRangeLimit(pos lattice.Position, removed moduleset.Set) {
	if c.observer != nil {
		c.observer.OnHitRangeLimit(pos, removed)
	}
}
