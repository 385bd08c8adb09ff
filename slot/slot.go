// Package slot implements one lattice cell: its candidate set, its
// per-direction support counters ("health"), and the collapse/propagation
// operations that mutate both under the invariants in the core spec. The
// back-reference to the owning lattice is expressed as the Map interface
// below rather than a concrete type, so this package never imports
// worldmap — worldmap imports slot to store *Slot values, and a cycle the
// other way is not an option. The same break is used for the two
// Collapser notification hooks: Slot calls back through Map, never
// through a concrete Collapser type.
package slot

import (
	"fmt"
	"math/rand/v2"

	"github.com/lixenwraith/wfc3d/catalog"
	"github.com/lixenwraith/wfc3d/history"
	"github.com/lixenwraith/wfc3d/lattice"
	"github.com/lixenwraith/wfc3d/moduleset"
	"github.com/lixenwraith/wfc3d/propagation"
	"github.com/lixenwraith/wfc3d/wfcerr"
)

// Map is the minimal surface a Slot needs from its owning lattice: neighbor
// lookup plus the two collapse-state notifications and the range-limit
// hook the core's external interface exposes. worldmap.Map implements
// this; Collapser registers itself as the sink for the notifications by
// way of whatever Map forwards them to.
type Map interface {
	// GetSlot returns the slot at pos, or nil if pos is outside the
	// addressable area. A forgotten slot is still returned (non-nil) —
	// forgotten-ness is a property callers check on the returned *Slot.
	GetSlot(pos lattice.Position) *Slot
	// NotifyCollapsed is called once a slot's module has been fixed.
	NotifyCollapsed(pos lattice.Position)
	// NotifyCollapseUndone is called once undo clears a slot's module.
	NotifyCollapseUndone(pos lattice.Position)
	// OnHitRangeLimit is called when propagation would cross into a
	// position outside the addressable range limit. No-op by default.
	OnHitRangeLimit(pos lattice.Position, removed moduleset.Set)
}

// Slot is one lattice cell.
type Slot struct {
	pos lattice.Position
	cat *catalog.Catalog

	hist  *history.Ring
	queue *propagation.Queue
	env   Map

	modules moduleset.Set
	health  [lattice.DirCount][]int16

	module    *int
	forgotten bool
}

// New creates a full (all candidates present) slot at pos, owned by env,
// sharing cat/hist/queue with every other slot in the same lattice.
func New(pos lattice.Position, cat *catalog.Catalog, hist *history.Ring, queue *propagation.Queue, env Map) *Slot {
	s := &Slot{
		pos:     pos,
		cat:     cat,
		hist:    hist,
		queue:   queue,
		env:     env,
		modules: cat.FullSet(),
	}
	for _, d := range lattice.Directions {
		base := cat.InitialHealth(d)
		h := make([]int16, len(base))
		copy(h, base)
		s.health[d] = h
	}
	return s
}

// Position returns the slot's lattice position.
func (s *Slot) Position() lattice.Position { return s.pos }

// Forgotten reports whether this slot's heavy state has been released.
func (s *Slot) Forgotten() bool { return s.forgotten }

// Collapsed reports whether a module has been chosen for this slot.
func (s *Slot) Collapsed() bool { return s.module != nil }

// Module returns the chosen module index and true, or (-1, false) if the
// slot is not collapsed.
func (s *Slot) Module() (int, bool) {
	if s.module == nil {
		return -1, false
	}
	return *s.module, true
}

// Modules returns the slot's current candidate set.
func (s *Slot) Modules() moduleset.Set { return s.modules }

// Entropy returns the slot's current entropy score over its candidates.
func (s *Slot) Entropy() float64 { return s.modules.Entropy(s.cat) }

// Forget releases this slot's heavy state (modules, health). Called only by
// History on ring overflow — part of the eviction contract, not an
// optimization a caller should invoke directly.
func (s *Slot) Forget() {
	s.forgotten = true
	s.modules = moduleset.Set{}
	for d := range s.health {
		s.health[d] = nil
	}
}

// Collapse fixes this slot to module m. Precondition: m is a current
// candidate and the slot is not already collapsed — violating either is a
// programming error (IllegalCollapse), never a recoverable CollapseFailed.
func (s *Slot) Collapse(m int) error {
	if s.forgotten {
		return wfcerr.IllegalCollapse(fmt.Sprintf("collapse(%d) at %+v: slot is forgotten", m, s.pos))
	}
	if s.module != nil {
		return wfcerr.IllegalCollapse(fmt.Sprintf("collapse(%d) at %+v: slot already collapsed to %d", m, s.pos, *s.module))
	}
	if !s.modules.Contains(m) {
		return wfcerr.IllegalCollapse(fmt.Sprintf("collapse(%d) at %+v: module is not a candidate", m, s.pos))
	}

	s.hist.Push(s)
	chosen := m
	s.module = &chosen

	toRemove := s.modules.Clone()
	toRemove.Remove(m)
	if err := s.RemoveModules(&toRemove, true); err != nil {
		return err
	}

	s.env.NotifyCollapsed(s.pos)
	return nil
}

// CollapseRandom performs a weighted-random collapse over the current
// candidates: draw u in [0, Σp_i), walk candidates in ascending index
// order accumulating probability, and pick the first whose running sum is
// >= u. Numeric drift that leaves nothing selected falls back to the
// first candidate in iteration order.
func (s *Slot) CollapseRandom(rng *rand.Rand) error {
	if s.modules.IsEmpty() {
		return wfcerr.Collapsed(s.pos)
	}

	var total float64
	s.modules.Iter(func(i int) { total += s.cat.Prob(i) })

	u := rng.Float64() * total
	chosen, first := -1, -1
	var running float64
	s.modules.Iter(func(i int) {
		if first == -1 {
			first = i
		}
		if chosen != -1 {
			return
		}
		running += s.cat.Prob(i)
		if running >= u {
			chosen = i
		}
	})
	if chosen == -1 {
		chosen = first
	}
	return s.Collapse(chosen)
}

// RemoveModules intersects toRemove with the slot's current candidates,
// records the removal in the open HistoryItem, propagates support-counter
// decrements to live neighbors (seeding the RemovalQueue wherever a
// neighbor's last supporter for a module disappears), and subtracts
// toRemove from the candidate set. toRemove is consumed: callers must not
// assume it is unchanged after the call, since step 1 intersects it in
// place with the slot's current candidates.
//
// If recursive is true, the RemovalQueue is drained before returning —
// this is the top-level entry used by Collapse and by direct boundary
// enforcement. Queue-driven calls (from DrainQueue itself) pass false to
// avoid re-entering the drain loop while it is already running.
//
// Calling RemoveModules on a collapsed slot with a set containing its own
// chosen module is undefined behavior per the core contract: callers must
// never remove a collapsed slot's chosen module.
func (s *Slot) RemoveModules(toRemove *moduleset.Set, recursive bool) error {
	if s.forgotten {
		return nil
	}

	toRemove.Intersect(s.modules)

	if top := s.hist.Peek(); top != nil {
		existing, ok := top.Removed[s.pos]
		if !ok {
			existing = s.cat.EmptySet()
		}
		existing.Union(*toRemove)
		top.Removed[s.pos] = existing
	}

	for _, d := range lattice.Directions {
		dp := d.Inverse()
		t := s.env.GetSlot(s.pos.Add(d))
		if t == nil || t.forgotten {
			if t == nil {
				s.env.OnHitRangeLimit(s.pos.Add(d), *toRemove)
			}
			continue
		}

		toEnqueue := s.cat.EmptySet()
		var enqueueAny bool
		var health16Err error
		toRemove.Iter(func(m int) {
			if health16Err != nil {
				return
			}
			s.cat.Module(m).PossibleNeighbors[d].Iter(func(j int) {
				if health16Err != nil {
					return
				}
				cur := t.health[dp][j]
				if cur <= 0 {
					health16Err = wfcerr.IllegalCollapse(fmt.Sprintf(
						"health[%s][%d] at %+v decremented below zero", dp, j, t.pos))
					return
				}
				if cur == 1 && t.modules.Contains(j) {
					toEnqueue.Add(j)
					enqueueAny = true
				}
				t.health[dp][j] = cur - 1
			})
		})
		if health16Err != nil {
			return health16Err
		}
		if enqueueAny {
			s.queue.Push(t.pos, toEnqueue)
		}
	}

	s.modules.Difference(*toRemove)
	if s.modules.IsEmpty() {
		return wfcerr.Collapsed(s.pos)
	}

	if recursive {
		return DrainQueue(s.queue, s.env)
	}
	return nil
}

// AddModules is the reverse of RemoveModules, used only by Undo. It is
// never recursive: restoring candidates can only relax neighbors'
// constraints, so it never seeds the RemovalQueue.
func (s *Slot) AddModules(toAdd moduleset.Set) {
	if s.forgotten {
		return
	}

	toAdd.Iter(func(m int) {
		if s.modules.Contains(m) {
			return
		}
		if s.module != nil && *s.module == m {
			return
		}
		for _, d := range lattice.Directions {
			dp := d.Inverse()
			t := s.env.GetSlot(s.pos.Add(d))
			if t == nil || t.forgotten {
				continue
			}
			s.cat.Module(m).PossibleNeighbors[d].Iter(func(j int) {
				t.health[dp][j]++
			})
		}
		s.modules.Add(m)
	})

	if s.module != nil && !s.modules.IsEmpty() {
		s.module = nil
		s.env.NotifyCollapseUndone(s.pos)
	}
}

// EnforceConnector retains only modules whose face on direction d carries
// connector, discarding the rest via RemoveModules.
func (s *Slot) EnforceConnector(d lattice.Direction, connector int) error {
	toRemove := s.cat.EmptySet()
	s.modules.Iter(func(i int) {
		if s.cat.Module(i).Connectors[d] != connector {
			toRemove.Add(i)
		}
	})
	return s.RemoveModules(&toRemove, true)
}

// ExcludeConnector discards modules whose face on direction d carries
// connector, retaining the rest.
func (s *Slot) ExcludeConnector(d lattice.Direction, connector int) error {
	toRemove := s.cat.EmptySet()
	s.modules.Iter(func(i int) {
		if s.cat.Module(i).Connectors[d] == connector {
			toRemove.Add(i)
		}
	})
	return s.RemoveModules(&toRemove, true)
}

// EnforceWalkway drops modules whose face on direction d is not walkable.
func (s *Slot) EnforceWalkway(d lattice.Direction) error {
	toRemove := s.cat.EmptySet()
	s.modules.Iter(func(i int) {
		if !s.cat.Module(i).Walkable[d] {
			toRemove.Add(i)
		}
	})
	return s.RemoveModules(&toRemove, true)
}

// DrainQueue pops (position, pending-removal-set) pairs from q in FIFO
// order and applies them non-recursively, until q is empty or a
// CollapseFailed error surfaces. Queue-driven removals may themselves
// enqueue further work into q; DrainQueue keeps popping until none is
// left, which is how one collapse's consequences ripple across the
// lattice without unbounded call-stack recursion.
func DrainQueue(q *propagation.Queue, env Map) error {
	for {
		pos, set, ok := q.Pop()
		if !ok {
			return nil
		}
		t := env.GetSlot(pos)
		if t == nil || t.forgotten || t.Collapsed() {
			continue
		}
		if err := t.RemoveModules(&set, false); err != nil {
			return err
		}
	}
}
