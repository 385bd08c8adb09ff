// Package worldmap owns the lattice's slot storage, history ring, and
// removal queue, and implements slot.Map so every Slot can reach its
// neighbors without the two packages importing each other directly. The
// storage shape — an RWMutex-guarded map with lazy, double-checked-locked
// creation — follows the teacher's PositionStore/spatial index.
package worldmap

import (
	"sync"

	"github.com/lixenwraith/wfc3d/catalog"
	"github.com/lixenwraith/wfc3d/history"
	"github.com/lixenwraith/wfc3d/lattice"
	"github.com/lixenwraith/wfc3d/moduleset"
	"github.com/lixenwraith/wfc3d/propagation"
	"github.com/lixenwraith/wfc3d/slot"
)

// CollapseObserver is notified whenever a slot's collapse state changes.
// Collapser implements this and registers itself on the Map it drives.
type CollapseObserver interface {
	NotifyCollapsed(pos lattice.Position)
	NotifyCollapseUndone(pos lattice.Position)
}

// RangeLimitObserver is notified when propagation would cross outside the
// Map's addressable range (StreamingMap only; BoundedMap's box edge never
// fires this — it is a hard wall, not a soft limit).
type RangeLimitObserver interface {
	OnHitRangeLimit(pos lattice.Position, removed moduleset.Set)
}

// Map is the storage surface the Collapser drives: slot lookup plus the
// shared History/Queue/Catalog every slot in the lattice references.
type Map interface {
	slot.Map
	History() *history.Ring
	Queue() *propagation.Queue
	Catalog() *catalog.Catalog
	SetCollapseObserver(o CollapseObserver)
	SetRangeLimitObserver(o RangeLimitObserver)
}

// store is the shared slot-table machinery embedded by both BoundedMap and
// StreamingMap. It never implements GetSlot itself — the addressability
// rule (inside-the-box vs. within-range-of-origin) differs per map kind,
// so each concrete type supplies its own GetSlot and delegates creation
// here.
type store struct {
	mu    sync.RWMutex
	cat   *catalog.Catalog
	hist  *history.Ring
	queue *propagation.Queue
	slots map[lattice.Position]*slot.Slot

	collapseObs CollapseObserver
	rangeObs    RangeLimitObserver
}

func newStore(cat *catalog.Catalog, hist *history.Ring, queue *propagation.Queue) *store {
	return &store{
		cat:   cat,
		hist:  hist,
		queue: queue,
		slots: make(map[lattice.Position]*slot.Slot),
	}
}

// getOrCreate fetches the slot at pos, creating a fresh one (owned by env)
// under the write lock if none exists yet. Double-checked: the fast path
// only takes the read lock.
func (s *store) getOrCreate(pos lattice.Position, env slot.Map) *slot.Slot {
	s.mu.RLock()
	if sl, ok := s.slots[pos]; ok {
		s.mu.RUnlock()
		return sl
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[pos]; ok {
		return sl
	}
	sl := slot.New(pos, s.cat, s.hist, s.queue, env)
	s.slots[pos] = sl
	return sl
}

func (s *store) lookup(pos lattice.Position) (*slot.Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[pos]
	return sl, ok
}

// NotifyCollapsed implements slot.Map, forwarding to the registered
// CollapseObserver (normally the Collapser driving this Map). No-op if
// none is registered.
func (s *store) NotifyCollapsed(pos lattice.Position) {
	if s.collapseObs != nil {
		s.collapseObs.NotifyCollapsed(pos)
	}
}

// NotifyCollapseUndone implements slot.Map.
func (s *store) NotifyCollapseUndone(pos lattice.Position) {
	if s.collapseObs != nil {
		s.collapseObs.NotifyCollapseUndone(pos)
	}
}

// OnHitRangeLimit implements slot.Map.
func (s *store) OnHitRangeLimit(pos lattice.Position, removed moduleset.Set) {
	if s.rangeObs != nil {
		s.rangeObs.OnHitRangeLimit(pos, removed)
	}
}

func (s *store) History() *history.Ring         { return s.hist }
func (s *store) Queue() *propagation.Queue      { return s.queue }
func (s *store) Catalog() *catalog.Catalog      { return s.cat }
func (s *store) SetCollapseObserver(o CollapseObserver)     { s.collapseObs = o }
func (s *store) SetRangeLimitObserver(o RangeLimitObserver) { s.rangeObs = o }

// BoundedMap addresses a fixed axis-aligned box. Positions outside the box
// are permanently unaddressable: GetSlot returns nil, and propagation
// treats the box edge as an implicit full-support wall (the "outside the
// addressable area" branch in Slot.RemoveModules), never firing
// RangeLimitObserver — a box edge is a hard boundary, not a soft limit to
// report.
type BoundedMap struct {
	*store
	box lattice.Box
}

// NewBoundedMap creates a Map addressable only within box.
func NewBoundedMap(cat *catalog.Catalog, hist *history.Ring, queue *propagation.Queue, box lattice.Box) *BoundedMap {
	return &BoundedMap{store: newStore(cat, hist, queue), box: box}
}

// GetSlot implements slot.Map.
func (m *BoundedMap) GetSlot(pos lattice.Position) *slot.Slot {
	if !m.box.Contains(pos) {
		return nil
	}
	return m.getOrCreate(pos, m)
}

// OnHitRangeLimit implements slot.Map. A box edge is a hard wall, so this
// never forwards to the RangeLimitObserver.
func (m *BoundedMap) OnHitRangeLimit(lattice.Position, moduleset.Set) {}

// Box returns the map's addressable region.
func (m *BoundedMap) Box() lattice.Box { return m.box }

// StreamingMap addresses an unbounded lattice, creating slots lazily as
// they are first reached. An optional rangeLimit caps how far from the
// origin slots may be created; beyond it GetSlot returns nil and
// propagation that would cross the limit fires RangeLimitObserver. Unlike
// BoundedMap's box edge, it is a policy choice the host can relax, not a
// structural limit.
type StreamingMap struct {
	*store
	origin     lattice.Position
	rangeLimit int32 // <= 0 means unlimited
}

// NewStreamingMap creates an unbounded Map. rangeLimit <= 0 means slots may
// be created at any position; a positive rangeLimit caps the Chebyshev
// distance from origin.
func NewStreamingMap(cat *catalog.Catalog, hist *history.Ring, queue *propagation.Queue, origin lattice.Position, rangeLimit int32) *StreamingMap {
	return &StreamingMap{store: newStore(cat, hist, queue), origin: origin, rangeLimit: rangeLimit}
}

// GetSlot implements slot.Map.
func (m *StreamingMap) GetSlot(pos lattice.Position) *slot.Slot {
	if m.rangeLimit > 0 && !withinRange(pos, m.origin, m.rangeLimit) {
		return nil
	}
	return m.getOrCreate(pos, m)
}

func withinRange(pos, origin lattice.Position, limit int32) bool {
	return abs32(pos.X-origin.X) <= limit &&
		abs32(pos.Y-origin.Y) <= limit &&
		abs32(pos.Z-origin.Z) <= limit
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
