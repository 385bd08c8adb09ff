// Package history implements the bounded ring of collapse records that
// backs undo. Indexing follows the head/tail-over-capacity scheme used by
// the teacher's event queue (a fixed ring with wraparound via modulo
// capacity), simplified here to single-consumer, single-producer use: the
// ring belongs to one Map and is shared by every Collapse call made on it.
package history

import (
	"github.com/lixenwraith/wfc3d/lattice"
	"github.com/lixenwraith/wfc3d/moduleset"
)

// Slot is the minimal surface History needs from a lattice slot: enough to
// evict it on ring overflow. The real type is *slot.Slot; kept as an
// interface here to avoid a history <-> slot import cycle (slot pushes
// items onto History, so History cannot import slot).
type Slot interface {
	Forget()
}

// Item records one collapse: which slot was collapsed, and every candidate
// removed anywhere in the lattice as a consequence (propagation). Removed
// is built up as propagation runs and is owned by the Item until it is
// popped (undo) or evicted (ring overflow, alongside forgetting the slot).
type Item struct {
	Slot    Slot
	Removed map[lattice.Position]moduleset.Set
}

// Ring is a bounded FIFO of Items. On overflow, the evicted item's slot is
// forgotten — this is part of the correctness contract (forgotten slots
// become permanent no-ops in propagation and undo), not an optimization.
type Ring struct {
	items    []*Item
	capacity int
	head     int // index of the oldest item
	size     int

	totalPushes int
}

// New creates a ring with the given capacity. A non-positive capacity is
// clamped to 1.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		items:    make([]*Item, capacity),
		capacity: capacity,
	}
}

// Len returns the current number of items in the ring.
func (r *Ring) Len() int { return r.size }

// TotalPushes returns the monotonic count of lifetime pushes, never reset by
// eviction or undo — only Push increments it. The Collapser's backtrack
// policy does not read it: its undo amount doubles on consecutive
// contradictions and resets after each successful collapse, with no
// barrier tied to this count.
func (r *Ring) TotalPushes() int { return r.totalPushes }

// Push appends a fresh item for slot s, evicting and forgetting the oldest
// item if the ring is already full.
func (r *Ring) Push(s Slot) *Item {
	item := &Item{Slot: s, Removed: make(map[lattice.Position]moduleset.Set)}

	tail := (r.head + r.size) % r.capacity
	if r.size == r.capacity {
		evicted := r.items[r.head]
		if evicted != nil && evicted.Slot != nil {
			evicted.Slot.Forget()
		}
		r.head = (r.head + 1) % r.capacity
	} else {
		r.size++
	}
	r.items[tail] = item
	r.totalPushes++
	return item
}

// Peek returns the most recently pushed item without removing it, or nil if
// the ring is empty.
func (r *Ring) Peek() *Item {
	if r.size == 0 {
		return nil
	}
	tail := (r.head + r.size - 1) % r.capacity
	return r.items[tail]
}

// Pop removes and returns the most recently pushed item, or nil if the ring
// is empty.
func (r *Ring) Pop() *Item {
	if r.size == 0 {
		return nil
	}
	tail := (r.head + r.size - 1) % r.capacity
	item := r.items[tail]
	r.items[tail] = nil
	r.size--
	return item
}

// Clear empties the ring without forgetting any slots. The Collapser never
// calls this during a run — History survives RemovalQueue clears and
// CollapseFailed recovery by design; Clear exists for tests that need a
// fresh Ring between scenarios.
func (r *Ring) Clear() {
	for i := range r.items {
		r.items[i] = nil
	}
	r.head = 0
	r.size = 0
}
