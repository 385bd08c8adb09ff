// Package propagation implements the RemovalQueue worklist that drives
// constraint propagation: a position -> pending-removal-set map drained in
// FIFO order, with per-position sets accumulating by union until dequeued.
// The shape mirrors the teacher's event queue (a ring of pending work with
// dedup semantics), simplified to single-threaded use since propagation
// never spans more than one collapse call.
package propagation

import (
	"github.com/lixenwraith/wfc3d/lattice"
	"github.com/lixenwraith/wfc3d/moduleset"
)

// Queue is a FIFO of (position, pending ModuleSet) entries, deduplicated by
// position: pushing to a position already queued unions into its pending
// set instead of creating a second entry.
type Queue struct {
	order   []lattice.Position
	pending map[lattice.Position]moduleset.Set
}

// New returns an empty RemovalQueue.
func New() *Queue {
	return &Queue{pending: make(map[lattice.Position]moduleset.Set)}
}

// Push enqueues toRemove for position p, unioning into any already-pending
// set for p. This is the only place propagation is seeded.
func (q *Queue) Push(p lattice.Position, toRemove moduleset.Set) {
	if existing, ok := q.pending[p]; ok {
		existing.Union(toRemove)
		q.pending[p] = existing
		return
	}
	q.order = append(q.order, p)
	q.pending[p] = toRemove.Clone()
}

// Len reports how many distinct positions have pending removals.
func (q *Queue) Len() int { return len(q.order) }

// Empty reports whether the queue has no pending work.
func (q *Queue) Empty() bool { return len(q.order) == 0 }

// Pop removes and returns the oldest pending (position, set) pair. ok is
// false if the queue is empty.
func (q *Queue) Pop() (lattice.Position, moduleset.Set, bool) {
	for len(q.order) > 0 {
		p := q.order[0]
		q.order = q.order[1:]
		set, ok := q.pending[p]
		if !ok {
			// Already drained via some other path; skip.
			continue
		}
		delete(q.pending, p)
		return p, set, true
	}
	return lattice.Position{}, moduleset.Set{}, false
}

// Clear discards all pending work. Called whenever the Collapser starts a
// new area or catches a CollapseFailed — pending propagations from either
// event are invalid and must not be replayed.
func (q *Queue) Clear() {
	q.order = q.order[:0]
	for p := range q.pending {
		delete(q.pending, p)
	}
}
