package history

import "testing"

type fakeSlot struct {
	forgotten bool
}

func (f *fakeSlot) Forget() { f.forgotten = true }

func TestPushPeekPop(t *testing.T) {
	r := New(3)
	s1 := &fakeSlot{}
	item := r.Push(s1)
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if r.Peek() != item {
		t.Error("Peek() did not return the just-pushed item")
	}
	popped := r.Pop()
	if popped != item {
		t.Error("Pop() did not return the just-pushed item")
	}
	if r.Len() != 0 {
		t.Errorf("Len() after Pop() = %d, want 0", r.Len())
	}
}

func TestPopEmptyReturnsNil(t *testing.T) {
	r := New(2)
	if r.Pop() != nil {
		t.Error("Pop() on empty ring should return nil")
	}
	if r.Peek() != nil {
		t.Error("Peek() on empty ring should return nil")
	}
}

func TestOverflowForgetsOldest(t *testing.T) {
	r := New(2)
	s1 := &fakeSlot{}
	s2 := &fakeSlot{}
	s3 := &fakeSlot{}
	r.Push(s1)
	r.Push(s2)
	if s1.forgotten {
		t.Fatal("s1 forgotten before overflow")
	}
	r.Push(s3) // capacity 2, this evicts s1
	if !s1.forgotten {
		t.Error("s1 should have been forgotten on overflow")
	}
	if s2.forgotten || s3.forgotten {
		t.Error("only the oldest item should be forgotten on overflow")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (capacity-bounded)", r.Len())
	}
}

func TestFIFOOrderAfterOverflow(t *testing.T) {
	r := New(2)
	s1, s2, s3 := &fakeSlot{}, &fakeSlot{}, &fakeSlot{}
	r.Push(s1)
	i2 := r.Push(s2)
	i3 := r.Push(s3) // evicts s1

	// Peek is most-recent (i3); pop twice should yield i3 then i2.
	if r.Peek() != i3 {
		t.Error("Peek() after overflow should be the most recently pushed item")
	}
	if got := r.Pop(); got != i3 {
		t.Error("first Pop() after overflow should return the most recent item")
	}
	if got := r.Pop(); got != i2 {
		t.Error("second Pop() should return the item pushed before the most recent one")
	}
	if r.Pop() != nil {
		t.Error("ring should be empty after popping everything still resident")
	}
}

func TestTotalPushesNeverDecreases(t *testing.T) {
	r := New(2)
	r.Push(&fakeSlot{})
	r.Push(&fakeSlot{})
	r.Push(&fakeSlot{}) // overflow
	if r.TotalPushes() != 3 {
		t.Errorf("TotalPushes() = %d, want 3", r.TotalPushes())
	}
	r.Pop()
	if r.TotalPushes() != 3 {
		t.Error("Pop() must not affect TotalPushes()")
	}
}

func TestClearDoesNotForget(t *testing.T) {
	r := New(2)
	s1 := &fakeSlot{}
	r.Push(s1)
	r.Clear()
	if s1.forgotten {
		t.Error("Clear() must not call Forget() on resident slots")
	}
	if r.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", r.Len())
	}
}

func TestNewClampsNonPositiveCapacity(t *testing.T) {
	r := New(0)
	r.Push(&fakeSlot{})
	r.Push(&fakeSlot{})
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (capacity clamped to 1)", r.Len())
	}
}
