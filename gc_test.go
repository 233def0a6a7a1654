package gm

import "testing"

func TestCollectFullFreesUnreachableStrings(t *testing.T) {
	m := NewMachine(DefaultConfig())
	h := m.Heap()

	reachable := h.AllocString([]byte("kept"))
	if err := h.TableSet(m.Globals(), refVal(TypeString, h.InternString([]byte("k"))), refVal(TypeString, reachable)); err != nil {
		t.Fatalf("TableSet: %v", err)
	}
	garbage := h.AllocString([]byte("discarded"))

	h.gc.CollectFull()

	if h.object(reachable) == nil {
		t.Fatalf("reachable string was collected")
	}
	if h.object(garbage) != nil {
		t.Fatalf("unreachable string survived a full collection")
	}
}

func TestWriteBarrierReGreysBlackParent(t *testing.T) {
	m := NewMachine(DefaultConfig())
	h := m.Heap()
	gc := h.gc

	parent := h.AllocTable()
	h.SetPersistent(parent, true)

	gc.StartCycle()
	for gc.state == gcMark {
		gc.Step()
	}
	if hdr := h.object(parent).header(); hdr.colour != colourBlack {
		t.Fatalf("persistent table should be blackened by end of mark, got colour %v", hdr.colour)
	}

	child := h.AllocString([]byte("late arrival"))
	if err := h.TableSet(parent, IntVal(0), refVal(TypeString, child)); err != nil {
		t.Fatalf("TableSet: %v", err)
	}
	if hdr := h.object(child).header(); hdr.colour != colourGrey {
		t.Fatalf("write barrier should grey a white child stored into a black parent, got colour %v", hdr.colour)
	}

	for gc.state != gcIdle {
		gc.Step()
	}
	if h.object(child) == nil {
		t.Fatalf("write barrier failed to protect child from the sweep that followed")
	}
}

func TestAllocEpochProtectsMidCycleAllocation(t *testing.T) {
	m := NewMachine(DefaultConfig())
	h := m.Heap()
	gc := h.gc

	gc.StartCycle()
	for gc.state == gcMark {
		gc.Step()
	}
	// Unreachable, but allocated after this cycle's mark phase already
	// started: must survive this sweep regardless of colour (spec.md
	// invariant on allocEpoch).
	fresh := h.AllocString([]byte("mid-cycle"))

	for gc.state != gcIdle {
		gc.Step()
	}
	if h.object(fresh) == nil {
		t.Fatalf("object allocated mid-cycle was swept in the same cycle")
	}
}

func TestHandleNotReissuedWithinSameCycle(t *testing.T) {
	m := NewMachine(DefaultConfig())
	h := m.Heap()

	garbage := h.AllocString([]byte("gone"))
	h.gc.StartCycle()
	for h.gc.state == gcMark {
		h.gc.Step()
	}
	for h.gc.state == gcSweep {
		h.gc.Step()
		if h.object(garbage) == nil {
			break
		}
	}
	// A fresh allocation right as sweep is clearing handles must not reuse
	// garbage's handle until finishSweep has actually run (invariant 4).
	next := h.AllocString([]byte("new"))
	if next == garbage && h.gc.state != gcIdle {
		t.Fatalf("handle %d reissued before its freeing cycle closed", garbage)
	}
}
