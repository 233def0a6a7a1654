package gm

// Heap owns every reference-typed object's storage and the handle→object
// mapping (spec.md §3, §4.D). Handles are stable for an object's lifetime
// and are reused only after the object has actually been swept, and never
// within the same GC cycle it was freed in (spec.md invariant 4).
type Heap struct {
	objects []heapObject // index by handle; nil == unused slot
	free    []int32      // recyclable handles, available immediately
	gc      *Collector

	persistent map[int32]bool

	interner *interner

	// mem backs every string object's bytes: small strings come out of
	// one of the fixed slabs, long ones fall back to its big-allocation
	// list. Go's own GC still owns the objects slice and every other
	// heapObject; this is the one concern gmMemFixedSet's slot-reuse
	// mechanics actually map onto, since string bytes are the one
	// payload this runtime repeatedly allocates and frees at the same
	// handful of sizes.
	mem *fixedSet
}

func newHeap(cfg Config) *Heap {
	h := &Heap{persistent: make(map[int32]bool)}
	h.gc = newCollector(h, cfg)
	h.interner = newInterner()
	h.mem = newFixedSet(64)
	return h
}

// link implements colourLinks for the Collector's intrusive colour lists.
func (h *Heap) link(handle int32) *linkNode {
	return &h.objects[handle].header().link
}

func (h *Heap) object(handle int32) heapObject {
	if handle < 0 || int(handle) >= len(h.objects) {
		return nil
	}
	return h.objects[handle]
}

// alloc registers obj in the handle table, charges its size against the
// GC budget, and colours it with the collector's current allocation
// colour so it cannot be swept by a cycle already in progress.
func (h *Heap) alloc(obj heapObject) int32 {
	var handle int32
	if n := len(h.free); n > 0 {
		handle = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		handle = int32(len(h.objects))
		h.objects = append(h.objects, nil)
	}
	hdr := obj.header()
	hdr.handle = handle
	hdr.colour = h.gc.allocColour()
	hdr.allocEpoch = h.gc.epoch
	h.objects[handle] = obj
	h.gc.white.PushBack(h, handle)
	h.gc.chargeAlloc(obj.byteSize())
	return handle
}

// release tears down a swept object's storage (interning, slab bytes) and
// clears its handle slot, but does not make the handle available for reuse.
// The collector defers that to finishSweep via pendingFree, so a handle
// freed mid-sweep cannot be reissued until its cycle has fully closed
// (spec.md invariant 4: "a freed handle is not reissued during the same
// cycle").
func (h *Heap) release(handle int32) {
	obj := h.objects[handle]
	if obj == nil {
		return
	}
	if so, ok := obj.(*stringObj); ok {
		if so.interned {
			h.interner.remove(so.bytes)
		}
		h.mem.Free(so.alloc)
	}
	h.objects[handle] = nil
	delete(h.persistent, handle)
}

// free_ releases handle and immediately returns it to the free list. Used
// by tests and any direct (non-GC-cycle) teardown path; the collector uses
// release instead so it can defer free-list reinsertion to cycle close.
func (h *Heap) free_(handle int32) {
	h.release(handle)
	h.free = append(h.free, handle)
}

// SetPersistent marks/unmarks handle as an implicit GC root (spec.md §3:
// "Persistent objects are implicit roots for all cycles").
func (h *Heap) SetPersistent(handle int32, persistent bool) {
	obj := h.object(handle)
	if obj == nil {
		return
	}
	obj.header().persistent = persistent
	if persistent {
		h.persistent[handle] = true
	} else {
		delete(h.persistent, handle)
	}
}

// EachPersistent calls fn for every currently persistent handle.
func (h *Heap) EachPersistent(fn func(handle int32)) {
	for handle := range h.persistent {
		fn(handle)
	}
}
