package gm

// stringObj is an immutable byte sequence, optionally interned (spec.md
// §3 "String"). Byte-oblivious: gm strings are not required to be valid
// UTF-8, matching the original's "byte string" semantics.
type stringObj struct {
	objHeader
	bytes    []byte
	alloc    fixedAlloc
	interned bool
}

func (s *stringObj) header() *objHeader { return &s.objHeader }
func (s *stringObj) trace(func(int32)) {} // strings hold no outgoing references
func (s *stringObj) byteSize() int      { return len(s.bytes) + 32 }

// AllocString creates a fresh, non-interned string object. Its bytes live
// in the heap's fixedSet rather than a GC'd []byte of their own, so Free
// returns the slot the moment the sweep collects it.
func (h *Heap) AllocString(b []byte) int32 {
	a, buf := h.mem.Alloc(len(b))
	copy(buf, b)
	obj := &stringObj{bytes: buf, alloc: a}
	obj.typ = TypeString
	return h.alloc(obj)
}

// InternString returns the handle for the unique interned copy of b,
// allocating it on first use. intern(s1) == intern(s2) iff bytes are
// equal (spec.md invariant 5).
func (h *Heap) InternString(b []byte) int32 {
	if handle, ok := h.interner.lookup(b); ok {
		if obj, ok := h.object(handle).(*stringObj); ok {
			return obj.handle
		}
	}
	a, buf := h.mem.Alloc(len(b))
	copy(buf, b)
	obj := &stringObj{bytes: buf, alloc: a, interned: true}
	obj.typ = TypeString
	handle := h.alloc(obj)
	h.interner.insert(buf, handle)
	return handle
}

// StringBytes returns the backing bytes for a string handle, or nil if the
// handle is not a live string.
func (h *Heap) StringBytes(handle int32) []byte {
	if obj, ok := h.object(handle).(*stringObj); ok {
		return obj.bytes
	}
	return nil
}
