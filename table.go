package gm

// tableObj is an ordered mapping from non-null variant keys to variant
// values (spec.md §3 "Table"): insertion order is preserved across
// iteration and re-insertion never moves a key (orderedMap already
// guarantees this).
type tableObj struct {
	objHeader
	entries *orderedMap[Variant, Variant]
}

func (t *tableObj) header() *objHeader { return &t.objHeader }

func (t *tableObj) trace(mark func(int32)) {
	t.entries.Each(func(k, v Variant) bool {
		if k.Type().IsRefType() {
			mark(k.Handle())
		}
		if v.Type().IsRefType() {
			mark(v.Handle())
		}
		return true
	})
}

func (t *tableObj) byteSize() int { return 64 + t.entries.Len()*48 }

// AllocTable creates a new, empty table.
func (h *Heap) AllocTable() int32 {
	obj := &tableObj{entries: newOrderedMap[Variant, Variant]()}
	obj.typ = TypeTable
	return h.alloc(obj)
}

func (h *Heap) table(handle int32) *tableObj {
	t, _ := h.object(handle).(*tableObj)
	return t
}

// TableGet returns the value for key, or (Null(), false) if absent — the
// non-fatal KEY_NOT_FOUND path of spec.md §4.D.
func (h *Heap) TableGet(handle int32, key Variant) (Variant, bool) {
	t := h.table(handle)
	if t == nil {
		return Null(), false
	}
	return t.entries.Get(key)
}

// TableSet stores key→val, greying val's object if the table is currently
// black and that object is white (the write barrier of spec.md §4.E).
func (h *Heap) TableSet(handle int32, key, val Variant) error {
	if key.IsNull() {
		return ErrKeyNotFound
	}
	t := h.table(handle)
	if t == nil {
		return ErrKeyNotFound
	}
	t.entries.Set(key, val)
	if val.Type().IsRefType() {
		h.gc.barrier(handle, val.Handle())
	}
	return nil
}

// TableLen reports the number of live entries.
func (h *Heap) TableLen(handle int32) int {
	t := h.table(handle)
	if t == nil {
		return 0
	}
	return t.entries.Len()
}

// TableEach walks entries in insertion order.
func (h *Heap) TableEach(handle int32, fn func(k, v Variant) bool) {
	t := h.table(handle)
	if t == nil {
		return
	}
	t.entries.Each(fn)
}

// TableNth returns the n-th live entry in insertion order, the random
// access foreach (opcodes.go OpForeach) needs to resume iteration across
// a suspended thread without holding a live Go iterator.
func (h *Heap) TableNth(handle int32, n int) (Variant, Variant, bool) {
	t := h.table(handle)
	if t == nil {
		return Null(), Null(), false
	}
	return t.entries.NthLive(n)
}

// GetDot/SetDot restrict the key to a string handle, the "dot" lookup
// restriction of spec.md §3 ("Table: ... supports 'dot' lookup (key
// restricted to string)").
func (h *Heap) GetDot(handle int32, keyStrHandle int32) (Variant, bool) {
	return h.TableGet(handle, refVal(TypeString, keyStrHandle))
}

func (h *Heap) SetDot(handle int32, keyStrHandle int32, val Variant) error {
	return h.TableSet(handle, refVal(TypeString, keyStrHandle), val)
}
