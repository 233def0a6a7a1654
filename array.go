package gm

// Array is the "optional variant of table with dense integer keys"
// described in spec.md §3, grounded on gmArrayComplex.h from
// original_source/. It is a thin convenience over tableObj: keys are
// always sequential TypeInt variants assigned internally, so callers never
// construct the key themselves.
type Array struct {
	heap   *Heap
	handle int32
}

// NewArray allocates a backing table and wraps it as a dense array.
func (h *Heap) NewArray() Array {
	return Array{heap: h, handle: h.AllocTable()}
}

func (h *Heap) ArrayAt(handle int32) Array { return Array{heap: h, handle: handle} }

func (a Array) Handle() int32 { return a.handle }

func (a Array) Len() int { return a.heap.TableLen(a.handle) }

func (a Array) Get(i int32) (Variant, bool) {
	return a.heap.TableGet(a.handle, IntVal(i))
}

// PushBack appends val at the next sequential index.
func (a Array) PushBack(val Variant) {
	idx := int32(a.Len())
	_ = a.heap.TableSet(a.handle, IntVal(idx), val)
}

// Set overwrites the value at index i; i must be < Len() (no sparse holes,
// matching the dense-array contract).
func (a Array) Set(i int32, val Variant) error {
	if i < 0 || int(i) >= a.Len() {
		return ErrKeyNotFound
	}
	return a.heap.TableSet(a.handle, IntVal(i), val)
}

// Each walks elements in index order.
func (a Array) Each(fn func(i int32, v Variant) bool) {
	n := int32(a.Len())
	for i := int32(0); i < n; i++ {
		v, _ := a.Get(i)
		if !fn(i, v) {
			return
		}
	}
}
