package gm

// RegisterArrayLib wires a handful of native Array helpers into the
// machine's globals as arrayNew, arrayPushBack and arrayLength, the same "entries are
// (name, native_fn) pairs" shape as RegisterLibrary (spec.md §6). This is
// the kind of stdlib binding the spec calls an external collaborator
// (§1 Non-goals); it ships here only as a worked example other bindings
// can follow, not as a mandated standard library.
func (m *Machine) RegisterArrayLib() {
	newArray := func(t *Thread, numArgs int) (Variant, error) {
		a := m.heap.NewArray()
		return refVal(TypeTable, a.Handle()), nil
	}
	pushBack := func(t *Thread, numArgs int) (Variant, error) {
		if numArgs < 2 {
			return Null(), &RuntimeException{ThreadID: t.id, Kind: "BAD_CALL", Message: "arrayPushBack(arr, val)"}
		}
		arr := t.Arg(numArgs, 0)
		val := t.Arg(numArgs, 1)
		if arr.Type() != TypeTable {
			return Null(), &RuntimeException{ThreadID: t.id, Kind: "TYPE_MISMATCH", Message: "arrayPushBack expects a table"}
		}
		m.heap.ArrayAt(arr.Handle()).PushBack(val)
		return Null(), nil
	}
	length := func(t *Thread, numArgs int) (Variant, error) {
		if numArgs < 1 {
			return Null(), &RuntimeException{ThreadID: t.id, Kind: "BAD_CALL", Message: "arrayLength(arr)"}
		}
		arr := t.Arg(numArgs, 0)
		if arr.Type() != TypeTable {
			return Null(), &RuntimeException{ThreadID: t.id, Kind: "TYPE_MISMATCH", Message: "arrayLength expects a table"}
		}
		return IntVal(int32(m.heap.ArrayAt(arr.Handle()).Len())), nil
	}

	m.RegisterLibrary([]LibEntry{
		{Name: "arrayNew", Fn: newArray},
		{Name: "arrayPushBack", Fn: pushBack},
		{Name: "arrayLength", Fn: length},
	})
}
