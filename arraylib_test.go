package gm

import "testing"

func TestArrayLibPushBackAndLength(t *testing.T) {
	m := NewMachine(DefaultConfig())
	m.RegisterArrayLib()

	newB, err := m.BeginCallGlobal("arrayNew")
	if err != nil {
		t.Fatalf("BeginCallGlobal(arrayNew): %v", err)
	}
	arr, _, err := newB.End(false)
	if err != nil {
		t.Fatalf("arrayNew: %v", err)
	}
	if arr.Type() != TypeTable {
		t.Fatalf("arrayNew returned type %v, want TypeTable", arr.Type())
	}

	for _, v := range []int32{10, 20, 30} {
		b, err := m.BeginCallGlobal("arrayPushBack")
		if err != nil {
			t.Fatalf("BeginCallGlobal(arrayPushBack): %v", err)
		}
		if _, _, err := b.AddParamVariant(arr).AddParamInt(v).End(false); err != nil {
			t.Fatalf("arrayPushBack(%d): %v", v, err)
		}
	}

	lenB, err := m.BeginCallGlobal("arrayLength")
	if err != nil {
		t.Fatalf("BeginCallGlobal(arrayLength): %v", err)
	}
	length, _, err := lenB.AddParamVariant(arr).End(false)
	if err != nil {
		t.Fatalf("arrayLength: %v", err)
	}
	if length.Int() != 3 {
		t.Fatalf("arrayLength = %v, want 3", length)
	}

	backing := m.Heap().ArrayAt(arr.Handle())
	for i, want := range []int32{10, 20, 30} {
		got, ok := backing.Get(int32(i))
		if !ok || got.Int() != want {
			t.Fatalf("backing array[%d] = %v, %v; want %d", i, got, ok, want)
		}
	}
}

func TestArrayLibPushBackRejectsNonTable(t *testing.T) {
	m := NewMachine(DefaultConfig())
	m.RegisterArrayLib()

	b, err := m.BeginCallGlobal("arrayPushBack")
	if err != nil {
		t.Fatalf("BeginCallGlobal: %v", err)
	}
	if _, _, err := b.AddParamInt(1).AddParamInt(2).End(false); err == nil {
		t.Fatalf("expected a TYPE_MISMATCH error pushing onto a non-table")
	}
}
