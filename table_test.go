package gm

import "testing"

func TestTableSetGetAndKeyNotFound(t *testing.T) {
	m := NewMachine(DefaultConfig())
	h := m.Heap()
	tbl := h.AllocTable()

	key := IntVal(1)
	if _, ok := h.TableGet(tbl, key); ok {
		t.Fatalf("expected key 1 absent from a fresh table")
	}
	if err := h.TableSet(tbl, key, IntVal(100)); err != nil {
		t.Fatalf("TableSet: %v", err)
	}
	v, ok := h.TableGet(tbl, key)
	if !ok || v.Int() != 100 {
		t.Fatalf("TableGet = %v, %v; want 100, true", v, ok)
	}
	if err := h.TableSet(tbl, Null(), IntVal(1)); err == nil {
		t.Fatalf("expected an error setting a null key")
	}
}

func TestTablePreservesInsertionOrder(t *testing.T) {
	m := NewMachine(DefaultConfig())
	h := m.Heap()
	tbl := h.AllocTable()

	order := []int32{5, 3, 1, 4}
	for _, k := range order {
		if err := h.TableSet(tbl, IntVal(k), IntVal(k*10)); err != nil {
			t.Fatalf("TableSet(%d): %v", k, err)
		}
	}
	// Re-inserting an existing key must not move it.
	if err := h.TableSet(tbl, IntVal(3), IntVal(99)); err != nil {
		t.Fatalf("re-TableSet: %v", err)
	}

	var got []int32
	h.TableEach(tbl, func(k, v Variant) bool {
		got = append(got, k.Int())
		return true
	})
	if len(got) != len(order) {
		t.Fatalf("TableEach visited %d entries, want %d", len(got), len(order))
	}
	for i, k := range order {
		if got[i] != k {
			t.Fatalf("TableEach order[%d] = %d, want %d (re-insertion moved a key)", i, got[i], k)
		}
	}
}

func TestTableNthSupportsResumableIteration(t *testing.T) {
	m := NewMachine(DefaultConfig())
	h := m.Heap()
	tbl := h.AllocTable()
	for i := int32(0); i < 3; i++ {
		_ = h.TableSet(tbl, IntVal(i), IntVal(i*100))
	}
	for n := 0; n < 3; n++ {
		k, v, ok := h.TableNth(tbl, n)
		if !ok || k.Int() != int32(n) || v.Int() != int32(n)*100 {
			t.Fatalf("TableNth(%d) = %v, %v, %v", n, k, v, ok)
		}
	}
	if _, _, ok := h.TableNth(tbl, 3); ok {
		t.Fatalf("TableNth(3) should be out of range on a 3-entry table")
	}
}

func TestGetDotSetDotRestrictKeyToString(t *testing.T) {
	m := NewMachine(DefaultConfig())
	h := m.Heap()
	tbl := h.AllocTable()
	name := h.InternString([]byte("x"))

	if err := h.SetDot(tbl, name, IntVal(7)); err != nil {
		t.Fatalf("SetDot: %v", err)
	}
	v, ok := h.GetDot(tbl, name)
	if !ok || v.Int() != 7 {
		t.Fatalf("GetDot = %v, %v; want 7, true", v, ok)
	}
}
