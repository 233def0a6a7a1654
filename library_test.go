package gm

import (
	"encoding/binary"
	"errors"
	"testing"
)

const testSrc = `
function add(a, b) {
	return a + b;
}
global result = add(2, 3);
`

func runMain(t *testing.T, m *Machine, root int32) *Thread {
	t.Helper()
	th := m.CreateThread(root, nil)
	for th.State() == threadRunning {
		m.runStep(th)
	}
	if th.State() != threadKilled {
		t.Fatalf("main thread ended in state %v, err=%v", th.State(), th.LastError())
	}
	return th
}

func TestParseCompileLoadRunRoundTrip(t *testing.T) {
	lib, err := ParseMiniSource(testSrc)
	if err != nil {
		t.Fatalf("ParseMiniSource: %v", err)
	}

	data := EncodeLibrary(lib, LittleEndian)
	m := NewMachine(DefaultConfig())
	root, err := m.LoadLibrary(data)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	runMain(t, m, root)

	resultName := m.Heap().InternString([]byte("result"))
	v, ok := m.Heap().GetDot(m.Globals(), resultName)
	if !ok || v.Int() != 5 {
		t.Fatalf("global result = %v, %v; want 5, true", v, ok)
	}

	b, err := m.BeginCallGlobal("add")
	if err != nil {
		t.Fatalf("BeginCallGlobal: %v", err)
	}
	res, _, err := b.AddParamInt(10).AddParamInt(20).End(false)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if res.Int() != 30 {
		t.Fatalf("add(10, 20) = %v, want 30", res)
	}
}

func TestEndianRoundTripProducesIdenticalBehaviour(t *testing.T) {
	lib, err := ParseMiniSource(testSrc)
	if err != nil {
		t.Fatalf("ParseMiniSource: %v", err)
	}

	leData := EncodeLibrary(lib, LittleEndian)
	beData := EncodeLibrary(lib, BigEndian)
	if string(leData[0:4]) != "gml0" {
		t.Fatalf("little-endian magic = %q", leData[0:4])
	}
	if string(beData[0:4]) != "0lmg" {
		t.Fatalf("big-endian magic = %q", beData[0:4])
	}

	for _, data := range [][]byte{leData, beData} {
		m := NewMachine(DefaultConfig())
		root, err := m.LoadLibrary(data)
		if err != nil {
			t.Fatalf("LoadLibrary: %v", err)
		}
		runMain(t, m, root)
		resultName := m.Heap().InternString([]byte("result"))
		v, ok := m.Heap().GetDot(m.Globals(), resultName)
		if !ok || v.Int() != 5 {
			t.Fatalf("global result after decode = %v, %v; want 5, true", v, ok)
		}
	}
}

func TestLoadLibraryRejectsBadMagic(t *testing.T) {
	m := NewMachine(DefaultConfig())
	if _, err := m.LoadLibrary([]byte("xxxxnotalibrary")); err == nil {
		t.Fatalf("expected an error loading garbage data")
	}
}

func TestLoadLibraryRejectsMissingRoot(t *testing.T) {
	u := NewCompileUnit()
	fb := u.NewFunction("notRoot", 0, 0, false)
	fb.PushNull()
	fb.Return()
	lib := BuildLibrary(u, []*FuncBuilder{fb}, false, "")

	data := EncodeLibrary(lib, LittleEndian)
	m := NewMachine(DefaultConfig())
	if _, err := m.LoadLibrary(data); err == nil {
		t.Fatalf("expected an error loading a library with no root function")
	}
}

func TestLoadLibraryRejectsOutOfRangeStringOffset(t *testing.T) {
	u := NewCompileUnit()
	fb := u.NewFunction("main", 0, 0, true)
	fb.GetGlobal("foo")
	fb.Return()
	lib := BuildLibrary(u, []*FuncBuilder{fb}, false, "")

	// Corrupt the GetGlobal instruction's string-table-offset operand
	// (the 4 bytes right after its opcode byte) into a value no string
	// in the table could possibly sit at.
	fn := &lib.Functions[0]
	binary.LittleEndian.PutUint32(fn.Bytecode[1:5], 0x7fffffff)

	data := EncodeLibrary(lib, LittleEndian)
	m := NewMachine(DefaultConfig())
	before := m.Metrics().Allocated

	if _, err := m.LoadLibrary(data); err == nil {
		t.Fatalf("expected an error loading a library with an out-of-range string offset")
	} else if !errors.Is(err, ErrLibLoad) {
		t.Fatalf("LoadLibrary error = %v, want ErrLibLoad", err)
	}

	// The aborted load must not leave anything installed: the
	// tentatively allocated function object is torn down and its byte
	// charge reversed, so the GC budget is back where it started.
	if got := m.Metrics().Allocated; got != before {
		t.Fatalf("Allocated after aborted load = %d, want unchanged %d", got, before)
	}
}

func TestExtractRejectsNonDebugLibrary(t *testing.T) {
	u := NewCompileUnit()
	fb := u.NewFunction("main", 0, 0, true)
	fb.PushNull()
	fb.Return()
	lib := BuildLibrary(u, []*FuncBuilder{fb}, false, "source text never embedded")

	data := EncodeLibrary(lib, LittleEndian)
	decoded, _, err := DecodeLibrary(data)
	if err != nil {
		t.Fatalf("DecodeLibrary: %v", err)
	}
	if decoded.Debug {
		t.Fatalf("library compiled without -g decoded as Debug")
	}
	if decoded.Source != "" {
		t.Fatalf("non-debug library round-tripped embedded source: %q", decoded.Source)
	}
}
