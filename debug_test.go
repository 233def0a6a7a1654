package gm

import "testing"

func buildTwoLineFunction() (FuncBuilder, *CompileUnit) {
	u := NewCompileUnit()
	fb := u.NewFunction("main", 0, 0, true)
	fb.Line(1)
	fb.PushInt(1)
	fb.Line(2)
	fb.PushInt(2)
	fb.Add()
	fb.Return()
	return *fb, u
}

func TestBreakpointBlocksThreadAndNotifiesTransport(t *testing.T) {
	fb, u := buildTwoLineFunction()
	lib := BuildLibrary(u, []*FuncBuilder{&fb}, true, "line one\nline two\n")
	data := EncodeLibrary(lib, LittleEndian)

	m := NewMachine(DefaultConfig())
	root, err := m.LoadLibrary(data)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	m.SetDebug(true)
	ct := NewChanTransport()
	m.AttachTransport(ct)
	m.SetBreakpoint(1, 0, 2, -1, true)

	th := m.CreateThread(root, nil)
	m.Tick(0)

	if th.State() != threadBlocked {
		t.Fatalf("thread state = %v, want blocked at the breakpoint", th.State())
	}

	raw, ok := ct.PollOut()
	if !ok {
		t.Fatalf("expected a dbrk notification on the transport")
	}
	msg, err := decodeMsgHeader(raw)
	if err != nil || msg.tag != tagDBrk {
		t.Fatalf("decodeMsgHeader = %+v, %v; want tag %q", msg, err, tagDBrk)
	}

	m.ClearBreakpointsByRid(1)
	ct.In <- encodeMsg(tagRun, []int32{int32(th.ID())}, nil)
	m.PumpDebug()
	if th.State() != threadRunning {
		t.Fatalf("thread should resume running after mrun, got %v", th.State())
	}

	m.Tick(0)
	if _, ok := m.GetThread(th.ID()); ok {
		t.Fatalf("thread should have run to completion after its breakpoint was cleared")
	}
}

func TestGetSourceRoundTripsThroughDebugProtocol(t *testing.T) {
	fb, u := buildTwoLineFunction()
	const src = "line one\nline two\n"
	lib := BuildLibrary(u, []*FuncBuilder{&fb}, true, src)
	data := EncodeLibrary(lib, LittleEndian)

	m := NewMachine(DefaultConfig())
	if _, err := m.LoadLibrary(data); err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	m.SetDebug(true)
	ct := NewChanTransport()
	m.AttachTransport(ct)

	ct.In <- encodeMsg(tagGSr, []int32{0}, nil)
	m.PumpDebug()

	raw, ok := ct.PollOut()
	if !ok {
		t.Fatalf("expected a dsrc reply")
	}
	msg, err := decodeMsgHeader(raw)
	if err != nil || msg.tag != tagDSrc {
		t.Fatalf("decodeMsgHeader = %+v, %v; want tag %q", msg, err, tagDSrc)
	}
	text, err := msg.r.ReadCString()
	if err != nil || text != src {
		t.Fatalf("returned source = %q, %v; want %q", text, err, src)
	}
}

func TestSetDebugFalseReleasesBreakBlockedThreads(t *testing.T) {
	fb, u := buildTwoLineFunction()
	lib := BuildLibrary(u, []*FuncBuilder{&fb}, true, "a\nb\n")
	data := EncodeLibrary(lib, LittleEndian)

	m := NewMachine(DefaultConfig())
	root, err := m.LoadLibrary(data)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	m.SetDebug(true)
	m.SetBreakpoint(1, 0, 2, -1, true)

	th := m.CreateThread(root, nil)
	m.Tick(0)
	if th.State() != threadBlocked {
		t.Fatalf("thread should be blocked at the breakpoint, got %v", th.State())
	}

	m.SetDebug(false)
	if th.State() != threadRunning {
		t.Fatalf("detaching the debug session should release a break-blocked thread, got %v", th.State())
	}
}

// PollOut drains one message from the transport's outgoing channel
// without blocking, for tests asserting on what PumpDebug/runStep sent.
func (t *ChanTransport) PollOut() ([]byte, bool) {
	select {
	case msg := <-t.Out:
		return msg, true
	default:
		return nil, false
	}
}
