package gm

// debugBreakSignal is the reserved "signal" value a thread blocks on
// when it has hit a breakpoint/step target — distinct from any key a
// script itself could pass to block()/signal() since those are produced
// by script-level int arithmetic the compiler controls, and this session
// never hands this constant to script code.
const debugBreakSignal int32 = -1

// stepMode is the stepping intent the client last requested for a
// thread (spec.md §4.I: STEP_INTO/STEP_OVER/STEP_OUT).
type stepMode int32

const (
	stepNone stepMode = iota
	stepInto
	stepOver
	stepOut
)

// stepState is kept in a side table keyed by thread id rather than on
// Thread itself (spec.md §9 "Stepping state ... prefer a side table
// keyed by thread id to keep the thread structure focused").
type stepState struct {
	mode      stepMode
	baseDepth int
}

type breakpoint struct {
	rid     int32
	fn      int32
	addr    int32
	thr     int32 // -1 == any thread
	enabled bool
}

// debugSession is the attached remote-debug state of spec.md §4.I: a
// transport, a breakpoint table, and per-thread stepping state. Only one
// can be attached to a Machine at a time.
type debugSession struct {
	m         *Machine
	transport Transport

	breakpoints []breakpoint
	steps       map[int]*stepState
}

// SetDebug attaches or detaches a debug session. Detaching drops all
// breakpoints and stepping state and lets every blocked-on-break thread
// resume as if mrun had been sent for it.
func (m *Machine) SetDebug(enabled bool) {
	if !enabled {
		if m.debug != nil {
			for id, t := range m.threads {
				if t.state == threadBlocked && t.signal == debugBreakSignal {
					t.Wake()
					m.runQueue = append(m.runQueue, id)
				}
			}
		}
		m.debug = nil
		return
	}
	if m.debug == nil {
		m.debug = &debugSession{m: m, steps: make(map[int]*stepState)}
	}
}

// AttachTransport wires a Transport into the (already-enabled) debug
// session; SetDebug(true) must be called first.
func (m *Machine) AttachTransport(t Transport) {
	if m.debug != nil {
		m.debug.transport = t
	}
}

// eachRoot reports breakpoint-owning function handles as roots so a
// library with an attached breakpoint cannot be collected out from
// under the debug session.
func (d *debugSession) eachRoot(mark func(handle int32)) {
	for _, bp := range d.breakpoints {
		mark(bp.fn)
	}
}

// shouldBreak reports whether t's current instruction is a breakpoint or
// satisfies its active step intent (spec.md §4.I "line hook").
func (d *debugSession) shouldBreak(t *Thread) bool {
	for _, bp := range d.breakpoints {
		if !bp.enabled || bp.fn != t.fn || bp.addr != t.pc {
			continue
		}
		if bp.thr >= 0 && bp.thr != int32(t.id) {
			continue
		}
		return true
	}
	if st, ok := d.steps[t.id]; ok {
		switch st.mode {
		case stepInto:
			return true
		case stepOver, stepOut:
			return t.Depth() <= st.baseDepth
		}
	}
	return false
}

// notifyBreak sends a dbrk message and clears any one-shot step intent
// for t (the client must re-request stepping after each break).
func (d *debugSession) notifyBreak(t *Thread) {
	delete(d.steps, t.id)
	if d.transport == nil {
		return
	}
	fo := d.m.heap.function(t.fn)
	line := int32(-1)
	if fo != nil {
		line = fo.LineForAddr(t.pc)
	}
	_ = d.transport.PushOutgoing(encodeMsg(tagDBrk, []int32{int32(t.id), t.fn, t.pc, line}, nil))
}

// notifyStop reports a thread has ended (killed or faulted) while a
// debug session is attached.
func (d *debugSession) notifyStop(t *Thread) {
	if d.transport == nil {
		return
	}
	_ = d.transport.PushOutgoing(encodeMsg(tagDStp, []int32{int32(t.id)}, nil))
}

// notifyException reports a runtime exception on a watched thread.
func (d *debugSession) notifyException(t *Thread) {
	if d.transport == nil || t.lastErr == nil {
		return
	}
	_ = d.transport.PushOutgoing(encodeMsg(tagDExc, []int32{int32(t.id)}, []string{t.lastErr.Kind, t.lastErr.Message}))
}

// SetBreakpoint resolves (sourceID, line) against every function loaded
// from that source and installs a breakpoint at the matching address in
// each, honoring per-thread scoping (spec.md §4.I "msbp rid src line thr
// enabled").
func (m *Machine) SetBreakpoint(rid, sourceID, line, thr int32, enabled bool) {
	if m.debug == nil {
		return
	}
	for _, fnHandle := range m.funcsBySource[sourceID] {
		fo := m.heap.function(fnHandle)
		if fo == nil {
			continue
		}
		addr := addrForLine(fo, line)
		if addr < 0 {
			continue
		}
		m.debug.breakpoints = append(m.debug.breakpoints, breakpoint{
			rid: rid, fn: fnHandle, addr: addr, thr: thr, enabled: enabled,
		})
	}
}

func addrForLine(fo *functionObj, line int32) int32 {
	for _, e := range fo.lines {
		if e.Line == line {
			return e.Addr
		}
	}
	return -1
}

// ClearBreakpointsByRid removes every breakpoint registered under rid
// (the handle msbp's caller uses to later clear what it set).
func (m *Machine) ClearBreakpointsByRid(rid int32) {
	if m.debug == nil {
		return
	}
	kept := m.debug.breakpoints[:0]
	for _, bp := range m.debug.breakpoints {
		if bp.rid != rid {
			kept = append(kept, bp)
		}
	}
	m.debug.breakpoints = kept
}

// SetStep arms a one-shot stepping intent for thread id, waking it if it
// is currently blocked on a previous break (mrun/msin/msov/msou).
func (m *Machine) SetStep(id int, mode stepMode) {
	if m.debug == nil {
		return
	}
	t, ok := m.threads[id]
	if !ok {
		return
	}
	if mode != stepNone {
		m.debug.steps[id] = &stepState{mode: mode, baseDepth: t.Depth()}
	} else {
		delete(m.debug.steps, id)
	}
	if t.state == threadBlocked && t.signal == debugBreakSignal {
		t.Wake()
		m.runQueue = append(m.runQueue, id)
	}
}

// PumpDebug drains every message currently available on the attached
// transport and applies it — the embedder calls this once per its own
// poll loop, not from inside a Tick (spec.md §4.I: the session owns a
// user-supplied pump).
func (m *Machine) PumpDebug() {
	d := m.debug
	if d == nil || d.transport == nil {
		return
	}
	for {
		raw, ok := d.transport.PollIncoming()
		if !ok {
			return
		}
		msg, err := decodeMsgHeader(raw)
		if err != nil {
			_ = d.transport.PushOutgoing(encodeMsg(tagDErr, nil, nil))
			continue
		}
		m.handleDebugMsg(msg)
	}
}

func (m *Machine) handleDebugMsg(msg decodedMsg) {
	d := m.debug
	switch msg.tag {
	case tagRun:
		thr, _ := msg.r.ReadInt32()
		m.SetStep(int(thr), stepNone)
	case tagSIn:
		thr, _ := msg.r.ReadInt32()
		m.SetStep(int(thr), stepInto)
	case tagSOv:
		thr, _ := msg.r.ReadInt32()
		m.SetStep(int(thr), stepOver)
	case tagSOu:
		thr, _ := msg.r.ReadInt32()
		m.SetStep(int(thr), stepOut)
	case tagSBp:
		rid, _ := msg.r.ReadInt32()
		src, _ := msg.r.ReadInt32()
		line, _ := msg.r.ReadInt32()
		thr, _ := msg.r.ReadInt32()
		enabledFlag, _ := msg.r.ReadInt32()
		if enabledFlag == 0 {
			m.ClearBreakpointsByRid(rid)
		} else {
			m.SetBreakpoint(rid, src, line, thr, true)
		}
		_ = d.transport.PushOutgoing(encodeMsg(tagDAck, nil, nil))
	case tagBrk:
		thr, _ := msg.r.ReadInt32()
		if t, ok := m.threads[int(thr)]; ok {
			t.Block(debugBreakSignal)
			delete(d.steps, int(thr))
		}
	case tagGSr:
		src, _ := msg.r.ReadInt32()
		text, filename, ok := m.GetSource(src)
		if !ok {
			_ = d.transport.PushOutgoing(encodeMsg(tagDErr, nil, nil))
			return
		}
		_ = d.transport.PushOutgoing(encodeMsg(tagDSrc, nil, []string{text, filename}))
	case tagGCt:
		thr, _ := msg.r.ReadInt32()
		_, _ = msg.r.ReadInt32() // frame index, unused: single-frame context only
		if t, ok := m.threads[int(thr)]; ok {
			fo := m.heap.function(t.fn)
			line := int32(-1)
			if fo != nil {
				line = fo.LineForAddr(t.pc)
			}
			_ = d.transport.PushOutgoing(encodeMsg(tagDCtx, []int32{t.fn, t.pc, line}, nil))
		}
		_ = d.transport.PushOutgoing(encodeMsg(tagDAck, nil, nil))
	case tagGTi:
		ids := make([]int32, 0, len(m.threads))
		for id := range m.threads {
			ids = append(ids, int32(id))
		}
		_ = d.transport.PushOutgoing(encodeMsg(tagDThi, ids, nil))
		_ = d.transport.PushOutgoing(encodeMsg(tagDAck, nil, nil))
	case tagGSi, tagGVi:
		// Stubbed in the original; spec.md §9 open question (i) says not
		// to guess their reply shape — return an empty ack group.
		_ = d.transport.PushOutgoing(encodeMsg(tagDAck, nil, nil))
	case tagEnd:
		m.SetDebug(false)
		_ = d.transport.PushOutgoing(encodeMsg(tagDEnd, nil, nil))
	default:
		_ = d.transport.PushOutgoing(encodeMsg(tagDErr, nil, nil))
	}
}
