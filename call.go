package gm

import "fmt"

// CallBuilder is the "scoped acquisition of the machine's call slot"
// design notes §9 asks for in place of the original's process-wide
// statics: Machine.BeginCallGlobal/BeginCallMember hand one back,
// AddParam* appends an argument, and End runs it — a session never
// nests because the Machine refuses to start a second one while its
// callActive flag is set.
type CallBuilder struct {
	m    *Machine
	fn   int32
	args []Variant
}

// BeginCallGlobal starts assembling a call to the function bound under
// name in the global table.
func (m *Machine) BeginCallGlobal(name string) (*CallBuilder, error) {
	v, ok := m.heap.GetDot(m.globals, m.heap.InternString([]byte(name)))
	if !ok || v.Type() != TypeFunction {
		return nil, fmt.Errorf("%w: global %q is not a function", ErrKeyNotFound, name)
	}
	return m.beginCall(v.Handle())
}

// BeginCallMember starts assembling a call to the function bound under
// key on the table at tableHandle (the "member by table+key" form).
func (m *Machine) BeginCallMember(tableHandle int32, key string) (*CallBuilder, error) {
	v, ok := m.heap.GetDot(tableHandle, m.heap.InternString([]byte(key)))
	if !ok || v.Type() != TypeFunction {
		return nil, fmt.Errorf("%w: member %q is not a function", ErrKeyNotFound, key)
	}
	return m.beginCall(v.Handle())
}

func (m *Machine) beginCall(fn int32) (*CallBuilder, error) {
	if m.callActive {
		return nil, fmt.Errorf("gm: a call assembly session is already open")
	}
	m.callActive = true
	return &CallBuilder{m: m, fn: fn}, nil
}

func (b *CallBuilder) AddParamInt(v int32) *CallBuilder      { b.args = append(b.args, IntVal(v)); return b }
func (b *CallBuilder) AddParamFloat(v float32) *CallBuilder  { b.args = append(b.args, FloatVal(v)); return b }
func (b *CallBuilder) AddParamNull() *CallBuilder            { b.args = append(b.args, Null()); return b }
func (b *CallBuilder) AddParamString(s string) *CallBuilder {
	b.args = append(b.args, refVal(TypeString, b.m.heap.AllocString([]byte(s))))
	return b
}
func (b *CallBuilder) AddParamVariant(v Variant) *CallBuilder { b.args = append(b.args, v); return b }

// End closes the session, creating a new thread for the call. If delayed
// is true, it returns the new thread's id immediately without waiting
// ("delayed-execute"); otherwise it drives the thread directly (outside
// the normal scheduler queue) until it finishes and returns its result.
// A call that sleeps or blocks cannot be waited for synchronously and
// is reported as an error in that mode — use delayed execution plus
// Machine.Tick/GetThread instead.
func (b *CallBuilder) End(delayed bool) (Variant, int, error) {
	m := b.m
	m.callActive = false
	t := m.CreateThread(b.fn, b.args)
	if delayed {
		return Null(), t.id, nil
	}
	for t.state == threadRunning {
		m.runStep(t)
	}
	switch t.state {
	case threadKilled:
		result := t.Top()
		m.KillThread(t.id)
		return result, t.id, nil
	case threadException:
		err := t.lastErr
		m.appendLog(err.Error())
		m.KillThread(t.id)
		return Null(), t.id, err
	default:
		return Null(), t.id, fmt.Errorf("gm: call to a thread that slept or blocked cannot be awaited synchronously; use delayed execution")
	}
}

// invokeNative runs a native function bound via RegisterLibrary/
// RegisterArrayLib against the numArgs values currently on top of t's
// value stack, pops them, and pushes the single result value — natives
// never get their own call frame since they cannot be paused mid-call
// (spec.md §6 "native binding surface").
func (m *Machine) invokeNative(t *Thread, fo *functionObj, numArgs int) {
	result, err := fo.native(t, numArgs)
	if len(t.stack) >= numArgs {
		t.stack = t.stack[:len(t.stack)-numArgs]
	}
	if err != nil {
		if re, ok := err.(*RuntimeException); ok {
			t.lastErr = re
		} else {
			t.lastErr = &RuntimeException{ThreadID: t.id, Kind: "RUNTIME_ERROR", Message: err.Error()}
		}
		t.state = threadException
		return
	}
	t.Push(result)
}
