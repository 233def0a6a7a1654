package gm

import (
	"encoding/binary"
	"math"
)

// runStep executes t for up to Config.OpcodeBudgetPerStep instructions,
// or until it sleeps, blocks, returns from its entry frame, or faults
// (spec.md §5 "opcode-budget-per-step"). It is the only place thread
// state actually changes from Running to something else mid-execution.
func (m *Machine) runStep(t *Thread) {
	budget := m.cfg.OpcodeBudgetPerStep
	for i := 0; i < budget; i++ {
		if m.debug != nil && m.debug.shouldBreak(t) {
			t.state = threadBlocked
			t.signal = debugBreakSignal
			m.debug.notifyBreak(t)
			return
		}

		fo := m.heap.function(t.fn)
		if fo == nil {
			t.raise("BAD_CALL", "current function handle is no longer valid")
			return
		}
		if fo.isNative {
			numArgs := len(t.stack) - int(t.base)
			m.invokeNative(t, fo, numArgs)
			if t.state != threadRunning {
				return
			}
			// A native entry function (no caller frame) completes the
			// thread once it returns.
			if len(t.frame) == 0 {
				t.state = threadKilled
			}
			return
		}
		if int(t.pc) >= len(fo.bytecode) {
			// Fell off the end without an explicit return.
			if !t.callReturn(Null()) {
				t.state = threadKilled
			}
			continue
		}

		op := Opcode(fo.bytecode[t.pc])
		t.pc++
		var operand int32
		if n := op.operandSize(); n > 0 {
			operand = int32(binary.LittleEndian.Uint32(fo.bytecode[t.pc:]))
			t.pc += int32(n)
		}

		m.exec1(t, op, operand)
		if t.state != threadRunning {
			return
		}
		if op == OpYield {
			// Explicit yield point (spec.md §5): end this slice now rather
			// than keep consuming the opcode budget, even though the
			// thread's state stays Running either way.
			return
		}
	}
}

func (m *Machine) exec1(t *Thread, op Opcode, operand int32) {
	switch op {
	case OpPushInt:
		t.Push(IntVal(operand))
	case OpPushFP:
		t.Push(bitsToFloat(operand))
	case OpPushStr:
		t.Push(refVal(TypeString, operand))
	case OpPushFn:
		t.Push(refVal(TypeFunction, operand))
	case OpPushNull:
		t.Push(Null())

	case OpGetLocal:
		t.Push(t.Local(operand))
	case OpSetLocal:
		t.SetLocal(operand, t.Pop())

	case OpGetGlobal:
		v, _ := m.heap.GetDot(m.globals, operand)
		t.Push(v)
	case OpSetGlobal:
		v := t.Pop()
		_ = m.heap.SetDot(m.globals, operand, v)

	case OpGetDot:
		obj := t.Pop()
		if obj.Type() != TypeTable {
			t.raise("TYPE_MISMATCH", "dot access on non-table")
			return
		}
		v, _ := m.heap.GetDot(obj.Handle(), operand)
		t.Push(v)
	case OpSetDot:
		val := t.Pop()
		obj := t.Pop()
		if obj.Type() != TypeTable {
			t.raise("TYPE_MISMATCH", "dot assignment on non-table")
			return
		}
		_ = m.heap.SetDot(obj.Handle(), operand, val)

	case OpGetThis:
		v, _ := m.heap.GetDot(t.Local(0).Handle(), operand)
		t.Push(v)
	case OpSetThis:
		val := t.Pop()
		_ = m.heap.SetDot(t.Local(0).Handle(), operand, val)

	case OpCall:
		fn := t.Pop()
		if fn.Type() != TypeFunction {
			t.raise("TYPE_MISMATCH", "call target is not a function")
			return
		}
		fo := m.heap.function(fn.Handle())
		if fo == nil {
			t.raise("BAD_CALL", "call target handle is not a live function")
			return
		}
		if fo.isNative {
			m.invokeNative(t, fo, int(operand))
			return
		}
		t.callInto(fn.Handle(), operand, t.pc)

	case OpReturn:
		v := t.Pop()
		if !t.callReturn(v) {
			t.state = threadKilled
		}

	case OpBra:
		t.pc += operand
	case OpBrz:
		if !truthy(t.Pop()) {
			t.pc += operand
		}
	case OpBrnz:
		if truthy(t.Pop()) {
			t.pc += operand
		}
	case OpBrzk:
		if !truthy(t.Top()) {
			t.pc += operand
		} else {
			t.Pop()
		}
	case OpBrnzk:
		if truthy(t.Top()) {
			t.pc += operand
		} else {
			t.Pop()
		}

	case OpForeach:
		m.execForeach(t, operand)

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpAnd, OpOr:
		rhs := t.Pop()
		lhs := t.Pop()
		t.Push(m.binOp(t, op, lhs, rhs))
	case OpNeg, OpNot:
		t.Push(m.unaryOp(t, op, t.Pop()))

	case OpNewTable:
		t.Push(refVal(TypeTable, m.heap.AllocTable()))
	case OpNewArray:
		t.Push(refVal(TypeTable, m.heap.NewArray().Handle()))

	case OpSleep:
		ms := t.Pop().Int()
		t.Sleep(int64(ms), m.clockMS)
	case OpBlock:
		key := t.Pop().Int()
		t.Block(key)
	case OpYield:
		// Cooperative yield with no sleep/block condition: stop this
		// slice immediately, thread stays Running and is requeued.

	default:
		t.raise("TYPE_MISMATCH", "unimplemented opcode")
	}
}

// execForeach implements the dense-iteration opcode: it pops the table
// from the top of the value stack, keeps the cursor in the local slot
// encoded in the low 16 bits of operand, and branches by the offset in
// the high 16 bits once the table is exhausted. FuncBuilder has no
// method that emits OpForeach.
func (m *Machine) execForeach(t *Thread, operand int32) {
	slot := operand & 0xffff
	offset := operand >> 16
	tableVal := t.Pop()
	if tableVal.Type() != TypeTable {
		t.raise("TYPE_MISMATCH", "foreach over non-table")
		return
	}
	cursor := int(t.Local(slot).Int())
	k, v, ok := m.heap.TableNth(tableVal.Handle(), cursor)
	if !ok {
		t.pc += offset
		return
	}
	t.SetLocal(slot, IntVal(int32(cursor+1)))
	t.Push(k)
	t.Push(v)
	t.Push(tableVal) // put the table back for the next iteration's OpForeach
}

func bitsToFloat(bits int32) Variant {
	return FloatVal(math.Float32frombits(uint32(bits)))
}
