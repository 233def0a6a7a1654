package gm

import "math"

// binOp implements the arithmetic/comparison/logical operators of
// spec.md §4.F "Operator dispatch": a small table-driven switch, falling
// through to a user type's registered overload (if any) before raising
// TYPE_MISMATCH.
func (m *Machine) binOp(t *Thread, op Opcode, lhs, rhs Variant) Variant {
	if lhs.Type() >= TypeUser || rhs.Type() >= TypeUser {
		if v, ok := m.userBinOp(t, op, lhs, rhs); ok {
			return v
		}
	}
	switch op {
	case OpAdd:
		if lhs.Type() == TypeString && rhs.Type() == TypeString {
			return m.concatStrings(lhs, rhs)
		}
		return numeric(t, lhs, rhs, func(a, b int32) int32 { return a + b }, func(a, b float32) float32 { return a + b })
	case OpSub:
		return numeric(t, lhs, rhs, func(a, b int32) int32 { return a - b }, func(a, b float32) float32 { return a - b })
	case OpMul:
		return numeric(t, lhs, rhs, func(a, b int32) int32 { return a * b }, func(a, b float32) float32 { return a * b })
	case OpDiv:
		if isZero(rhs) {
			t.raise("DIV_BY_ZERO", "division by zero")
			return Null()
		}
		return numeric(t, lhs, rhs, func(a, b int32) int32 { return a / b }, func(a, b float32) float32 { return a / b })
	case OpMod:
		if isZero(rhs) {
			t.raise("DIV_BY_ZERO", "modulo by zero")
			return Null()
		}
		return numeric(t, lhs, rhs, func(a, b int32) int32 { return a % b }, func(a, b float32) float32 { return float32(math.Mod(float64(a), float64(b))) })
	case OpEq:
		return boolVal(lhs.Equal(rhs))
	case OpNe:
		return boolVal(!lhs.Equal(rhs))
	case OpLt:
		return compare(t, lhs, rhs, func(c int) bool { return c < 0 })
	case OpLe:
		return compare(t, lhs, rhs, func(c int) bool { return c <= 0 })
	case OpGt:
		return compare(t, lhs, rhs, func(c int) bool { return c > 0 })
	case OpGe:
		return compare(t, lhs, rhs, func(c int) bool { return c >= 0 })
	case OpAnd:
		return boolVal(truthy(lhs) && truthy(rhs))
	case OpOr:
		return boolVal(truthy(lhs) || truthy(rhs))
	default:
		t.raise("TYPE_MISMATCH", "unsupported binary operator")
		return Null()
	}
}

func (m *Machine) userBinOp(t *Thread, op Opcode, lhs, rhs Variant) (Variant, bool) {
	side := lhs
	if side.Type() < TypeUser {
		side = rhs
	}
	ut := m.userType(side.Type())
	if ut == nil || ut.cb.Operators == nil {
		return Null(), false
	}
	fn, ok := ut.cb.Operators[opSymbol(op)]
	if !ok {
		return Null(), false
	}
	v, err := fn(t, lhs, rhs)
	if err != nil {
		if re, ok := err.(*RuntimeException); ok {
			t.lastErr = re
			t.state = threadException
		} else {
			t.raise("TYPE_MISMATCH", err.Error())
		}
		return Null(), true
	}
	return v, true
}

func opSymbol(op Opcode) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return ""
	}
}

func (m *Machine) unaryOp(t *Thread, op Opcode, v Variant) Variant {
	switch op {
	case OpNeg:
		switch v.Type() {
		case TypeInt:
			return IntVal(-v.Int())
		case TypeFloat:
			return FloatVal(-v.Float())
		default:
			t.raise("TYPE_MISMATCH", "unary - on non-numeric operand")
			return Null()
		}
	case OpNot:
		return boolVal(!truthy(v))
	default:
		t.raise("TYPE_MISMATCH", "unsupported unary operator")
		return Null()
	}
}

func (m *Machine) concatStrings(lhs, rhs Variant) Variant {
	a := m.heap.StringBytes(lhs.Handle())
	b := m.heap.StringBytes(rhs.Handle())
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return refVal(TypeString, m.heap.AllocString(out))
}

func numeric(t *Thread, lhs, rhs Variant, iop func(a, b int32) int32, fop func(a, b float32) float32) Variant {
	if lhs.Type() != TypeInt && lhs.Type() != TypeFloat || rhs.Type() != TypeInt && rhs.Type() != TypeFloat {
		t.raise("TYPE_MISMATCH", "arithmetic on non-numeric operand")
		return Null()
	}
	if lhs.Type() == TypeInt && rhs.Type() == TypeInt {
		return IntVal(iop(lhs.Int(), rhs.Int()))
	}
	return FloatVal(fop(lhs.Float(), rhs.Float()))
}

func compare(t *Thread, lhs, rhs Variant, pred func(c int) bool) Variant {
	switch {
	case (lhs.Type() == TypeInt || lhs.Type() == TypeFloat) && (rhs.Type() == TypeInt || rhs.Type() == TypeFloat):
		a, b := lhs.Float(), rhs.Float()
		switch {
		case a < b:
			return boolVal(pred(-1))
		case a > b:
			return boolVal(pred(1))
		default:
			return boolVal(pred(0))
		}
	case lhs.Type() == TypeString && rhs.Type() == TypeString:
		a := t.m.heap.StringBytes(lhs.Handle())
		b := t.m.heap.StringBytes(rhs.Handle())
		c := 0
		switch {
		case string(a) < string(b):
			c = -1
		case string(a) > string(b):
			c = 1
		}
		return boolVal(pred(c))
	default:
		t.raise("TYPE_MISMATCH", "comparison on incompatible operands")
		return Null()
	}
}

func isZero(v Variant) bool {
	switch v.Type() {
	case TypeInt:
		return v.Int() == 0
	case TypeFloat:
		return v.Float() == 0
	default:
		return false
	}
}

// truthy implements the original's "null and int(0)/float(0.0) are
// falsy, everything else (including empty strings/tables) is truthy"
// rule (spec.md §3).
func truthy(v Variant) bool {
	switch v.Type() {
	case TypeNull:
		return false
	case TypeInt:
		return v.Int() != 0
	case TypeFloat:
		return v.Float() != 0
	default:
		return true
	}
}

func boolVal(b bool) Variant {
	if b {
		return IntVal(1)
	}
	return IntVal(0)
}
