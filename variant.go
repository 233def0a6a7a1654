package gm

// VType is a variant's type tag (spec.md §3).
type VType int32

const (
	TypeNull VType = iota
	TypeInt
	TypeFloat
	// TypeString, TypeTable, and TypeFunction are reference types whose
	// payload is a heap handle; VType >= TypeString discriminates them.
	TypeString
	TypeTable
	TypeFunction
	// TypeUser is the first dynamically registered user-type id; each
	// RegisterUserType call hands back TypeUser+n for a new n.
	TypeUser
)

func (t VType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeTable:
		return "table"
	case TypeFunction:
		return "function"
	default:
		if t >= TypeUser {
			return "user"
		}
		return "unknown"
	}
}

// IsRefType reports whether values of t are heap handles rather than
// inline scalars (spec.md §3: "Reference types are discriminated by
// type >= STRING").
func (t VType) IsRefType() bool { return t >= TypeString }

// Variant is a tagged value, copied by value; reference types copy only
// the handle (spec.md §3).
type Variant struct {
	vtype VType
	ival  int32
	fval  float32
	h     int32 // object handle, valid iff vtype.IsRefType()
}

func Null() Variant                 { return Variant{vtype: TypeNull} }
func IntVal(v int32) Variant        { return Variant{vtype: TypeInt, ival: v} }
func FloatVal(v float32) Variant    { return Variant{vtype: TypeFloat, fval: v} }
func refVal(t VType, h int32) Variant { return Variant{vtype: t, h: h} }

func (v Variant) Type() VType { return v.vtype }
func (v Variant) IsNull() bool { return v.vtype == TypeNull }
func (v Variant) Handle() int32 { return v.h }

func (v Variant) Int() int32 {
	switch v.vtype {
	case TypeInt:
		return v.ival
	case TypeFloat:
		return int32(v.fval)
	default:
		return 0
	}
}

func (v Variant) Float() float32 {
	switch v.vtype {
	case TypeFloat:
		return v.fval
	case TypeInt:
		return float32(v.ival)
	default:
		return 0
	}
}

// Equal implements the value-equality used by table key lookup and the
// == operator: reference types compare by handle identity (interned
// strings therefore compare equal by identity too, spec.md §3 invariant
// "intern(s1) == intern(s2) iff bytes equal").
func (v Variant) Equal(o Variant) bool {
	if v.vtype != o.vtype {
		// int/float are cross-comparable by numeric value, as the
		// original VM's arithmetic/comparison operators allow.
		if v.vtype == TypeInt && o.vtype == TypeFloat {
			return float32(v.ival) == o.fval
		}
		if v.vtype == TypeFloat && o.vtype == TypeInt {
			return v.fval == float32(o.ival)
		}
		return false
	}
	switch v.vtype {
	case TypeNull:
		return true
	case TypeInt:
		return v.ival == o.ival
	case TypeFloat:
		return v.fval == o.fval
	default:
		return v.h == o.h
	}
}
