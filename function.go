package gm

import "encoding/binary"

// LineEntry maps a bytecode address to a source line, the debug metadata
// attached to a script function (spec.md §4.H function record).
type LineEntry struct {
	Addr int32
	Line int32
}

// FunctionInfo is the contract a frontend hands the runtime to register a
// compiled function (spec.md §1: "The VM consumes bytecode; the compiler
// frontend ... produce[s] a FunctionInfo"). Strings/function ids embedded
// in Bytecode are *string-table offsets / function ids*, not yet fixed up
// to handles — fixup.go rewrites them at link time.
type FunctionInfo struct {
	ID          int32
	Root        bool // flags bit 0: entry point
	NumParams   int32
	NumLocals   int32
	MaxStack    int32
	Bytecode    []byte
	DebugName   string
	SourceID    int32
	Lines       []LineEntry
	SymbolNames []string // length == NumParams+NumLocals, debug-only
}

// functionObj is either a script function (owns bytecode + metadata) or a
// native function (owns a host callback) — spec.md §3 "Function".
type functionObj struct {
	objHeader

	isNative bool

	// Script fields.
	numParams int32
	numLocals int32
	maxStack  int32
	bytecode  []byte
	root      bool
	debugName string
	sourceID  int32
	lines     []LineEntry

	// Native fields.
	native NativeFunc
}

// NativeFunc is a host-implemented function bound into the runtime (§6
// "register_library"). It reads arguments off the calling thread's stack
// and returns the value to leave on top, or an error to raise as a
// RUNTIME_EXCEPTION.
type NativeFunc func(t *Thread, numArgs int) (Variant, error)

func (f *functionObj) header() *objHeader { return &f.objHeader }

// trace reports the string and function handles that fixup wrote into a
// script function's bytecode operands; native functions hold none.
func (f *functionObj) trace(mark func(int32)) {
	walkBytecode(f.bytecode, func(kind operandKind, off int) {
		if kind == operandStringOffset || kind == operandFunctionID {
			mark(int32(binary.LittleEndian.Uint32(f.bytecode[off : off+4])))
		}
	})
}

func (f *functionObj) byteSize() int {
	if f.isNative {
		return 48
	}
	return 96 + len(f.bytecode) + len(f.lines)*8
}

// AllocFunctionScript registers a script function's bytecode and metadata.
func (h *Heap) AllocFunctionScript(fi FunctionInfo) int32 {
	obj := &functionObj{
		numParams: fi.NumParams,
		numLocals: fi.NumLocals,
		maxStack:  fi.MaxStack,
		bytecode:  fi.Bytecode,
		root:      fi.Root,
		debugName: fi.DebugName,
		sourceID:  fi.SourceID,
		lines:     fi.Lines,
	}
	obj.typ = TypeFunction
	return h.alloc(obj)
}

// AllocFunctionNative wraps a host callback as a callable function object.
func (h *Heap) AllocFunctionNative(fn NativeFunc, name string) int32 {
	obj := &functionObj{isNative: true, native: fn, debugName: name}
	obj.typ = TypeFunction
	return h.alloc(obj)
}

func (h *Heap) function(handle int32) *functionObj {
	f, _ := h.object(handle).(*functionObj)
	return f
}

// LineForAddr returns the source line active at bytecode address addr,
// the last entry whose Addr <= addr (debug stepping, spec.md §4.I).
func (f *functionObj) LineForAddr(addr int32) int32 {
	line := int32(-1)
	for _, e := range f.lines {
		if e.Addr > addr {
			break
		}
		line = e.Line
	}
	return line
}
