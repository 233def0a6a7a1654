package gm

import (
	"encoding/binary"
	"math"
)

// CompileUnit and FuncBuilder are a minimal, hand-rolled bytecode
// assembler used to build FunctionInfo values and exercise LoadLibrary/
// EncodeLibrary/DecodeLibrary end-to-end in tests without a real parser.
// It is not the "frontend" spec.md §1 refers to as an external
// collaborator — a real GameMonkey-syntax compiler is out of scope — it
// exists purely so this package's own tests can construct bytecode
// directly, the way gmCodeGenerator builds a gmFunctionObject in the
// original source.
type CompileUnit struct {
	Strings []string
	nextID  int32
}

func NewCompileUnit() *CompileUnit { return &CompileUnit{} }

// intern returns the byte offset of s within the eventual strings blob,
// adding it if this is the first use — see stringOffsetIn for why both
// sides of a compile must agree on this exact layout.
func (u *CompileUnit) intern(s string) int32 {
	if off := stringOffsetIn(u.Strings, s); off >= 0 {
		return off
	}
	off := int32(0)
	for _, e := range u.Strings {
		off += int32(len(e)) + 1
	}
	u.Strings = append(u.Strings, s)
	return off
}

// NewFunction starts a new function body within the unit, assigning it
// the next sequential id (the id PushFn operands and the gml0 function
// record both use).
func (u *CompileUnit) NewFunction(debugName string, numParams, numLocals int32, root bool) *FuncBuilder {
	id := u.nextID
	u.nextID++
	return &FuncBuilder{u: u, id: id, root: root, numParams: numParams, numLocals: numLocals, maxStack: numParams + numLocals + 8, debugName: debugName}
}

// FuncBuilder accumulates one function's bytecode and debug metadata.
type FuncBuilder struct {
	u         *CompileUnit
	id        int32
	root      bool
	numParams int32
	numLocals int32
	maxStack  int32

	code  []byte
	lines []LineEntry

	debugName   string
	symbolNames []string
}

func (b *FuncBuilder) emitOp(op Opcode) {
	b.code = append(b.code, byte(op))
}

func (b *FuncBuilder) emitOpImm(op Opcode, v int32) {
	b.code = append(b.code, byte(op))
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.code = append(b.code, tmp[:]...)
}

// Line records a source-line boundary at the current bytecode address
// (gml0 function record's lineInfo table).
func (b *FuncBuilder) Line(line int32) {
	b.lines = append(b.lines, LineEntry{Addr: int32(len(b.code)), Line: line})
}

func (b *FuncBuilder) Symbol(name string) { b.symbolNames = append(b.symbolNames, name) }

func (b *FuncBuilder) PushInt(v int32)     { b.emitOpImm(OpPushInt, v) }
func (b *FuncBuilder) PushFloat(v float32) { b.emitOpImm(OpPushFP, int32(math.Float32bits(v))) }
func (b *FuncBuilder) PushNull()           { b.emitOp(OpPushNull) }
func (b *FuncBuilder) PushStr(s string)    { b.emitOpImm(OpPushStr, b.u.intern(s)) }
func (b *FuncBuilder) PushFn(target *FuncBuilder) { b.emitOpImm(OpPushFn, target.id) }

func (b *FuncBuilder) GetLocal(slot int32) { b.emitOpImm(OpGetLocal, slot) }
func (b *FuncBuilder) SetLocal(slot int32) { b.emitOpImm(OpSetLocal, slot) }

func (b *FuncBuilder) GetGlobal(name string) { b.emitOpImm(OpGetGlobal, b.u.intern(name)) }
func (b *FuncBuilder) SetGlobal(name string) { b.emitOpImm(OpSetGlobal, b.u.intern(name)) }
func (b *FuncBuilder) GetDot(name string)    { b.emitOpImm(OpGetDot, b.u.intern(name)) }
func (b *FuncBuilder) SetDot(name string)    { b.emitOpImm(OpSetDot, b.u.intern(name)) }

func (b *FuncBuilder) Call(numArgs int32) { b.emitOpImm(OpCall, numArgs) }
func (b *FuncBuilder) Return()            { b.emitOp(OpReturn) }

func (b *FuncBuilder) Add() { b.emitOp(OpAdd) }
func (b *FuncBuilder) Sub() { b.emitOp(OpSub) }
func (b *FuncBuilder) Mul() { b.emitOp(OpMul) }
func (b *FuncBuilder) Div() { b.emitOp(OpDiv) }
func (b *FuncBuilder) Mod() { b.emitOp(OpMod) }
func (b *FuncBuilder) Neg() { b.emitOp(OpNeg) }
func (b *FuncBuilder) Eq()  { b.emitOp(OpEq) }
func (b *FuncBuilder) Ne()  { b.emitOp(OpNe) }
func (b *FuncBuilder) Lt()  { b.emitOp(OpLt) }
func (b *FuncBuilder) Le()  { b.emitOp(OpLe) }
func (b *FuncBuilder) Gt()  { b.emitOp(OpGt) }
func (b *FuncBuilder) Ge()  { b.emitOp(OpGe) }
func (b *FuncBuilder) Not() { b.emitOp(OpNot) }

func (b *FuncBuilder) Sleep() { b.emitOp(OpSleep) }
func (b *FuncBuilder) Block() { b.emitOp(OpBlock) }
func (b *FuncBuilder) Yield() { b.emitOp(OpYield) }

func (b *FuncBuilder) NewTable() { b.emitOp(OpNewTable) }

// Bra/Brz/Brnz emit a branch with a placeholder offset and return the
// operand's byte position for a later Patch call.
func (b *FuncBuilder) Bra() int  { return b.branch(OpBra) }
func (b *FuncBuilder) Brz() int  { return b.branch(OpBrz) }
func (b *FuncBuilder) Brnz() int { return b.branch(OpBrnz) }

func (b *FuncBuilder) branch(op Opcode) int {
	b.code = append(b.code, byte(op), 0, 0, 0, 0)
	return len(b.code) - 4
}

// Patch fixes up a branch emitted via Bra/Brz/Brnz so it jumps to
// target, the address of the next instruction emitted after the branch
// is resolved (exec.go adds the operand to pc *after* it has already
// stepped past the 4-byte operand).
func (b *FuncBuilder) Patch(operandPos int) {
	target := int32(len(b.code))
	offset := target - int32(operandPos+4)
	binary.LittleEndian.PutUint32(b.code[operandPos:operandPos+4], uint32(offset))
}

// Addr reports the current bytecode address, for building loop-back
// branches (whose target precedes the branch itself).
func (b *FuncBuilder) Addr() int32 { return int32(len(b.code)) }

// PatchTo fixes up a branch to jump to an already-known address rather
// than "wherever the next instruction lands" (backward branches).
func (b *FuncBuilder) PatchTo(operandPos int, target int32) {
	offset := target - int32(operandPos+4)
	binary.LittleEndian.PutUint32(b.code[operandPos:operandPos+4], uint32(offset))
}

// Build finalizes the function into a FunctionInfo ready for
// EncodeLibrary or direct in-process loading.
func (b *FuncBuilder) Build() FunctionInfo {
	return FunctionInfo{
		ID:          b.id,
		Root:        b.root,
		NumParams:   b.numParams,
		NumLocals:   b.numLocals,
		MaxStack:    b.maxStack,
		Bytecode:    b.code,
		DebugName:   b.debugName,
		Lines:       b.lines,
		SymbolNames: b.symbolNames,
	}
}

// BuildLibrary assembles every builder's finished function alongside the
// unit's accumulated string table into a Library ready for EncodeLibrary
// or a direct LoadLibrary round trip. For a debug library it pads each
// function's symbol names with "" up to NumParams+NumLocals entries and
// adds every debug and symbol name to the string table, so EncodeLibrary
// can write a valid offset for each.
func BuildLibrary(u *CompileUnit, fns []*FuncBuilder, debug bool, source string) Library {
	lib := Library{Debug: debug, Source: source}
	for _, fb := range fns {
		fi := fb.Build()
		if debug {
			for int32(len(fi.SymbolNames)) < fi.NumParams+fi.NumLocals {
				fi.SymbolNames = append(fi.SymbolNames, "")
			}
			u.intern(fi.DebugName)
			for _, s := range fi.SymbolNames {
				u.intern(s)
			}
		}
		lib.Functions = append(lib.Functions, fi)
	}
	lib.Strings = append([]string(nil), u.Strings...)
	return lib
}
