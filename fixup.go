package gm

import "encoding/binary"

// walkBytecode steps through canonical (little-endian) code one
// instruction at a time, calling fn with each instruction's operand kind
// and byte offset (of the operand itself, not the opcode). It never
// decodes operand values semantically — it only needs to know how many
// bytes to skip, the "known operand size" walk spec.md §4.H describes.
func walkBytecode(code []byte, fn func(kind operandKind, operandOffset int)) {
	i := 0
	for i < len(code) {
		op := Opcode(code[i])
		i++
		n := op.operandSize()
		if n == 0 {
			continue
		}
		if i+n > len(code) {
			return
		}
		fn(op.operandKind(), i)
		i += n
	}
}

// normalizeWireBytecode converts a function body just read off disk
// (operands packed in the container's declared endian) into the
// runtime's canonical little-endian form, the representation exec.go and
// fixupFunction always operate on. Opcode bytes are single bytes and
// need no conversion; only 4-byte operands do.
func normalizeWireBytecode(code []byte, endian Endian) []byte {
	if endian == LittleEndian {
		return append([]byte(nil), code...)
	}
	out := append([]byte(nil), code...)
	walkBytecode(code, func(_ operandKind, off int) {
		v := endian.order().Uint32(code[off : off+4])
		binary.LittleEndian.PutUint32(out[off:off+4], v)
	})
	return out
}

// encodeWireBytecode writes code (canonical little-endian) to w using
// w's endianness — the inverse of normalizeWireBytecode, used by
// EncodeLibrary so a big-endian-requested container round-trips through
// S5/S7's endian properties.
func encodeWireBytecode(w *StreamWriter, code []byte) {
	i := 0
	for i < len(code) {
		op := Opcode(code[i])
		w.WriteBytes(code[i : i+1])
		i++
		n := op.operandSize()
		if n == 0 {
			continue
		}
		if i+n > len(code) {
			break
		}
		v := int32(binary.LittleEndian.Uint32(code[i : i+4]))
		w.WriteInt32(v)
		i += n
	}
}

// fixupFunction rewrites every string-table-offset and function-id
// operand in canonical (little-endian) bytecode into a resolved heap
// handle, in place — the fixup pass of spec.md §4.H, run once per
// loaded function after every string and function has been allocated.
// stringAt/funcAt report ok=false for an offset/id that resolves to
// nothing; fixupFunction reports that back as unresolved rather than
// writing a sentinel handle into the bytecode, so LoadLibrary can treat
// an out-of-range offset as the LIB_LOAD_ERROR spec.md §7 requires
// instead of installing bytecode with a bogus handle baked into it.
func fixupFunction(code []byte, stringAt func(offset int32) (int32, bool), funcAt func(id int32) (int32, bool)) bool {
	ok := true
	walkBytecode(code, func(kind operandKind, off int) {
		raw := int32(binary.LittleEndian.Uint32(code[off : off+4]))
		switch kind {
		case operandStringOffset:
			h, resolved := stringAt(raw)
			if !resolved {
				ok = false
				return
			}
			binary.LittleEndian.PutUint32(code[off:off+4], uint32(h))
		case operandFunctionID:
			h, resolved := funcAt(raw)
			if !resolved {
				ok = false
				return
			}
			binary.LittleEndian.PutUint32(code[off:off+4], uint32(h))
		}
	})
	return ok
}
