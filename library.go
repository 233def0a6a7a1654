package gm

import "fmt"

// Library is the decoded (or not-yet-encoded) contents of a gml0
// container (spec.md §4.H): a string table, an optional embedded source
// blob, and a set of functions whose bytecode still carries string-table
// offsets and function ids rather than heap handles — LoadLibrary
// performs that fixup.
type Library struct {
	Debug     bool
	Strings   []string
	Source    string
	Functions []FunctionInfo
}

const (
	gml0Magic    = "gml0"
	gml0MagicBE  = "0lmg" // byte-swapped magic, the endian sentinel (spec.md §4.H)
	flagDebug    = 1 << 0
	flagRootFunc = 1 << 0
)

// stringOffsetIn computes the byte offset target would have within the
// concatenated, NUL-terminated strings blob built from strings in order
// — the same computation both the compiler frontend (building operand
// offsets while emitting bytecode) and EncodeLibrary (laying out the
// strings section) must perform identically.
func stringOffsetIn(strings []string, target string) int32 {
	off := int32(0)
	for _, s := range strings {
		if s == target {
			return off
		}
		off += int32(len(s)) + 1
	}
	return -1
}

// EncodeLibrary serializes lib in the requested endianness (spec.md
// §4.H). Bytecode operands are expected to already hold string-table
// offsets / function ids (computed via stringOffsetIn and each
// FunctionInfo.ID respectively) — EncodeLibrary writes them verbatim, it
// does not compute them.
func EncodeLibrary(lib Library, endian Endian) []byte {
	w := NewStreamWriter(endian)
	magic := gml0Magic
	if endian == BigEndian {
		magic = gml0MagicBE
	}
	w.WriteTag(magic)
	var flags int32
	if lib.Debug {
		flags |= flagDebug
	}
	w.WriteInt32(flags)

	offStringsField := w.Len()
	w.WriteInt32(0)
	offSourceField := w.Len()
	w.WriteInt32(0)
	offFunctionsField := w.Len()
	w.WriteInt32(0)

	offsetStrings := int32(w.Len())
	blob := make([]byte, 0, 64)
	for _, s := range lib.Strings {
		blob = append(blob, s...)
		blob = append(blob, 0)
	}
	w.WriteInt32(int32(len(blob)))
	w.WriteBytes(blob)

	offsetSource := int32(0)
	if lib.Debug {
		offsetSource = int32(w.Len())
		w.WriteInt32(int32(len(lib.Source)))
		w.WriteInt32(0)
		w.WriteBytes([]byte(lib.Source))
	}

	offsetFunctions := int32(w.Len())
	w.WriteInt32(int32(len(lib.Functions)))
	for _, fn := range lib.Functions {
		w.WriteTag("func")
		w.WriteInt32(fn.ID)
		var fflags int32
		if fn.Root {
			fflags |= flagRootFunc
		}
		w.WriteInt32(fflags)
		w.WriteInt32(fn.NumParams)
		w.WriteInt32(fn.NumLocals)
		w.WriteInt32(fn.MaxStack)
		w.WriteInt32(int32(len(fn.Bytecode)))
		encodeWireBytecode(w, fn.Bytecode)
		if lib.Debug {
			w.WriteInt32(stringOffsetIn(lib.Strings, fn.DebugName))
			w.WriteInt32(int32(len(fn.Lines)))
			for _, le := range fn.Lines {
				w.WriteInt32(le.Addr)
				w.WriteInt32(le.Line)
			}
			for _, sym := range fn.SymbolNames {
				w.WriteInt32(stringOffsetIn(lib.Strings, sym))
			}
		}
	}

	buf := w.Bytes()
	patch := func(fieldPos int, v int32) {
		endian.order().PutUint32(buf[fieldPos:fieldPos+4], uint32(v))
	}
	patch(offStringsField, offsetStrings)
	patch(offSourceField, offsetSource)
	patch(offFunctionsField, offsetFunctions)
	return buf
}

// DecodeLibrary parses a gml0 container, auto-detecting endianness from
// the magic (spec.md §4.H: "if reader sees '0lmg' instead of 'gml0',
// byte-swap all multi-byte reads"). Bytecode operands are converted to
// canonical little-endian but still hold string offsets/function ids;
// fixup.go resolves them to handles during LoadLibrary.
func DecodeLibrary(data []byte) (*Library, Endian, error) {
	if len(data) < 4 {
		return nil, LittleEndian, fmt.Errorf("%w: too short for a magic", ErrLibLoad)
	}
	magic := string(data[0:4])
	var endian Endian
	switch magic {
	case gml0Magic:
		endian = LittleEndian
	case gml0MagicBE:
		endian = BigEndian
	default:
		return nil, LittleEndian, fmt.Errorf("%w: bad magic %q", ErrLibLoad, magic)
	}

	r := NewStreamReader(data, endian)
	if _, err := r.ReadTag(); err != nil {
		return nil, endian, fmt.Errorf("%w: %v", ErrLibLoad, err)
	}
	flags, err := r.ReadInt32()
	if err != nil {
		return nil, endian, fmt.Errorf("%w: %v", ErrLibLoad, err)
	}
	offsetStrings, err1 := r.ReadInt32()
	offsetSource, err2 := r.ReadInt32()
	offsetFunctions, err3 := r.ReadInt32()
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, endian, fmt.Errorf("%w: truncated header", ErrLibLoad)
	}

	lib := &Library{Debug: flags&flagDebug != 0}

	sr := NewStreamReader(data, endian)
	sr.pos = int(offsetStrings)
	blobLen, err := sr.ReadInt32()
	if err != nil {
		return nil, endian, fmt.Errorf("%w: bad strings size: %v", ErrLibLoad, err)
	}
	blob, err := sr.ReadBytes(int(blobLen))
	if err != nil {
		return nil, endian, fmt.Errorf("%w: truncated strings section: %v", ErrLibLoad, err)
	}
	lib.Strings = splitCStrings(blob)

	if lib.Debug {
		sr.pos = int(offsetSource)
		srcLen, err := sr.ReadInt32()
		if err != nil {
			return nil, endian, fmt.Errorf("%w: bad source size: %v", ErrLibLoad, err)
		}
		if _, err := sr.ReadInt32(); err != nil { // reserved
			return nil, endian, fmt.Errorf("%w: truncated source header: %v", ErrLibLoad, err)
		}
		srcBytes, err := sr.ReadBytes(int(srcLen))
		if err != nil {
			return nil, endian, fmt.Errorf("%w: truncated source: %v", ErrLibLoad, err)
		}
		lib.Source = string(srcBytes)
	}

	sr.pos = int(offsetFunctions)
	count, err := sr.ReadInt32()
	if err != nil {
		return nil, endian, fmt.Errorf("%w: bad function count: %v", ErrLibLoad, err)
	}
	for i := int32(0); i < count; i++ {
		tag, err := sr.ReadTag()
		if err != nil || tag != "func" {
			return nil, endian, fmt.Errorf("%w: missing func tag at function %d", ErrLibLoad, i)
		}
		id, e1 := sr.ReadInt32()
		fflags, e2 := sr.ReadInt32()
		numParams, e3 := sr.ReadInt32()
		numLocals, e4 := sr.ReadInt32()
		maxStack, e5 := sr.ReadInt32()
		codeLen, e6 := sr.ReadInt32()
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil || e6 != nil {
			return nil, endian, fmt.Errorf("%w: truncated function header at %d", ErrLibLoad, i)
		}
		code, err := sr.ReadBytes(int(codeLen))
		if err != nil {
			return nil, endian, fmt.Errorf("%w: truncated bytecode at function %d: %v", ErrLibLoad, i, err)
		}
		fi := FunctionInfo{
			ID:        id,
			Root:      fflags&flagRootFunc != 0,
			NumParams: numParams,
			NumLocals: numLocals,
			MaxStack:  maxStack,
			Bytecode:  normalizeWireBytecode(code, endian),
		}
		if lib.Debug {
			nameOff, e1 := sr.ReadInt32()
			lineCount, e2 := sr.ReadInt32()
			if e1 != nil || e2 != nil {
				return nil, endian, fmt.Errorf("%w: truncated debug header at function %d", ErrLibLoad, i)
			}
			name, ok := stringAtOffset(lib.Strings, nameOff)
			if !ok {
				return nil, endian, fmt.Errorf("%w: out-of-range debug-name offset at function %d", ErrLibLoad, i)
			}
			fi.DebugName = name
			for j := int32(0); j < lineCount; j++ {
				addr, ea := sr.ReadInt32()
				line, el := sr.ReadInt32()
				if ea != nil || el != nil {
					return nil, endian, fmt.Errorf("%w: truncated line table at function %d", ErrLibLoad, i)
				}
				fi.Lines = append(fi.Lines, LineEntry{Addr: addr, Line: line})
			}
			for j := int32(0); j < numParams+numLocals; j++ {
				off, es := sr.ReadInt32()
				if es != nil {
					return nil, endian, fmt.Errorf("%w: truncated symbol table at function %d", ErrLibLoad, i)
				}
				sym, ok := stringAtOffset(lib.Strings, off)
				if !ok {
					return nil, endian, fmt.Errorf("%w: out-of-range symbol-name offset at function %d", ErrLibLoad, i)
				}
				fi.SymbolNames = append(fi.SymbolNames, sym)
			}
		}
		lib.Functions = append(lib.Functions, fi)
	}

	return lib, endian, nil
}

func splitCStrings(blob []byte) []string {
	var out []string
	start := 0
	for i, b := range blob {
		if b == 0 {
			out = append(out, string(blob[start:i]))
			start = i + 1
		}
	}
	return out
}

func stringAtOffset(strings []string, offset int32) (string, bool) {
	off := int32(0)
	for _, s := range strings {
		if off == offset {
			return s, true
		}
		off += int32(len(s)) + 1
	}
	return "", false
}

// LibEntry is one (name, native function) pair handed to RegisterLibrary
// (spec.md §6 "register_library(entries)").
type LibEntry struct {
	Name string
	Fn   NativeFunc
}

// RegisterLibrary installs every entry as a global, interned-name
// binding to a native function object.
func (m *Machine) RegisterLibrary(entries []LibEntry) {
	for _, e := range entries {
		fnHandle := m.heap.AllocFunctionNative(e.Fn, e.Name)
		nameHandle := m.heap.InternString([]byte(e.Name))
		_ = m.heap.SetDot(m.globals, nameHandle, refVal(TypeFunction, fnHandle))
	}
}

// LoadLibrary fixes up and installs every function of lib into the
// machine's heap, disabling the GC for the duration (spec.md §5 "Scoped
// acquisitions: loading a library disables GC ... and restores the
// prior flag on all exit paths including error"). It returns the handle
// of the flagged root/entry function, or ErrLibLoad if lib names none
// (or more than one, which the format does not forbid but a sane
// embedder never produces).
func (m *Machine) LoadLibrary(data []byte) (int32, error) {
	lib, _, err := DecodeLibrary(data)
	if err != nil {
		return 0, err
	}

	m.heap.gc.Disable()
	defer m.heap.gc.Enable()

	offsetToHandle := make(map[int32]int32, len(lib.Strings))
	var newStrings []int32 // strings this load interned for the first time
	off := int32(0)
	for _, s := range lib.Strings {
		_, existed := m.heap.interner.lookup([]byte(s))
		h := m.heap.InternString([]byte(s))
		if !existed {
			newStrings = append(newStrings, h)
		}
		offsetToHandle[off] = h
		off += int32(len(s)) + 1
	}

	sourceIdx := int32(len(m.debugSources))
	idToHandle := make(map[int32]int32, len(lib.Functions))
	handles := make([]int32, len(lib.Functions))
	for i, fi := range lib.Functions {
		if lib.Debug {
			fi.SourceID = sourceIdx
		}
		h := m.heap.AllocFunctionScript(fi)
		handles[i] = h
		idToHandle[fi.ID] = h
	}

	// abort tears down every function object and every newly interned
	// string allocated above and reports
	// err without touching funcsBySource/debugSources — spec.md §7's
	// LIB_LOAD_ERROR requires the load to abort with "nothing added to
	// the machine", and these functions were only tentatively allocated
	// pending a clean fixup pass over the whole library.
	abort := func(err error) (int32, error) {
		for _, h := range handles {
			if fo := m.heap.function(h); fo != nil {
				m.heap.gc.allocated -= fo.byteSize()
			}
			m.heap.free_(h)
		}
		for _, h := range newStrings {
			if so, ok := m.heap.object(h).(*stringObj); ok {
				m.heap.gc.allocated -= so.byteSize()
			}
			m.heap.free_(h)
		}
		return 0, err
	}

	var root int32 = -1
	var rootSet bool
	for i, fi := range lib.Functions {
		fo := m.heap.function(handles[i])
		ok := fixupFunction(fo.bytecode, func(rawOff int32) (int32, bool) {
			h, ok := offsetToHandle[rawOff]
			return h, ok
		}, func(id int32) (int32, bool) {
			h, ok := idToHandle[id]
			return h, ok
		})
		if !ok {
			return abort(fmt.Errorf("%w: out-of-range string/function offset in function %d bytecode", ErrLibLoad, i))
		}
		if fi.Root {
			if rootSet {
				return abort(fmt.Errorf("%w: library has more than one root function", ErrLibLoad))
			}
			root = handles[i]
			rootSet = true
		}
	}
	if !rootSet {
		return abort(fmt.Errorf("%w: library has no root function", ErrLibLoad))
	}

	if lib.Debug {
		for _, h := range handles {
			m.funcsBySource[sourceIdx] = append(m.funcsBySource[sourceIdx], h)
		}
		m.debugSources = append(m.debugSources, sourceRecord{id: sourceIdx, text: lib.Source})
	}
	return root, nil
}
