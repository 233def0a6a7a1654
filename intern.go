package gm

import "golang.org/x/crypto/blake2b"

// interner maps byte-identical strings to a single handle, the
// "permanent" string path of alloc_string/intern_string (spec.md §4.D):
// "String allocation consults the intern table first for 'permanent'
// (symbol) strings." Hashing uses blake2b rather than a hand-rolled sum —
// see DESIGN.md for why this dependency is wired here instead of through
// the teacher's original golang.org/x/crypto/ssh use.
type interner struct {
	byHash map[[32]byte][]internEntry
}

type internEntry struct {
	bytes  string
	handle int32
}

func newInterner() *interner {
	return &interner{byHash: make(map[[32]byte][]internEntry)}
}

func hashBytes(b []byte) [32]byte {
	return blake2b.Sum256(b)
}

func (in *interner) lookup(b []byte) (int32, bool) {
	h := hashBytes(b)
	for _, e := range in.byHash[h] {
		if e.bytes == string(b) {
			return e.handle, true
		}
	}
	return 0, false
}

func (in *interner) insert(b []byte, handle int32) {
	h := hashBytes(b)
	in.byHash[h] = append(in.byHash[h], internEntry{bytes: string(b), handle: handle})
}

func (in *interner) remove(b []byte) {
	h := hashBytes(b)
	entries := in.byHash[h]
	for i, e := range entries {
		if e.bytes == string(b) {
			in.byHash[h] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}
