package gm

import "testing"

func TestStreamWriterReaderRoundTrip(t *testing.T) {
	for _, endian := range []Endian{LittleEndian, BigEndian} {
		w := NewStreamWriter(endian)
		if err := w.WriteTag("gml0"); err != nil {
			t.Fatalf("WriteTag: %v", err)
		}
		w.WriteInt32(-42)
		w.WriteUint32(0xCAFEF00D)
		w.WriteFloat32(3.5)
		w.WriteCString("hello")
		w.WriteBytes([]byte{9, 9, 9})

		r := NewStreamReader(w.Bytes(), endian)
		tag, err := r.ReadTag()
		if err != nil || tag != "gml0" {
			t.Fatalf("ReadTag = %q, %v", tag, err)
		}
		i, err := r.ReadInt32()
		if err != nil || i != -42 {
			t.Fatalf("ReadInt32 = %d, %v", i, err)
		}
		u, err := r.ReadUint32()
		if err != nil || u != 0xCAFEF00D {
			t.Fatalf("ReadUint32 = %x, %v", u, err)
		}
		f, err := r.ReadFloat32()
		if err != nil || f != 3.5 {
			t.Fatalf("ReadFloat32 = %v, %v", f, err)
		}
		s, err := r.ReadCString()
		if err != nil || s != "hello" {
			t.Fatalf("ReadCString = %q, %v", s, err)
		}
		tail, err := r.ReadBytes(3)
		if err != nil || tail[0] != 9 {
			t.Fatalf("ReadBytes tail = %v, %v", tail, err)
		}
		if r.Remaining() != 0 {
			t.Fatalf("Remaining = %d, want 0", r.Remaining())
		}
	}
}

func TestStreamWriterRejectsBadTagLength(t *testing.T) {
	w := NewStreamWriter(LittleEndian)
	if err := w.WriteTag("toolong"); err == nil {
		t.Fatalf("expected an error for a non-4-byte tag")
	}
}

func TestStreamReaderUnterminatedCString(t *testing.T) {
	r := NewStreamReader([]byte("no nul here"), LittleEndian)
	if _, err := r.ReadCString(); err == nil {
		t.Fatalf("expected an error reading a string with no terminator")
	}
}

func TestStreamReaderTruncatedRead(t *testing.T) {
	r := NewStreamReader([]byte{1, 2}, LittleEndian)
	if _, err := r.ReadInt32(); err == nil {
		t.Fatalf("expected an error reading 4 bytes from a 2-byte buffer")
	}
}

func TestStreamReaderRejectsOversizedBlock(t *testing.T) {
	r := NewStreamReader(make([]byte, 16), LittleEndian)
	if _, err := r.ReadBytes(maxStringLen + 1); err == nil {
		t.Fatalf("expected an error reading a block over the size cap")
	}
}
