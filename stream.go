package gm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Endian selects the wire byte order used by a StreamWriter/StreamReader.
// The gml0 format defaults to little-endian on disk; a writer may request
// big-endian, and a reader auto-detects which one was used from the magic
// bytes (see library.go) rather than trusting the host's native order —
// "Endian as a runtime parameter" (spec.md §9).
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// StreamWriter is a growable, endian-aware byte sink used by both the
// gml0 encoder and the debug protocol's message framing. It follows the
// same "always validate, always wrap errors" shape as lesson07's
// EncodeFrame/DecodeFrame.
type StreamWriter struct {
	buf    []byte
	endian Endian
}

// NewStreamWriter creates a writer for the given endianness.
func NewStreamWriter(endian Endian) *StreamWriter {
	return &StreamWriter{endian: endian}
}

func (w *StreamWriter) Bytes() []byte { return w.buf }
func (w *StreamWriter) Len() int      { return len(w.buf) }
func (w *StreamWriter) Endian() Endian { return w.endian }

func (w *StreamWriter) WriteInt32(v int32) {
	var tmp [4]byte
	w.endian.order().PutUint32(tmp[:], uint32(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *StreamWriter) WriteUint32(v uint32) {
	var tmp [4]byte
	w.endian.order().PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *StreamWriter) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *StreamWriter) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteCString writes s followed by a single NUL terminator, the framing
// used throughout the debug protocol and the gml0 string table.
func (w *StreamWriter) WriteCString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// WriteTag writes a fixed four-ASCII-character message tag (spec.md §4.I).
func (w *StreamWriter) WriteTag(tag string) error {
	if len(tag) != 4 {
		return fmt.Errorf("gm: tag %q must be exactly 4 bytes", tag)
	}
	w.buf = append(w.buf, tag...)
	return nil
}

// StreamReader parses a byte slice written by StreamWriter (or loaded from
// disk), swapping multi-byte fields when endian does not match the host's
// expectation. Guards against malicious/corrupt length fields the same way
// lesson07's DecodeFrame does before allocating.
type StreamReader struct {
	data   []byte
	pos    int
	endian Endian
}

func NewStreamReader(data []byte, endian Endian) *StreamReader {
	return &StreamReader{data: data, endian: endian}
}

func (r *StreamReader) Len() int  { return len(r.data) }
func (r *StreamReader) Pos() int  { return r.pos }
func (r *StreamReader) Remaining() int { return len(r.data) - r.pos }

// maxStringLen (64 MiB) guards against corrupt/malicious size fields, in
// the manner of lesson07_binary_protocol.go's payload cap.
const maxStringLen = 64 << 20

func (r *StreamReader) require(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", io.ErrUnexpectedEOF, n, r.pos, len(r.data))
	}
	return nil
}

func (r *StreamReader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *StreamReader) ReadUint32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := r.endian.order().Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *StreamReader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *StreamReader) ReadBytes(n int) ([]byte, error) {
	if n > maxStringLen {
		return nil, fmt.Errorf("gm: block too large: %d bytes", n)
	}
	if err := r.require(n); err != nil {
		return nil, fmt.Errorf("read %d bytes: %w", n, err)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadCString reads bytes up to (and consuming) the next NUL terminator.
func (r *StreamReader) ReadCString() (string, error) {
	start := r.pos
	for r.pos < len(r.data) {
		if r.data[r.pos] == 0 {
			s := string(r.data[start:r.pos])
			r.pos++
			return s, nil
		}
		r.pos++
	}
	return "", fmt.Errorf("%w: unterminated string at offset %d", io.ErrUnexpectedEOF, start)
}

func (r *StreamReader) ReadTag() (string, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return "", fmt.Errorf("read tag: %w", err)
	}
	return string(b), nil
}
