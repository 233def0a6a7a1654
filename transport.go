package gm

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"sync"
)

// Transport is the user-supplied pump/sender pair the debug session
// drives (spec.md §4.I: "The session owns a user-supplied pump
// (poll-incoming) and sender (push-outgoing)"). Framing (tag + fields)
// is the debug session's concern, not the transport's — Transport moves
// opaque already-framed messages.
type Transport interface {
	// PollIncoming returns the next fully-framed message if one is
	// available, or (nil, false) if none is ready yet. Never blocks.
	PollIncoming() ([]byte, bool)
	// PushOutgoing sends a fully-framed message to the client.
	PushOutgoing(msg []byte) error
}

// NetTransport adapts a net.Conn (typically a TCP connection accepted by
// the embedder) into a Transport, framing each message with a 4-byte
// little-endian length prefix so PollIncoming's "never blocks" contract
// holds over a stream socket. This is the default transport a host not
// supplying its own pump/sender can use.
type NetTransport struct {
	conn net.Conn
	r    *bufio.Reader

	mu      sync.Mutex
	pending [][]byte
}

func NewNetTransport(conn net.Conn) *NetTransport {
	t := &NetTransport{conn: conn, r: bufio.NewReader(conn)}
	go t.readLoop()
	return t
}

func (t *NetTransport) readLoop() {
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(t.r, lenBuf[:]); err != nil {
			return
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])
		if n > maxStringLen {
			return
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(t.r, buf); err != nil {
			return
		}
		t.mu.Lock()
		t.pending = append(t.pending, buf)
		t.mu.Unlock()
	}
}

func (t *NetTransport) PollIncoming() ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return nil, false
	}
	msg := t.pending[0]
	t.pending = t.pending[1:]
	return msg, true
}

func (t *NetTransport) PushOutgoing(msg []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(msg)))
	if _, err := t.conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := t.conn.Write(msg)
	return err
}

// ChanTransport is an in-process Transport backed by channels, useful
// for tests and same-process embedders that don't need a real socket.
type ChanTransport struct {
	In  chan []byte
	Out chan []byte
}

func NewChanTransport() *ChanTransport {
	return &ChanTransport{In: make(chan []byte, 64), Out: make(chan []byte, 64)}
}

func (t *ChanTransport) PollIncoming() ([]byte, bool) {
	select {
	case msg := <-t.In:
		return msg, true
	default:
		return nil, false
	}
}

func (t *ChanTransport) PushOutgoing(msg []byte) error {
	t.Out <- msg
	return nil
}
