package gm

import (
	"encoding/binary"
	"net"
	"testing"
	"time"
)

func TestNetTransportFramesOverAPipe(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	nt := NewNetTransport(server)

	payload := []byte("dbrk-payload")
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	done := make(chan error, 1)
	go func() {
		if _, err := client.Write(lenBuf[:]); err != nil {
			done <- err
			return
		}
		_, err := client.Write(payload)
		done <- err
	}()
	if err := <-done; err != nil {
		t.Fatalf("client write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if msg, ok := nt.PollIncoming(); ok {
			if string(msg) != string(payload) {
				t.Fatalf("PollIncoming = %q, want %q", msg, payload)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for readLoop to deliver the framed message")
		}
		time.Sleep(time.Millisecond)
	}

	readDone := make(chan []byte, 1)
	go func() {
		var lb [4]byte
		if _, err := readFull(client, lb[:]); err != nil {
			readDone <- nil
			return
		}
		n := binary.LittleEndian.Uint32(lb[:])
		buf := make([]byte, n)
		if _, err := readFull(client, buf); err != nil {
			readDone <- nil
			return
		}
		readDone <- buf
	}()

	out := []byte("dack-reply")
	if err := nt.PushOutgoing(out); err != nil {
		t.Fatalf("PushOutgoing: %v", err)
	}
	got := <-readDone
	if string(got) != string(out) {
		t.Fatalf("client received %q, want %q", got, out)
	}
}

func readFull(c net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
