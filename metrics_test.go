package gm

import (
	"strings"
	"testing"
)

func TestMetricsStringMemUsedTracksAllocatorState(t *testing.T) {
	m := NewMachine(DefaultConfig())
	h := m.Heap()

	if got := m.Metrics().StringMemUsed; got != 0 {
		t.Fatalf("StringMemUsed on a fresh heap = %d, want 0", got)
	}

	small := h.AllocString([]byte("hello"))
	if got := m.Metrics().StringMemUsed; got != 16 {
		t.Fatalf("StringMemUsed after a 5-byte string = %d, want 16 (bucket 0)", got)
	}

	big := h.AllocString([]byte(strings.Repeat("x", 600)))
	if got := m.Metrics().StringMemUsed; got != 16+600 {
		t.Fatalf("StringMemUsed after a 600-byte string = %d, want %d", got, 16+600)
	}

	h.free_(small)
	if got := m.Metrics().StringMemUsed; got != 600 {
		t.Fatalf("StringMemUsed after freeing the small string = %d, want 600", got)
	}

	h.free_(big)
	if got := m.Metrics().StringMemUsed; got != 0 {
		t.Fatalf("StringMemUsed after freeing both strings = %d, want 0", got)
	}
}

func TestMetricsReflectsThreadAndQueueCounts(t *testing.T) {
	m := NewMachine(DefaultConfig())
	fn := m.Heap().AllocFunctionScript(buildSleeperFunction())
	m.CreateThread(fn, nil)
	m.CreateThread(fn, nil)

	metrics := m.Metrics()
	if metrics.ThreadCount != 2 {
		t.Fatalf("ThreadCount = %d, want 2", metrics.ThreadCount)
	}
	if metrics.RunQueueLen != 2 {
		t.Fatalf("RunQueueLen = %d, want 2", metrics.RunQueueLen)
	}

	m.Tick(0)
	metrics = m.Metrics()
	if metrics.SleepLen != 2 {
		t.Fatalf("SleepLen after both threads sleep = %d, want 2", metrics.SleepLen)
	}
}
