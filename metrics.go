package gm

// Metrics is a point-in-time snapshot of runtime health, grounded on the
// stat dump gmDebug.cpp produces for its console command and exposed
// here as a plain struct rather than text for embedders that want to
// feed it into their own observability stack.
type Metrics struct {
	Allocated    int
	GCCycles     int
	GCState      string
	ThreadCount  int
	RunQueueLen  int
	SleepLen     int
	BlockedLen   int
	HeapObjects  int
	StringMemUsed int
}

// Metrics reports a snapshot of the current GC/scheduler state.
func (m *Machine) Metrics() Metrics {
	return Metrics{
		Allocated:   m.heap.gc.Allocated(),
		GCCycles:    m.heap.gc.Cycles(),
		GCState:     m.heap.gc.State(),
		ThreadCount: len(m.threads),
		RunQueueLen: m.RunQueueLen(),
		SleepLen:    m.SleepLen(),
		BlockedLen:  m.BlockedLen(),
		HeapObjects: len(m.heap.objects),
		StringMemUsed: m.heap.mem.MemUsed(),
	}
}
