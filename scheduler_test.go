package gm

import "testing"

func buildSleeperFunction() FunctionInfo {
	u := NewCompileUnit()
	fb := u.NewFunction("sleeper", 0, 0, true)
	fb.PushInt(10)
	fb.Sleep()
	fb.PushNull()
	fb.Return()
	return fb.Build()
}

func buildBlockerFunction(key int32) FunctionInfo {
	u := NewCompileUnit()
	fb := u.NewFunction("blocker", 0, 0, true)
	fb.PushInt(key)
	fb.Block()
	fb.PushNull()
	fb.Return()
	return fb.Build()
}

func TestTickSleepsAndWakesOnDeadline(t *testing.T) {
	m := NewMachine(DefaultConfig())
	fn := m.Heap().AllocFunctionScript(buildSleeperFunction())
	th := m.CreateThread(fn, nil)

	m.Tick(0)
	if th.State() != threadSleeping {
		t.Fatalf("state after first tick = %v, want sleeping", th.State())
	}
	if m.SleepLen() != 1 {
		t.Fatalf("SleepLen = %d, want 1", m.SleepLen())
	}

	m.Tick(5)
	if th.State() != threadSleeping {
		t.Fatalf("thread woke up before its deadline elapsed")
	}

	m.Tick(10)
	if _, ok := m.GetThread(th.ID()); ok {
		t.Fatalf("thread should have run to completion and been reaped after waking")
	}
}

func TestSignalWakesBlockedThreadInBlockOrder(t *testing.T) {
	const key = int32(42)
	m := NewMachine(DefaultConfig())

	var ids []int
	for i := 0; i < 3; i++ {
		fn := m.Heap().AllocFunctionScript(buildBlockerFunction(key))
		th := m.CreateThread(fn, nil)
		ids = append(ids, th.ID())
	}

	m.Tick(0)
	if m.BlockedLen() != 3 {
		t.Fatalf("BlockedLen = %d, want 3", m.BlockedLen())
	}

	m.Signal(key)
	if m.BlockedLen() != 0 {
		t.Fatalf("BlockedLen after Signal = %d, want 0", m.BlockedLen())
	}
	if m.RunQueueLen() != 3 {
		t.Fatalf("RunQueueLen after Signal = %d, want 3", m.RunQueueLen())
	}
	for i, id := range ids {
		if m.runQueue[i] != id {
			t.Fatalf("runQueue[%d] = %d, want %d (block order)", i, m.runQueue[i], id)
		}
	}

	m.Tick(0)
	for _, id := range ids {
		if _, ok := m.GetThread(id); ok {
			t.Fatalf("thread %d should have run to completion after being signalled", id)
		}
	}
}

func TestSignalWithNoWaitersIsNoOp(t *testing.T) {
	m := NewMachine(DefaultConfig())
	m.Signal(999) // must not panic on an unknown key
}

func TestKillThreadBoundsKilledPool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxKilledThreads = 2
	m := NewMachine(cfg)
	for i := 0; i < 5; i++ {
		fn := m.Heap().AllocFunctionScript(buildSleeperFunction())
		th := m.CreateThread(fn, nil)
		m.KillThread(th.ID())
	}
	if len(m.killed) != 2 {
		t.Fatalf("killed pool holds %d entries, want capped at 2", len(m.killed))
	}
}
