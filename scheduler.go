package gm

// Tick is the embedding API's execute(now_ms) (spec.md §2, §4.G, §6): the
// caller passes its own monotonic clock reading, not an elapsed delta.
// It sets the Machine's clock to nowMS and runs one scheduling pass: wake
// any sleeping thread whose deadline has passed, then give every
// currently-ready thread one execution slice bounded by
// Config.OpcodeBudgetPerStep, in FIFO order (spec.md §5 "Concurrency &
// Resource Model"). A thread that neither finishes, sleeps, blocks, nor
// faults within its slice is requeued at the back for the next Tick —
// this is the cooperative round-robin the spec calls for, not
// preemption.
func (m *Machine) Tick(nowMS int64) {
	m.clockMS = nowMS
	m.wakeSleepers()

	ready := m.runQueue
	m.runQueue = nil

	for _, id := range ready {
		t, ok := m.threads[id]
		if !ok {
			continue
		}
		if t.state != threadRunning {
			// A thread that went back to sleep or blocked since it was
			// queued is skipped; any other non-running state still runs.
			if t.state == threadSleeping || t.state == threadBlocked {
				continue
			}
		}
		m.runStep(t)

		switch t.state {
		case threadRunning:
			m.runQueue = append(m.runQueue, id)
		case threadSleeping:
			m.sleep = append(m.sleep, id)
		case threadBlocked:
			m.blocked[t.signal] = append(m.blocked[t.signal], id)
		case threadException:
			m.appendLog((&RuntimeException{ThreadID: t.id, Kind: t.lastErr.Kind, Message: t.lastErr.Message}).Error())
			if m.debug != nil {
				m.debug.notifyException(t)
			}
			m.KillThread(id)
		case threadKilled:
			if m.debug != nil {
				m.debug.notifyStop(t)
			}
			m.KillThread(id)
		}
	}
}

// wakeSleepers moves every sleeping thread whose deadline has elapsed
// back onto the run queue, preserving the relative order they fell
// asleep in among themselves, then appended after whatever is already
// ready (FIFO across the whole queue).
func (m *Machine) wakeSleepers() {
	var still []int
	for _, id := range m.sleep {
		t, ok := m.threads[id]
		if !ok {
			continue
		}
		if t.wakeAt <= m.clockMS {
			t.Wake()
			m.runQueue = append(m.runQueue, id)
		} else {
			still = append(still, id)
		}
	}
	m.sleep = still
}

// RunQueueLen/SleepLen/BlockedLen expose queue depths for Metrics().
func (m *Machine) RunQueueLen() int   { return len(m.runQueue) }
func (m *Machine) SleepLen() int      { return len(m.sleep) }
func (m *Machine) BlockedLen() int {
	n := 0
	for _, ids := range m.blocked {
		n += len(ids)
	}
	return n
}
