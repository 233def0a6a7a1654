package gm

// Signal wakes every thread blocked on key, moving them onto the run
// queue in the order they originally blocked (spec.md §5 "signal-based
// block/wake"). A signal with no waiters is a no-op, not an error —
// signalling is fire-and-forget, matching the original's semantics.
func (m *Machine) Signal(key int32) {
	ids, ok := m.blocked[key]
	if !ok {
		return
	}
	delete(m.blocked, key)
	for _, id := range ids {
		t, ok := m.threads[id]
		if !ok {
			continue
		}
		t.Wake()
		m.runQueue = append(m.runQueue, id)
	}
}
