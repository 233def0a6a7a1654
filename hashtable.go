package gm

// orderedMap is a generic hash table that preserves insertion order on
// iteration and never moves a key on re-insertion — the container backing
// gmTable's dot/array semantics (spec.md §4.D: "Table iteration order is
// insertion order; re-insertion does not move a key"). It is also reused
// for the machine's global table and the function-name registry, the
// "containers used by every layer" role of component B.
type orderedMap[K comparable, V any] struct {
	index map[K]int
	keys  []K
	vals  []V
	// tomb marks deleted slots so indices stay stable until Compact.
	tomb []bool
	live int
}

func newOrderedMap[K comparable, V any]() *orderedMap[K, V] {
	return &orderedMap[K, V]{index: make(map[K]int)}
}

func (m *orderedMap[K, V]) Get(k K) (V, bool) {
	var zero V
	i, ok := m.index[k]
	if !ok || m.tomb[i] {
		return zero, false
	}
	return m.vals[i], true
}

// Set inserts or updates k→v. Re-insertion of an existing key keeps its
// original slot (and therefore its iteration position).
func (m *orderedMap[K, V]) Set(k K, v V) {
	if i, ok := m.index[k]; ok && !m.tomb[i] {
		m.vals[i] = v
		return
	}
	if i, ok := m.index[k]; ok && m.tomb[i] {
		m.tomb[i] = false
		m.vals[i] = v
		m.live++
		return
	}
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
	m.tomb = append(m.tomb, false)
	m.index[k] = len(m.keys) - 1
	m.live++
}

func (m *orderedMap[K, V]) Delete(k K) bool {
	i, ok := m.index[k]
	if !ok || m.tomb[i] {
		return false
	}
	m.tomb[i] = true
	var zero V
	m.vals[i] = zero
	m.live--
	return true
}

func (m *orderedMap[K, V]) Len() int { return m.live }

// Each walks entries in insertion order, skipping deleted slots.
func (m *orderedMap[K, V]) Each(fn func(k K, v V) bool) {
	for i, k := range m.keys {
		if m.tomb[i] {
			continue
		}
		if !fn(k, m.vals[i]) {
			return
		}
	}
}

// NthLive returns the n-th non-deleted entry in insertion order, letting
// a caller resume iteration across suspension points (the bytecode
// foreach opcode) by storing just an integer cursor rather than a live
// iterator.
func (m *orderedMap[K, V]) NthLive(n int) (k K, v V, ok bool) {
	seen := 0
	for i, key := range m.keys {
		if m.tomb[i] {
			continue
		}
		if seen == n {
			return key, m.vals[i], true
		}
		seen++
	}
	var zk K
	var zv V
	return zk, zv, false
}
