package gm

import "log"

// Machine is the top-level embeddable runtime: one heap, one global
// table, and any number of cooperatively scheduled threads (spec.md §1
// "System Overview"). It is not safe for concurrent use from multiple
// goroutines — callers own their own external synchronization, matching
// the original single-threaded-host contract.
type Machine struct {
	cfg     Config
	heap    *Heap
	globals int32

	threads map[int]*Thread
	nextID  int

	runQueue []int
	sleep    []int // ids currently sleeping, insertion order
	blocked  map[int32][]int

	killed     []*Thread // bounded postmortem pool
	maxKilled  int

	userTypesList []userType // index 0 == TypeUser

	logger *log.Logger
	logBuf []string

	clockMS int64

	callActive bool

	debug        *debugSession
	debugSources []sourceRecord
	funcsBySource map[int32][]int32
}

// sourceRecord is embedded source text retained from a debug-compiled
// library load, keyed by an opaque id handed out in load order (spec.md
// §6 "get_source(source_id) → (text, filename)").
type sourceRecord struct {
	id       int32
	text     string
	filename string
}

// GetSource returns the embedded source and filename for sourceID, or
// ("", "", false) if no debug-compiled library registered that id.
func (m *Machine) GetSource(sourceID int32) (text, filename string, ok bool) {
	for _, s := range m.debugSources {
		if s.id == sourceID {
			return s.text, s.filename, true
		}
	}
	return "", "", false
}

// NewMachine constructs a Machine with its own heap and global table,
// wiring the collector's root scan back to this Machine (spec.md §4.E).
func NewMachine(cfg Config) *Machine {
	m := &Machine{
		cfg:           cfg,
		threads:       make(map[int]*Thread),
		blocked:       make(map[int32][]int),
		maxKilled:     cfg.MaxKilledThreads,
		logger:        log.New(logWriter{}, "", 0),
		funcsBySource: make(map[int32][]int32),
	}
	m.heap = newHeap(cfg)
	m.heap.gc.SetRoots(m)
	m.globals = m.heap.AllocTable()
	m.heap.SetPersistent(m.globals, true)
	return m
}

// logWriter discards whatever is written through m.logger instead of
// writing to stderr. Machine log lines are kept by appendLog in logBuf,
// so GetLog (spec.md §7 "Machine log") reflects exactly what the
// embedder asks for and tests can assert on it deterministically.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) { return len(p), nil }

func (m *Machine) appendLog(line string) {
	m.logBuf = append(m.logBuf, line)
}

// GetLog returns every line appended so far (compile errors, runtime
// exceptions, library load failures — spec.md §7).
func (m *Machine) GetLog() []string { return append([]string(nil), m.logBuf...) }

func (m *Machine) Heap() *Heap    { return m.heap }
func (m *Machine) Globals() int32 { return m.globals }
func (m *Machine) Config() Config { return m.cfg }

// CollectFull is the embedding API's collect_full() (spec.md §6): drives
// the collector through however many cycles are needed to reach Idle.
func (m *Machine) CollectFull() { m.heap.gc.CollectFull() }

// EnableGC is the embedding API's enable_gc(bool) (spec.md §6): toggling
// it off re-enters Collector's disable window the same way LoadLibrary's
// scoped acquisition does, so an embedder can pair EnableGC(false) /
// EnableGC(true) around its own bulk-allocation sections.
func (m *Machine) EnableGC(enabled bool) {
	if enabled {
		m.heap.gc.Enable()
	} else {
		m.heap.gc.Disable()
	}
}

// EachRoot implements rootProvider: the global table plus every thread's
// live value stack and call frames are roots for every GC cycle.
func (m *Machine) EachRoot(mark func(handle int32)) {
	mark(m.globals)
	for _, t := range m.threads {
		t.EachRoot(mark)
	}
	if m.debug != nil {
		m.debug.eachRoot(mark)
	}
}

// userType looks up the registered callbacks for a user-type tag, or nil
// if t does not name a registered user type.
func (m *Machine) userType(t VType) *userType {
	i := int(t - TypeUser)
	if i < 0 || i >= len(m.userTypesList) {
		return nil
	}
	return &m.userTypesList[i]
}

// RegisterUserType reserves a new VType tag bound to cb, returning the
// tag embedders use when constructing instances via Heap.AllocUser
// (spec.md §6 "register_user_type").
func (m *Machine) RegisterUserType(cb UserTypeCallbacks) VType {
	tag := TypeUser + VType(len(m.userTypesList))
	m.userTypesList = append(m.userTypesList, userType{kind: tag, cb: cb})
	return tag
}

// CreateThread allocates a new fiber executing entry with args already
// pushed as its initial locals, and schedules it ready-to-run (spec.md
// §5 "new threads enter the run queue immediately").
func (m *Machine) CreateThread(entry int32, args []Variant) *Thread {
	id := m.nextID
	m.nextID++
	t := newThread(m, id, entry, args)
	m.threads[id] = t
	m.runQueue = append(m.runQueue, id)
	return t
}

func (m *Machine) GetThread(id int) (*Thread, bool) {
	t, ok := m.threads[id]
	return t, ok
}

// KillThread removes id from scheduling immediately; its slot is
// retained in the bounded killed-pool for postmortem log/debug
// inspection until that pool's capacity is exceeded (spec.md §3
// "MaxKilledThreads").
func (m *Machine) KillThread(id int) {
	t, ok := m.threads[id]
	if !ok {
		return
	}
	t.Kill()
	delete(m.threads, id)
	m.killed = append(m.killed, t)
	if len(m.killed) > m.maxKilled {
		m.killed = m.killed[len(m.killed)-m.maxKilled:]
	}
}
