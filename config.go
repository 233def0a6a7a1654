package gm

// Config holds the tunable limits translated from the original library's
// gmConfig.h #define table. Every field has the same default the C++
// runtime shipped with; embedders override what they need before calling
// NewMachine.
type Config struct {
	// ThreadInitialStackBytes is the initial value-stack allocation for a
	// newly created thread (GMTHREAD_INITIALBYTESIZE).
	ThreadInitialStackBytes int
	// ThreadMaxStackBytes caps value-stack growth (GMTHREAD_MAXBYTESIZE);
	// exceeding it raises STACK_OVERFLOW.
	ThreadMaxStackBytes int
	// MaxKilledThreads bounds the pool of killed threads kept for
	// postmortem inspection (GMMACHINE_MAXKILLEDTHREADS); pooled threads
	// are not reused for new threads.
	MaxKilledThreads int
	// GCInitialHardLimit and GCInitialSoftLimit are the starting allocation
	// budgets in bytes (GMMACHINE_INITIALGCHARDLIMIT / ...SOFTLIMIT).
	GCInitialHardLimit int
	GCInitialSoftLimit int
	// GCAutoMemMultiply rescales soft_limit after each completed cycle
	// (GMMACHINE_AUTOMEMMULTIPY).
	GCAutoMemMultiply float64
	// GCThreePass enables the extra persistent-object trace pass that
	// catches persistent-to-persistent cycles (GMMACHINE_THREEPASSGC).
	GCThreePass bool
	// GCMarkWorkPerSlice bounds how many objects a single GC slice blackens
	// before yielding back to the scheduler.
	GCMarkWorkPerSlice int
	// OpcodeBudgetPerStep is how many instructions a running thread may
	// execute within one Machine.Tick (execute(now_ms)) call before it is
	// forced to yield.
	OpcodeBudgetPerStep int
}

// DefaultConfig returns the configuration matching the original runtime's
// compiled-in defaults.
func DefaultConfig() Config {
	return Config{
		ThreadInitialStackBytes: 512,
		ThreadMaxStackBytes:     128 * 1024,
		MaxKilledThreads:        16,
		GCInitialHardLimit:      128 * 1024,
		GCInitialSoftLimit:      128 * 1024 * 9 / 10,
		GCAutoMemMultiply:       2.5,
		GCThreePass:             false,
		GCMarkWorkPerSlice:      256,
		OpcodeBudgetPerStep:     10000,
	}
}
