package gm

// gcState is the collector's current phase (spec.md §4.E: "Idle → Mark →
// Sweep → Idle").
type gcState uint8

const (
	gcIdle gcState = iota
	gcMark
	gcSweep
)

// rootProvider lets the collector ask the owning Machine for every
// currently-live root without the collector importing Machine directly
// (heap.go/gc.go sit below machine.go in the dependency order but both
// live in the same package, so this indirection is about separation of
// concerns, not compilation).
type rootProvider interface {
	EachRoot(yield func(handle int32))
}

// Collector implements the tri-colour incremental mark-sweep GC of
// spec.md §4.E, grounded on the budget/threshold formulas in gmConfig.h
// and the cycle shape described in gmDebug.cpp's stat dump.
type Collector struct {
	heap  *Heap
	roots rootProvider

	state gcState

	// allocColour is the colour freshly allocated objects receive; it
	// alternates between colourWhite0/colourWhite1 each cycle purely for
	// fidelity with the original's two-white scheme. Correctness (never
	// sweeping objects allocated mid-cycle) is enforced by allocEpoch
	// below, independent of which white label is in use.
	allocLabel colour
	epoch      int64

	white intrusiveList
	grey  intrusiveList
	black intrusiveList

	// sweepCycleEpoch is the epoch snapshot taken when the current mark
	// phase began; a white object with allocEpoch > sweepCycleEpoch was
	// created mid-cycle and survives this sweep regardless of colour.
	sweepCycleEpoch int64
	// sweepRequeue holds too-new white objects set aside during sweep so
	// the sweep walk still terminates in O(len(list)).
	sweepRequeue []int32

	pendingFree []int32 // handles freed this cycle; merged into heap.free at Idle

	allocated  int
	softLimit  int
	hardLimit  int
	multiplier float64
	threePass  bool
	markBudget int
	disabled   int // reentrant disable counter

	cycles int // completed full cycles, for diagnostics/metrics
}

func newCollector(h *Heap, cfg Config) *Collector {
	return &Collector{
		heap:       h,
		allocLabel: colourWhite0,
		white:      newIntrusiveList(),
		grey:       newIntrusiveList(),
		black:      newIntrusiveList(),
		softLimit:  cfg.GCInitialSoftLimit,
		hardLimit:  cfg.GCInitialHardLimit,
		multiplier: cfg.GCAutoMemMultiply,
		threePass:  cfg.GCThreePass,
		markBudget: cfg.GCMarkWorkPerSlice,
	}
}

// SetRoots wires the Machine as the root provider; called once during
// Machine construction.
func (c *Collector) SetRoots(r rootProvider) { c.roots = r }

func (c *Collector) allocColour() colour { return c.allocLabel }

// Enable/Disable implement the "scoped acquisition" disable window used
// while loading a compiled library (spec.md §4.E "Disable window"):
// re-entrant, restored on every exit path including error by the caller
// doing `defer heap.gc.Enable()`.
func (c *Collector) Disable() { c.disabled++ }
func (c *Collector) Enable() {
	if c.disabled > 0 {
		c.disabled--
	}
}
func (c *Collector) Enabled() bool { return c.disabled == 0 }

// chargeAlloc accounts n bytes against the budget and triggers GC work per
// the soft/hard-limit rules of spec.md §4.E.
func (c *Collector) chargeAlloc(n int) {
	c.allocated += n
	if !c.Enabled() {
		return
	}
	if c.allocated >= c.hardLimit {
		c.CollectFull()
		return
	}
	if c.allocated >= c.softLimit {
		c.Step()
	}
}

// barrier is the write barrier of spec.md §4.E: if parent is black and
// child is (still) white, re-grey child so the tri-colour invariant
// ("no black object holds a reference to a white object") holds after the
// mutation completes.
func (c *Collector) barrier(parentHandle, childHandle int32) {
	parent := c.heap.object(parentHandle)
	child := c.heap.object(childHandle)
	if parent == nil || child == nil {
		return
	}
	ph := parent.header()
	ch := child.header()
	if ph.colour != colourBlack {
		return
	}
	if ch.colour == colourGrey || ch.colour == colourBlack {
		return
	}
	c.greyObject(childHandle, ch)
}

func (c *Collector) greyObject(handle int32, hdr *objHeader) {
	switch hdr.colour {
	case colourWhite0, colourWhite1:
		c.white.Remove(c.heap, handle)
	case colourBlack:
		c.black.Remove(c.heap, handle)
	default:
		return // already grey
	}
	hdr.colour = colourGrey
	c.grey.PushBack(c.heap, handle)
}

// StartCycle begins a new Idle→Mark transition: every current root gets
// greyed. No-op if a cycle is already in progress.
func (c *Collector) StartCycle() {
	if c.state != gcIdle {
		return
	}
	c.sweepCycleEpoch = c.epoch
	c.epoch++
	if c.roots != nil {
		c.roots.EachRoot(func(handle int32) {
			obj := c.heap.object(handle)
			if obj == nil {
				return
			}
			c.greyObject(handle, obj.header())
		})
	}
	c.heap.EachPersistent(func(handle int32) {
		obj := c.heap.object(handle)
		if obj == nil {
			return
		}
		c.greyObject(handle, obj.header())
	})
	c.state = gcMark
}

// Step performs one bounded slice of work, advancing Mark→Sweep→Idle as
// each phase's work drains, honoring the per-slice budget (spec.md §4.E:
// "Mark work is bounded per slice").
func (c *Collector) Step() {
	switch c.state {
	case gcIdle:
		c.StartCycle()
	case gcMark:
		c.markSlice(c.markBudget)
	case gcSweep:
		c.sweepSlice(c.markBudget)
	}
}

func (c *Collector) markSlice(budget int) {
	for i := 0; i < budget; i++ {
		handle, ok := c.grey.PopFront(c.heap)
		if !ok {
			c.finishMark()
			return
		}
		obj := c.heap.object(handle)
		if obj == nil {
			continue
		}
		hdr := obj.header()
		hdr.colour = colourBlack
		c.black.PushBack(c.heap, handle)
		obj.trace(func(child int32) {
			co := c.heap.object(child)
			if co == nil {
				return
			}
			ch := co.header()
			if ch.colour == colourWhite0 || ch.colour == colourWhite1 {
				c.greyObject(child, ch)
			}
		})
	}
}

// finishMark runs the optional three-pass safety guard (spec.md §4.E),
// then transitions Mark→Sweep.
func (c *Collector) finishMark() {
	if c.threePass {
		c.heap.EachPersistent(func(handle int32) {
			obj := c.heap.object(handle)
			if obj == nil {
				return
			}
			hdr := obj.header()
			if hdr.colour == colourWhite0 || hdr.colour == colourWhite1 {
				c.greyObject(handle, hdr)
			}
		})
		// Drain fully: persistent cycles must not leak into sweep.
		for {
			handle, ok := c.grey.PopFront(c.heap)
			if !ok {
				break
			}
			obj := c.heap.object(handle)
			if obj == nil {
				continue
			}
			hdr := obj.header()
			hdr.colour = colourBlack
			c.black.PushBack(c.heap, handle)
			obj.trace(func(child int32) {
				co := c.heap.object(child)
				if co == nil {
					return
				}
				ch := co.header()
				if ch.colour == colourWhite0 || ch.colour == colourWhite1 {
					c.greyObject(child, ch)
				}
			})
		}
	}
	c.state = gcSweep
}

func (c *Collector) sweepSlice(budget int) {
	for i := 0; i < budget; i++ {
		handle, ok := c.white.PopFront(c.heap)
		if !ok {
			c.finishSweep()
			return
		}
		obj := c.heap.object(handle)
		if obj == nil {
			continue
		}
		if obj.header().allocEpoch > c.sweepCycleEpoch {
			// Allocated mid-cycle: must survive this sweep.
			c.sweepRequeue = append(c.sweepRequeue, handle)
			continue
		}
		destroyUser(obj)
		c.allocated -= obj.byteSize()
		c.pendingFree = append(c.pendingFree, handle)
		c.heap.release(handle)
	}
}

func (c *Collector) finishSweep() {
	// Recolour survivors (black objects) to the current allocation label
	// and move them back into the white list for the next cycle.
	for {
		handle, ok := c.black.PopFront(c.heap)
		if !ok {
			break
		}
		obj := c.heap.object(handle)
		if obj == nil {
			continue
		}
		hdr := obj.header()
		hdr.colour = c.allocLabel
		c.white.PushBack(c.heap, handle)
	}
	// Requeued too-new whites rejoin the live white list.
	for _, handle := range c.sweepRequeue {
		obj := c.heap.object(handle)
		if obj == nil {
			continue
		}
		c.white.PushBack(c.heap, handle)
	}
	c.sweepRequeue = c.sweepRequeue[:0]

	// Freed handles become reusable now that the cycle has fully closed
	// (invariant 4: "a freed handle is not reissued during the same
	// cycle").
	c.heap.free = append(c.heap.free, c.pendingFree...)
	c.pendingFree = c.pendingFree[:0]

	c.allocLabel = otherWhiteLabel(c.allocLabel)
	c.state = gcIdle
	c.cycles++

	c.softLimit = int(float64(c.allocated) * c.multiplier)
	c.hardLimit = c.softLimit * 10 / 9

	// Every completed cycle is a natural point to give idle slab chunks
	// back, now that this cycle's frees have actually landed.
	c.heap.mem.Shrink()
}

func otherWhiteLabel(c colour) colour {
	if c == colourWhite0 {
		return colourWhite1
	}
	return colourWhite0
}

// CollectFull drives the collector through however many cycles are needed
// to reach Idle, starting a new one first if necessary — used when the
// hard limit is crossed and by the embedding API's collect_full.
func (c *Collector) CollectFull() {
	if c.state == gcIdle {
		c.StartCycle()
	}
	for c.state != gcIdle {
		c.Step()
	}
}

// Allocated reports current live-byte accounting.
func (c *Collector) Allocated() int { return c.allocated }
func (c *Collector) Cycles() int    { return c.cycles }
func (c *Collector) State() string {
	switch c.state {
	case gcIdle:
		return "idle"
	case gcMark:
		return "mark"
	case gcSweep:
		return "sweep"
	default:
		return "?"
	}
}
