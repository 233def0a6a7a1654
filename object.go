package gm

// objHeader is embedded in every heap object and carries the bookkeeping
// the GC and heap need: identity, type, colour, persistence, and the link
// node used by whichever colour list currently owns the object
// (spec.md §3 "Object heap").
type objHeader struct {
	handle     int32
	typ        VType
	colour     colour
	persistent bool
	allocEpoch int64
	link       linkNode
}

func (h *objHeader) Handle() int32  { return h.handle }
func (h *objHeader) Type() VType    { return h.typ }
func (h *objHeader) Persistent() bool { return h.persistent }

// heapObject is satisfied by every object kind (string, table, function,
// user). trace reports direct outgoing references to the GC so it can
// grey them; byteSize is charged against the GC budget at allocation time.
type heapObject interface {
	header() *objHeader
	trace(mark func(h int32))
	byteSize() int
}

type colour uint8

const (
	colourWhite0 colour = iota
	colourWhite1
	colourGrey
	colourBlack
)

func (c colour) String() string {
	switch c {
	case colourWhite0:
		return "WHITE_0"
	case colourWhite1:
		return "WHITE_1"
	case colourGrey:
		return "GREY"
	case colourBlack:
		return "BLACK"
	default:
		return "?"
	}
}
