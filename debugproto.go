package gm

import "fmt"

// Message tags (spec.md §4.I): four ASCII characters, never validated
// beyond length by StreamWriter.WriteTag/StreamReader.ReadTag.
const (
	tagRun = "mrun" // client → VM: resume the broken thread
	tagSIn = "msin" // client → VM: step into
	tagSOv = "msov" // client → VM: step over
	tagSOu = "msou" // client → VM: step out
	tagGCt = "mgct" // client → VM: get call context (thr, frame)
	tagGSr = "mgsr" // client → VM: get source (src)
	tagGSi = "mgsi" // client → VM: get source info (stub, §9 open question i)
	tagGTi = "mgti" // client → VM: get thread info
	tagGVi = "mgvi" // client → VM: get variable info (stub, §9 open question i)
	tagSBp = "msbp" // client → VM: set breakpoint (rid, src, line, thr, enabled)
	tagBrk = "mbrk" // client → VM: force-break a running thread
	tagEnd = "mend" // client → VM: detach

	tagDBrk = "dbrk" // VM → client: hit a breakpoint/step target
	tagDRun = "drun" // VM → client: acknowledge resume
	tagDStp = "dstp" // VM → client: thread ended
	tagDSrc = "dsrc" // VM → client: source text reply
	tagDCtx = "dctx" // VM → client: call context group start ( … dAck terminates)
	tagDThi = "dthi" // VM → client: thread info group start
	tagDErr = "derr" // VM → client: malformed message (PROTOCOL_ERROR)
	tagDMsg = "dmsg" // VM → client: free-form log line
	tagDAck = "dack" // VM → client: group terminator / generic ack
	tagDEnd = "dend" // VM → client: acknowledge detach
	tagDExc = "dexc" // VM → client: runtime exception on a watched thread
)

// encodeMsg frames tag followed by ints (int32 LE each) then strs
// (NUL-terminated each), the uniform wire shape every message in §4.I
// uses.
func encodeMsg(tag string, ints []int32, strs []string) []byte {
	w := NewStreamWriter(LittleEndian)
	_ = w.WriteTag(tag)
	for _, v := range ints {
		w.WriteInt32(v)
	}
	for _, s := range strs {
		w.WriteCString(s)
	}
	return w.Bytes()
}

// decodedMsg is a parsed incoming message: tag plus a reader positioned
// right after it so the caller can pull exactly the fields its tag
// defines.
type decodedMsg struct {
	tag string
	r   *StreamReader
}

func decodeMsgHeader(data []byte) (decodedMsg, error) {
	r := NewStreamReader(data, LittleEndian)
	tag, err := r.ReadTag()
	if err != nil {
		return decodedMsg{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return decodedMsg{tag: tag, r: r}, nil
}
