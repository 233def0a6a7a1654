package gm

// fixedSet dispatches allocations to one of six power-of-two slabs for
// requests up to 512 bytes, or to a plain slice-backed list for anything
// larger — the Go translation of gmMemFixedSet's m_mem16..m_mem512 plus
// its big-allocation list. Alloc returns a fixedAlloc that records the
// bucket, so Free can route back to the right slab without the caller
// having to remember the original size.
type fixedSet struct {
	slabs   [6]*slab // 16, 32, 64, 128, 256, 512
	big     map[*bigAlloc]struct{}
	memUsed int
}

type bigAlloc struct {
	data []byte
}

var fixedSetBucketSizes = [6]int{16, 32, 64, 128, 256, 512}

func newFixedSet(chunkCount int) *fixedSet {
	fs := &fixedSet{big: make(map[*bigAlloc]struct{})}
	for i, sz := range fixedSetBucketSizes {
		// Slab elements hold payload only; the bucket is carried in the
		// fixedAlloc handed back by Alloc, so the slab is sized to the
		// bucket's payload.
		fs.slabs[i] = newSlab(sz, chunkCount)
	}
	return fs
}

func bucketFor(size int) int {
	for i, sz := range fixedSetBucketSizes {
		if size <= sz {
			return i
		}
	}
	return -1
}

// allocation is an opaque handle fixedSet hands back: either a slab slot
// (bucket >= 0) or a big heap-allocated block (bucket == -1).
type fixedAlloc struct {
	bucket int
	idx    int32
	big    *bigAlloc
}

func (fs *fixedSet) Alloc(size int) (fixedAlloc, []byte) {
	if b := bucketFor(size); b >= 0 {
		idx, data := fs.slabs[b].Alloc()
		fs.memUsed += fixedSetBucketSizes[b]
		return fixedAlloc{bucket: b, idx: idx}, data[:size]
	}
	ba := &bigAlloc{data: make([]byte, size)}
	fs.big[ba] = struct{}{}
	fs.memUsed += size
	return fixedAlloc{bucket: -1, big: ba}, ba.data
}

func (fs *fixedSet) Free(a fixedAlloc) {
	if a.bucket >= 0 {
		fs.slabs[a.bucket].Free(a.idx)
		fs.memUsed -= fixedSetBucketSizes[a.bucket]
		return
	}
	if a.big != nil {
		fs.memUsed -= len(a.big.data)
		delete(fs.big, a.big)
	}
}

// MemUsed mirrors gmMemFixedSet::GetMemUsed: bytes currently allocated and
// not yet returned via Free.
func (fs *fixedSet) MemUsed() int { return fs.memUsed }

// Reset drops every big allocation and rewinds every slab's bookkeeping;
// used when the whole heap is torn down.
func (fs *fixedSet) Reset() {
	for i := range fs.slabs {
		fs.slabs[i] = newSlab(fixedSetBucketSizes[i], fs.slabs[i].chunkCount)
	}
	fs.big = make(map[*bigAlloc]struct{})
	fs.memUsed = 0
}

// Shrink releases entirely free slab chunks from the end of each slab's
// chunk list, resolving the TODO left open in the original
// SetCountAndFreeMemory (spec.md §9 Open Question ii): at least one chunk
// per bucket is always kept. A free chunk that sits before a chunk still
// in use is not released.
func (fs *fixedSet) Shrink() {
	for _, s := range fs.slabs {
		for len(s.chunks) > 1 && s.chunkFullyFree(len(s.chunks)-1) {
			s.dropLastChunk()
		}
	}
}
