package gm

import "testing"

func TestSlabAllocReuseAndZeroing(t *testing.T) {
	s := newSlab(16, 4)
	idx1, b1 := s.Alloc()
	copy(b1, []byte{1, 2, 3, 4})
	s.Free(idx1)

	idx2, b2 := s.Alloc()
	if idx2 != idx1 {
		t.Fatalf("expected freed slot to be reused, got idx %d want %d", idx2, idx1)
	}
	for i, v := range b2 {
		if v != 0 {
			t.Fatalf("slot %d not zeroed at byte %d: %d", idx2, i, v)
		}
	}
}

func TestSlabGrowsAcrossChunks(t *testing.T) {
	s := newSlab(16, 2)
	var idxs []int32
	for i := 0; i < 5; i++ {
		idx, _ := s.Alloc()
		idxs = append(idxs, idx)
	}
	if len(s.chunks) < 3 {
		t.Fatalf("expected at least 3 chunks for 5 elements of chunkCount 2, got %d", len(s.chunks))
	}
	seen := map[int32]bool{}
	for _, idx := range idxs {
		if seen[idx] {
			t.Fatalf("duplicate slot index %d handed out while none were freed", idx)
		}
		seen[idx] = true
	}
}

func TestFixedSetBucketRouting(t *testing.T) {
	fs := newFixedSet(4)
	a, buf := fs.Alloc(10)
	if a.bucket != 0 {
		t.Fatalf("10-byte alloc should land in the 16-byte bucket, got bucket %d", a.bucket)
	}
	if len(buf) != 10 {
		t.Fatalf("Alloc(10) returned %d bytes", len(buf))
	}

	big, bigBuf := fs.Alloc(4096)
	if big.bucket != -1 || big.big == nil {
		t.Fatalf("4096-byte alloc should fall back to a big allocation")
	}
	if len(bigBuf) != 4096 {
		t.Fatalf("big alloc returned %d bytes, want 4096", len(bigBuf))
	}

	if fs.MemUsed() != 16+4096 {
		t.Fatalf("MemUsed = %d, want %d", fs.MemUsed(), 16+4096)
	}

	fs.Free(a)
	fs.Free(big)
	if fs.MemUsed() != 0 {
		t.Fatalf("MemUsed after freeing everything = %d, want 0", fs.MemUsed())
	}
}

func TestFixedSetShrinkKeepsOneChunkPerBucket(t *testing.T) {
	fs := newFixedSet(2)
	var allocs []fixedAlloc
	for i := 0; i < 5; i++ {
		a, _ := fs.Alloc(16)
		allocs = append(allocs, a)
	}
	for _, a := range allocs {
		fs.Free(a)
	}
	fs.Shrink()
	if len(fs.slabs[0].chunks) != 1 {
		t.Fatalf("Shrink should leave exactly one chunk once everything is free, got %d", len(fs.slabs[0].chunks))
	}
}

func TestChainArenaBumpAndReset(t *testing.T) {
	a := newChainArena(64)
	b1 := a.Alloc(10)
	b2 := a.Alloc(10)
	if &b1[0] == &b2[0] {
		t.Fatalf("two live allocations should not alias the same bytes")
	}
	if a.Used() != 20 {
		t.Fatalf("Used() = %d, want 20", a.Used())
	}
	a.Reset()
	if a.Used() != 0 {
		t.Fatalf("Used() after Reset = %d, want 0", a.Used())
	}
	oversized := a.Alloc(128)
	if len(oversized) != 128 {
		t.Fatalf("oversized alloc returned %d bytes, want 128", len(oversized))
	}
}
