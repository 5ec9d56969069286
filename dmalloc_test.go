// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

import (
	"bytes"
	"math"
	"testing"
	"unsafe"

	"github.com/cznic/mathutil"

	"github.com/zhichun2/dmalloc/memlib"
)

// unsafeBytesFromPtr reconstructs a live allocation's slice view from the
// *byte key traceInterleaved indexes its shadow map by.
func unsafeBytesFromPtr(p *byte, length int) []byte {
	return unsafe.Slice(p, length)
}

// traceQuota bounds the total payload bytes a trace allocates. Every trace
// step runs the whole-heap checker, so the quota is what keeps the traces
// from going quadratic in block count.
const traceQuota = 1 << 20

func newTestHeap(t *testing.T, capacity int) *Heap {
	t.Helper()
	h := NewHeap(memlib.NewSoftwareArena(capacity))
	ok, err := h.Init()
	if err != nil || !ok {
		t.Fatalf("Init: %v %v", ok, err)
	}
	return h
}

// traceAllocFree runs a deterministic allocate/verify/shuffle/free pass
// over random sizes up to max, driven by mathutil's seeded FC32 generator
// so a failure replays identically.
func traceAllocFree(t *testing.T, max int) {
	h := newTestHeap(t, 64<<20)
	rem := traceQuota
	var allocs [][]byte

	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		t.Fatal(err)
	}
	rng.Seed(42)
	pos := rng.Pos()

	for rem > 0 {
		size := rng.Next()%max + 1
		rem -= size
		b, err := h.Allocate(size)
		if err != nil {
			t.Fatal(err)
		}
		allocs = append(allocs, b)
		for i := range b {
			b[i] = byte(rng.Next())
		}
		if !h.CheckHeap(0) {
			t.Fatalf("check_heap failed after Allocate(%d)", size)
		}
	}

	rng.Seek(pos)
	for i, b := range allocs {
		if g, e := len(b), rng.Next()%max+1; g != e {
			t.Fatalf("alloc %d: len %d, want %d", i, g, e)
		}
		for j := range b {
			if e := byte(rng.Next()); b[j] != e {
				t.Fatalf("alloc %d byte %d: got %#x want %#x", i, j, b[j], e)
			}
			b[j] = 0
		}
	}

	for i := range allocs {
		j := rng.Next() % len(allocs)
		allocs[i], allocs[j] = allocs[j], allocs[i]
	}

	for _, b := range allocs {
		if err := h.Free(b); err != nil {
			t.Fatal(err)
		}
	}
	if !h.CheckHeap(0) {
		t.Fatal("check_heap failed after freeing everything")
	}
	if got := h.Stats().Allocs; got != 0 {
		t.Fatalf("Allocs = %d, want 0", got)
	}
}

func TestTraceSmall(t *testing.T) { traceAllocFree(t, 256) }
func TestTraceBig(t *testing.T) { traceAllocFree(t, 8192) }

// traceInterleaved interleaves allocates and frees at random, keeping a
// shadow record of every live allocation to catch corruption of unrelated
// blocks.
func traceInterleaved(t *testing.T, max int) {
	h := newTestHeap(t, 64<<20)
	rem := traceQuota
	live := map[*byte][]byte{}

	rng, err := mathutil.NewFC32(1, max, true)
	if err != nil {
		t.Fatal(err)
	}

	for rem > 0 {
		switch rng.Next() % 3 {
		case 0, 1:
			size := rng.Next()
			b, err := h.Allocate(size)
			if err != nil {
				t.Fatal(err)
			}
			rem -= size
			live[&b[0]] = append([]byte(nil), b...)
			for i := range b {
				b[i] = byte(i)
			}
		default:
			for k, shadow := range live {
				cur := unsafeBytesFromPtr(k, len(shadow))
				for i := range cur {
					expect := byte(i)
					if cur[i] != expect {
						t.Fatalf("corrupted live block: byte %d got %#x want %#x", i, cur[i], expect)
					}
				}
				rem += len(shadow)
				if err := h.Free(cur); err != nil {
					t.Fatal(err)
				}
				delete(live, k)
				break
			}
		}
		if !h.CheckHeap(0) {
			t.Fatal("check_heap failed mid-trace")
		}
	}

	for k, shadow := range live {
		cur := unsafeBytesFromPtr(k, len(shadow))
		h.Free(cur)
	}
	if got := h.Stats().Allocs; got != 0 {
		t.Fatalf("Allocs = %d, want 0", got)
	}
}

func TestTraceInterleavedSmall(t *testing.T) { traceInterleaved(t, 256) }
func TestTraceInterleavedBig(t *testing.T) { traceInterleaved(t, 8192) }

func TestScenarios(t *testing.T) {
	t.Run("allocate then free", func(t *testing.T) {
		h := newTestHeap(t, 1<<20)
		p, err := h.Allocate(1)
		if err != nil || p == nil {
			t.Fatalf("Allocate(1): %v %v", p, err)
		}
		if err := h.Free(p); err != nil {
			t.Fatal(err)
		}
		if !h.CheckHeap(0) {
			t.Fatal("check_heap failed")
		}
	})

	t.Run("adjacent frees coalesce", func(t *testing.T) {
		h := newTestHeap(t, 1<<20)
		p1, _ := h.Allocate(32)
		p2, _ := h.Allocate(32)
		if err := h.Free(p1); err != nil {
			t.Fatal(err)
		}
		if err := h.Free(p2); err != nil {
			t.Fatal(err)
		}
		found := 0
		for c := 0; c < numClasses; c++ {
			for cur := h.free.heads[c]; cur != 0; cur = nextInBucket(cur, c) {
				if blockSize(cur) >= 64 {
					found++
				}
			}
		}
		if found != 1 {
			t.Fatalf("expected exactly one coalesced block >= 64 bytes, found %d", found)
		}
	})

	t.Run("reallocate preserves content", func(t *testing.T) {
		h := newTestHeap(t, 1<<20)
		p, _ := h.Allocate(8)
		copy(p, "01234567")
		q, err := h.Reallocate(p, 64)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(q[:8], []byte("01234567")) {
			t.Fatalf("content not preserved: %q", q[:8])
		}
	})

	t.Run("17-byte allocations round up to 32", func(t *testing.T) {
		h := newTestHeap(t, 1<<20)
		p, _ := h.Allocate(17)
		q, _ := h.Allocate(17)
		if got := h.UsableSize(p); got != 24 {
			t.Fatalf("UsableSize(p) = %d, want 24 (32-byte block minus header)", got)
		}
		if got := h.UsableSize(q); got != 24 {
			t.Fatalf("UsableSize(q) = %d, want 24", got)
		}
		h.Free(p)
		h.Free(q)
		if !h.CheckHeap(0) {
			t.Fatal("check_heap failed")
		}
	})

	t.Run("reuse a freed slot instead of extending", func(t *testing.T) {
		h := newTestHeap(t, 1<<20)
		before := h.Stats().HeapBytes
		var ps [64][]byte
		for i := range ps {
			ps[i], _ = h.Allocate(64)
		}
		for i := 0; i < len(ps); i += 2 {
			h.Free(ps[i])
		}
		afterFree := h.Stats().HeapBytes
		if _, err := h.Allocate(48); err != nil {
			t.Fatal(err)
		}
		after := h.Stats().HeapBytes
		if after != afterFree {
			t.Fatalf("heap grew on a request that should have reused a freed slot: %d -> %d (initial %d)", afterFree, after, before)
		}
	})

	t.Run("zeroed allocate", func(t *testing.T) {
		h := newTestHeap(t, 1<<20)
		b, err := h.ZeroedAllocate(10, 16)
		if err != nil || b == nil {
			t.Fatalf("ZeroedAllocate: %v %v", b, err)
		}
		for i, v := range b {
			if v != 0 {
				t.Fatalf("byte %d not zero: %#x", i, v)
			}
		}
		if b2, err := h.ZeroedAllocate(int(^uint(0)>>1)/2+1, 4); b2 != nil || err != nil {
			t.Fatalf("overflow ZeroedAllocate should return (nil, nil), got (%v, %v)", b2, err)
		}
	})
}

func TestAllocateZeroReturnsNil(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	b, err := h.Allocate(0)
	if b != nil || err != nil {
		t.Fatalf("Allocate(0) = (%v, %v), want (nil, nil)", b, err)
	}
}

func TestFreeNilIsNoOp(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	if err := h.Free(nil); err != nil {
		t.Fatalf("Free(nil): %v", err)
	}
}

func TestReallocateFromNilIsAllocate(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	b, err := h.Reallocate(nil, 16)
	if err != nil || b == nil {
		t.Fatalf("Reallocate(nil, 16): %v %v", b, err)
	}
}

func TestReallocateToZeroFrees(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	b, _ := h.Allocate(16)
	q, err := h.Reallocate(b, 0)
	if err != nil || q != nil {
		t.Fatalf("Reallocate(b, 0): %v %v", q, err)
	}
	if !h.CheckHeap(0) {
		t.Fatal("check_heap failed")
	}
}
