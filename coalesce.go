// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

// coalesce merges a newly-freed block b with whichever of its neighbours
// are also free, removing any absorbed neighbour from the free index, and
// returns the address of the resulting block (b itself unless the
// predecessor was free, in which case the merged block starts there).
//
// b must already have its own header marked free (and footer written, if
// non-mini) before this is called; b itself is not yet inserted into any
// bucket. The caller is responsible for inserting the returned block.
func (h *Heap) coalesce(b uintptr) uintptr {
	prevAllocated := blockPrevAlloc(b)
	next := h.findNext(b)
	nextAllocated := blockAlloc(next)

	switch {
	case prevAllocated && nextAllocated:
		return b

	case prevAllocated && !nextAllocated:
		h.free.remove(next)
		merged := blockSize(b) + blockSize(next)
		h.writeBlockHeader(b, merged, false, blockPrevAlloc(b), blockPrevMini(b))
		h.fixSuccessorAt(b)
		return b

	case !prevAllocated && nextAllocated:
		prev, ok := h.findPrev(b)
		if !ok {
			// prevAllocated is false only when a real predecessor exists
			// and is free; the prologue is always allocated.
			return b
		}
		h.free.remove(prev)
		merged := blockSize(prev) + blockSize(b)
		h.writeBlockHeader(prev, merged, false, blockPrevAlloc(prev), blockPrevMini(prev))
		h.fixSuccessorAt(prev)
		return prev

	default: // both neighbours free
		prev, ok := h.findPrev(b)
		if !ok {
			return b
		}
		h.free.remove(prev)
		h.free.remove(next)
		merged := blockSize(prev) + blockSize(b) + blockSize(next)
		h.writeBlockHeader(prev, merged, false, blockPrevAlloc(prev), blockPrevMini(prev))
		h.fixSuccessorAt(prev)
		return prev
	}
}

// coalesceAndInsert merges b with any free neighbours and inserts the
// result into the free index, returning the inserted block's address. Used
// by both Free and extendHeap.
func (h *Heap) coalesceAndInsert(b uintptr) uintptr {
	merged := h.coalesce(b)
	h.free.insert(merged)
	return merged
}
