// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

// findFit selects a free block of at least asize bytes using a bounded
// best-fit: bucket 0 (mini) is an exact match taken immediately, since
// every mini block is the same size; in every other bucket the first
// bestFitScanBudget large-enough blocks compete and the smallest of them
// wins, ties going to whichever was encountered first. A bucket with no
// qualifying block at all falls through to the next class.
func (h *Heap) findFit(asize uintptr) (uintptr, bool) {
	c := classOf(asize)
	if c == 0 && h.free.heads[0] != 0 {
		return h.free.heads[0], true
	}

	for ; c < numClasses; c++ {
		var best uintptr
		var bestSize uintptr
		candidates := 0
		for cur := h.free.heads[c]; cur != 0; cur = nextInBucket(cur, c) {
			sz := blockSize(cur)
			if sz < asize {
				continue
			}
			if best == 0 || sz < bestSize {
				best, bestSize = cur, sz
			}
			if candidates++; candidates == bestFitScanBudget {
				break
			}
		}
		if best != 0 {
			return best, true
		}
	}
	return 0, false
}

// roundUp16 rounds n up to the next multiple of 16.
func roundUp16(n uintptr) uintptr { return (n + 15) &^ 15 }

// extendHeap grows the arena by at least size bytes (rounded up to a
// multiple of 16), installs the grown region as one new free block,
// coalesces it with the previous tail block if that was free, inserts the
// result into the free index, and returns it. A host-memory failure
// returns (0, false) without mutating any allocator state.
func (h *Heap) extendHeap(size uintptr) (uintptr, bool) {
	prevAllocated := blockPrevAlloc(h.epilogue)
	prevMini := blockPrevMini(h.epilogue)

	grow := roundUp16(size)
	oldBreak, ok := h.arena.RequestBytes(int(grow))
	if !ok {
		return 0, false
	}

	// The old break sits one word past the former epilogue: growth reuses
	// that word as the new block's header, exactly as the epilogue's slot
	// is reused in the classic extend_heap scheme this mirrors.
	newBlock := oldBreak - wordSize
	h.writeBlockHeader(newBlock, grow, false, prevAllocated, prevMini)

	newEpilogue := newBlock + grow
	writeWord(newEpilogue, packHeader(0, true, false, false))
	h.epilogue = newEpilogue

	return h.coalesceAndInsert(newBlock), true
}
