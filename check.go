// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

import (
	"fmt"
	"os"
)

// maxBucketWalk bounds how many nodes CheckHeap will follow in a single
// bucket before concluding the chain is cyclic (and therefore corrupt)
// rather than looping forever.
const maxBucketWalk = 1 << 24

func (h *Heap) reportViolation(line int, format string, args ...interface{}) bool {
	fmt.Fprintf(os.Stderr, "check_heap:%d: ", line)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	return false
}

// CheckHeap verifies the whole heap and the whole free index: sentinel
// presence and values, per-block bounds/alignment/footer-agreement/
// adjacent-free-block rules, successor prev_alloc/prev_mini mirroring, and
// per-bucket link consistency, membership and size-class correctness. It
// returns false with a diagnostic written to stderr on the first violation
// found; line is only used to identify the call site in that diagnostic.
func (h *Heap) CheckHeap(line int) bool {
	if !h.ready {
		return h.reportViolation(line, "heap not initialized")
	}

	prologue := h.heapStart - wordSize
	pw := readWord(prologue)
	if hdrSize(pw) != 0 || !hdrAlloc(pw) {
		return h.reportViolation(line, "prologue corrupt: size=%d alloc=%v", hdrSize(pw), hdrAlloc(pw))
	}

	low, high := h.arena.HeapLow(), h.arena.HeapHigh()
	var total uintptr
	prevWasFree := false

	for cur := h.heapStart; cur != h.epilogue; {
		w := readWord(cur)
		size, alloc := hdrSize(w), hdrAlloc(w)

		if size == 0 {
			return h.reportViolation(line, "zero-size block at %#x before epilogue", cur)
		}
		if cur < low || cur+size-1 > high {
			return h.reportViolation(line, "block at %#x (size %d) out of heap bounds [%#x,%#x]", cur, size, low, high)
		}
		if (cur+wordSize)%alignment != 0 {
			return h.reportViolation(line, "block at %#x: payload not %d-byte aligned", cur, alignment)
		}
		if size != miniSize && size < minRegular {
			return h.reportViolation(line, "block at %#x has invalid size %d", cur, size)
		}

		if !alloc {
			if size != miniSize {
				if ftr := readWord(blockFooter(cur)); ftr != w {
					return h.reportViolation(line, "block at %#x: header/footer mismatch (%#x != %#x)", cur, w, ftr)
				}
			}
			if prevWasFree {
				return h.reportViolation(line, "two adjacent free blocks ending at %#x", cur)
			}
			if !h.free.contains(cur) {
				return h.reportViolation(line, "free block at %#x missing from its bucket", cur)
			}
		}

		next := cur + size
		nw := readWord(next)
		if hdrPrevAlloc(nw) != alloc {
			return h.reportViolation(line, "successor of %#x has wrong prev_alloc bit", cur)
		}
		if hdrPrevMini(nw) != (size == miniSize) {
			return h.reportViolation(line, "successor of %#x has wrong prev_mini bit", cur)
		}

		total += size
		prevWasFree = !alloc
		cur = next
	}

	ew := readWord(h.epilogue)
	if hdrSize(ew) != 0 || !hdrAlloc(ew) {
		return h.reportViolation(line, "epilogue corrupt: size=%d alloc=%v", hdrSize(ew), hdrAlloc(ew))
	}
	if h.epilogue+wordSize-1 != high {
		return h.reportViolation(line, "epilogue at %#x is not at the heap top %#x", h.epilogue, high)
	}

	if want := uintptr(h.arena.HeapSize()) - 2*wordSize; total != want {
		return h.reportViolation(line, "block sizes sum to %d, want %d", total, want)
	}

	for c := 0; c < numClasses; c++ {
		count := 0
		var tail uintptr
		for cur, n := h.free.heads[c], 0; cur != 0; cur, n = nextInBucket(cur, c), n+1 {
			if n > maxBucketWalk {
				return h.reportViolation(line, "bucket %d: cyclic chain suspected", c)
			}
			if cur < low || cur > high {
				return h.reportViolation(line, "bucket %d member %#x out of heap bounds", c, cur)
			}
			if blockAlloc(cur) {
				return h.reportViolation(line, "bucket %d member %#x is allocated", c, cur)
			}
			if got := classOf(blockSize(cur)); got != c {
				return h.reportViolation(line, "bucket %d member %#x has size %d (belongs in bucket %d)", c, cur, blockSize(cur), got)
			}
			tail = cur
			count++
		}

		if c == 0 || count == 0 {
			continue
		}

		revCount := 0
		for cur := tail; cur != 0; cur = regularPrev(cur) {
			if revCount > maxBucketWalk {
				return h.reportViolation(line, "bucket %d: cyclic reverse chain suspected", c)
			}
			if p := regularPrev(cur); p != 0 && regularNext(p) != cur {
				return h.reportViolation(line, "bucket %d: %#x.prev.next != %#x", c, cur, cur)
			}
			revCount++
		}
		if revCount != count {
			return h.reportViolation(line, "bucket %d: forward count %d != reverse count %d", c, count, revCount)
		}
	}

	return true
}
