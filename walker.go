// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

// findNext returns the address of the block immediately above b.
func (h *Heap) findNext(b uintptr) uintptr {
	return b + blockSize(b)
}

// findPrev returns the address of the block immediately below b, and false
// when b is the first real block (its predecessor is the prologue, which
// has no coalescable block of its own). Callers must treat "no predecessor"
// as "nothing to coalesce with" rather than dereferencing the prologue.
func (h *Heap) findPrev(b uintptr) (uintptr, bool) {
	if b == h.heapStart {
		return 0, false
	}
	if blockPrevMini(b) {
		return b - miniSize, true
	}
	footer := readWord(b - wordSize)
	return b - hdrSize(footer), true
}
