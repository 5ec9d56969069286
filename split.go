// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

// splitRemainder carves the tail of an over-sized block b, already shrunk
// to asize bytes by the caller and marked allocated, into a new free block
// spanning the rest of b's original extent. The remainder's prev_alloc bit
// is always true (b is allocated) and its prev_mini bit reflects whether
// asize itself is a mini block. The caller must insert the returned
// address into the free index.
//
// total is b's size before the caller shrunk it. If total == asize there is
// no residue and splitRemainder is not called.
func (h *Heap) splitRemainder(b uintptr, asize, total uintptr) uintptr {
	rem := total - asize
	remAddr := b + asize
	h.writeBlockHeader(remAddr, rem, false, true, asize == miniSize)
	h.fixSuccessorAt(remAddr)
	return remAddr
}
