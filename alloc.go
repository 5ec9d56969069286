// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

import (
	"fmt"
	"os"
	"unsafe"
)

// blockRequestSize rounds a requested payload size up to the block size
// that will hold it: max(16, round_up(size+8, 16)). Payloads of 8 bytes or
// fewer fit the 16-byte mini class.
func blockRequestSize(size int) uintptr {
	need := roundUp16(uintptr(size) + wordSize)
	if need < miniSize {
		need = miniSize
	}
	return need
}

func usablePayloadSize(b uintptr) int { return int(blockSize(b) - wordSize) }

func sliceAt(addr uintptr, length, capacity int) []byte {
	if capacity <= 0 {
		return nil
	}
	full := unsafe.Slice((*byte)(unsafe.Pointer(addr)), capacity)
	return full[:length]
}

// allocateBlock removes b from the free index, marks it allocated, and -
// if the residue is large enough - splits off and re-inserts a free
// remainder. Returns b, now allocated and sized to asize.
func (h *Heap) allocateBlock(b, asize uintptr) uintptr {
	total := blockSize(b)
	prevAlloc := blockPrevAlloc(b)
	prevMini := blockPrevMini(b)

	h.free.remove(b)

	if total == asize {
		h.writeBlockHeader(b, total, true, prevAlloc, prevMini)
		h.fixSuccessorAt(b)
		return b
	}

	h.writeBlockHeader(b, asize, true, prevAlloc, prevMini)
	remainder := h.splitRemainder(b, asize, total)
	h.free.insert(remainder)
	return b
}

// Allocate returns size bytes of uninitialized memory (not zeroed - see
// ZeroedAllocate), or nil if size is zero. It returns ErrOutOfMemory when
// the host arena refuses to grow, ErrNotInitialized before Init has
// succeeded, and ErrInvalidSize for a negative size.
func (h *Heap) Allocate(size int) ([]byte, error) {
	if !h.ready {
		return nil, ErrNotInitialized
	}
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Allocate(%#x) requested\n", size) }()
	}
	if size == 0 {
		return nil, nil
	}

	asize := blockRequestSize(size)
	b, ok := h.findFit(asize)
	if !ok {
		grow := asize
		if grow < chunkSize {
			grow = chunkSize
		}
		if _, ok := h.extendHeap(grow); !ok {
			return nil, ErrOutOfMemory
		}
		b, ok = h.findFit(asize)
		if !ok {
			// extendHeap succeeded and inserted a block of at least asize
			// bytes; a miss here means the free index is corrupt.
			return nil, errCorrupt
		}
	}

	b = h.allocateBlock(b, asize)
	h.stats.Allocs++
	if debugAutoCheck {
		h.CheckHeap(0)
	}
	return sliceAt(blockPayload(b), size, usablePayloadSize(b)), nil
}

// Free releases a block previously returned by Allocate, Reallocate or
// ZeroedAllocate. A nil or empty slice is a no-op.
func (h *Heap) Free(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if !h.ready {
		return ErrNotInitialized
	}
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Free(%p)\n", &p[0]) }()
	}

	b := payloadToBlock(uintptr(unsafe.Pointer(&p[0])))
	h.freeBlock(b)
	h.stats.Allocs--
	if debugAutoCheck {
		h.CheckHeap(0)
	}
	return nil
}

// freeBlock marks b free, fixes its successor's trailing bits, and
// coalesces and re-inserts it into the free index.
func (h *Heap) freeBlock(b uintptr) {
	w := readWord(b)
	h.writeBlockHeader(b, hdrSize(w), false, hdrPrevAlloc(w), hdrPrevMini(w))
	h.fixSuccessorAt(b)
	h.coalesceAndInsert(b)
}

// Reallocate changes the size of p's backing block. size == 0 frees p and
// returns nil. A nil or empty p behaves as Allocate(size). Otherwise the
// content of the old block, up to min(size, old usable size), is preserved
// in a freshly allocated block and the old block is freed; on allocation
// failure p is left untouched and nil is returned.
func (h *Heap) Reallocate(p []byte, size int) ([]byte, error) {
	if size == 0 {
		return nil, h.Free(p)
	}
	if len(p) == 0 {
		return h.Allocate(size)
	}

	next, err := h.Allocate(size)
	if err != nil {
		return nil, err
	}

	n := size
	if old := h.UsableSize(p); old < n {
		n = old
	}
	copy(next[:n], unsafe.Slice(&p[0], n))
	if err := h.Free(p); err != nil {
		return nil, err
	}
	return next, nil
}

func mulOverflows(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	r := a * b
	if r/a != b || r < 0 {
		return 0, true
	}
	return r, false
}

// ZeroedAllocate allocates count*size bytes, zeroed, as in C's calloc. It
// returns nil for a zero count or size, and nil for a count*size overflow,
// without touching the arena.
func (h *Heap) ZeroedAllocate(count, size int) ([]byte, error) {
	if count <= 0 || size <= 0 {
		return nil, nil
	}
	total, overflow := mulOverflows(count, size)
	if overflow {
		return nil, nil
	}

	b, err := h.Allocate(total)
	if err != nil || b == nil {
		return b, err
	}
	for i := range b {
		b[i] = 0
	}
	return b, nil
}

// UsableSize reports the capacity of the block backing p: this can exceed
// the size originally requested, since block sizes are rounded up.
func (h *Heap) UsableSize(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	b := payloadToBlock(uintptr(unsafe.Pointer(&p[0])))
	return usablePayloadSize(b)
}

// UnsafeAllocate is like Allocate except it returns an unsafe.Pointer.
func (h *Heap) UnsafeAllocate(size int) (unsafe.Pointer, error) {
	b, err := h.Allocate(size)
	if len(b) == 0 || err != nil {
		return nil, err
	}
	return unsafe.Pointer(&b[0]), nil
}

// UnsafeFree is like Free except its argument is an unsafe.Pointer, which
// must have been returned by UnsafeAllocate, UnsafeZeroedAllocate or
// UnsafeReallocate (or the non-unsafe equivalents, taking the address of
// their first byte).
func (h *Heap) UnsafeFree(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	if !h.ready {
		return ErrNotInitialized
	}
	b := payloadToBlock(uintptr(p))
	h.freeBlock(b)
	h.stats.Allocs--
	if debugAutoCheck {
		h.CheckHeap(0)
	}
	return nil
}

// UnsafeReallocate is like Reallocate except its first argument and result
// are unsafe.Pointer values.
func (h *Heap) UnsafeReallocate(p unsafe.Pointer, size int) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, h.UnsafeFree(p)
	}
	if p == nil {
		return h.UnsafeAllocate(size)
	}

	oldBlock := payloadToBlock(uintptr(p))
	oldUsable := usablePayloadSize(oldBlock)

	next, err := h.UnsafeAllocate(size)
	if err != nil {
		return nil, err
	}

	n := size
	if oldUsable < n {
		n = oldUsable
	}
	dst := unsafe.Slice((*byte)(next), n)
	src := unsafe.Slice((*byte)(p), n)
	copy(dst, src)
	if err := h.UnsafeFree(p); err != nil {
		return nil, err
	}
	return next, nil
}

// UnsafeZeroedAllocate is like ZeroedAllocate except it returns an
// unsafe.Pointer.
func (h *Heap) UnsafeZeroedAllocate(count, size int) (unsafe.Pointer, error) {
	b, err := h.ZeroedAllocate(count, size)
	if len(b) == 0 || err != nil {
		return nil, err
	}
	return unsafe.Pointer(&b[0]), nil
}

// UnsafeUsableSize is like UsableSize except its argument is an
// unsafe.Pointer.
func (h *Heap) UnsafeUsableSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	return usablePayloadSize(payloadToBlock(uintptr(p)))
}
