// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

import "github.com/zhichun2/dmalloc/memlib"

// Stats reports read-only counters about a Heap. Allocs returns to zero
// once every allocation has been freed; tests rely on this.
type Stats struct {
	Allocs    int // live allocations
	HeapBytes int // bytes currently committed from the host arena
}

// Heap is a single allocator context: the arena it manages, its segregated
// free index, and its heap-boundary bookkeeping. Its zero value is not
// ready for use - call Init first. Multiple independent Heaps may coexist,
// each over its own Arena.
type Heap struct {
	arena memlib.Arena
	free  freeList

	heapStart uintptr // address of the first real block; fixed after Init
	epilogue  uintptr // address of the current epilogue header

	stats Stats
	ready bool
}

// NewHeap constructs a Heap over the given host memory collaborator. The
// returned Heap is not usable until Init succeeds.
func NewHeap(arena memlib.Arena) *Heap {
	return &Heap{arena: arena}
}

// Init lays down the prologue/epilogue sentinels and performs the first
// heap extension. It returns false (with the arena having consumed at most
// its first allocation) if the host memory collaborator refuses either
// request. Init is idempotent only in the sense that calling it again on a
// Heap that already succeeded starts over against whatever is left of the
// same arena; callers should not re-run it except on a fresh arena.
func (h *Heap) Init() (bool, error) {
	oldBreak, ok := h.arena.RequestBytes(2 * wordSize)
	if !ok {
		return false, ErrOutOfMemory
	}

	prologue := oldBreak
	writeWord(prologue, packHeader(0, true, false, false))

	h.heapStart = prologue + wordSize
	h.epilogue = h.heapStart
	writeWord(h.epilogue, packHeader(0, true, true, false))

	h.free = freeList{}
	h.stats = Stats{}
	h.ready = true

	if _, ok := h.extendHeap(chunkSize); !ok {
		h.ready = false
		return false, ErrOutOfMemory
	}
	return true, nil
}

// Stats returns a snapshot of the heap's counters.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.HeapBytes = h.arena.HeapSize()
	return s
}
