// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dmalloc implements a single-threaded dynamic storage allocator
// over one contiguous, grow-only byte arena supplied by a host memory
// collaborator (see package memlib).
//
// The public surface mirrors the classical C allocator quartet -
// Allocate/Free/Reallocate/ZeroedAllocate - plus an Unsafe* mirror operating
// on raw unsafe.Pointer values and a UsableSize query, the same shape as
// cznic/memory's Malloc/Free/Realloc/Calloc/Unsafe* API.
//
// Internally the heap is managed with a segregated, size-classed free list
// (15 buckets; bucket 0 holds 16-byte "mini" blocks on a singly-linked
// list, buckets 1-14 hold regular blocks on doubly-linked lists) and a
// boundary-tag / predecessor-bit scheme that lets allocated blocks go
// without footers: every block's header carries its own size/alloc bit plus
// two bits describing its immediate predecessor (allocated?  mini?). A mini
// predecessor is found from the prev_mini bit alone; a free regular
// predecessor is found by reading its footer.
//
// The zero value of Heap is not ready for use; call Init first.
package dmalloc
