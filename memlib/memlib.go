// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memlib is the host memory collaborator the allocator core
// consumes: a single contiguous region that can only grow, at its
// high-address end, never shrink. The core only ever calls the methods of
// Arena; everything else here is construction and platform plumbing.
//
// Two implementations are provided: SoftwareArena, a portable, syscall-free
// double backed by a single pre-sized Go byte slice (for tests and for
// hosts where a real grow-only mapping isn't wanted), and a platform
// mmap-backed Arena (mmap_unix.go / mmap_windows.go) that reserves a large
// span of address space up front and commits pages into it as the
// allocator grows.
package memlib

import "unsafe"

// Arena is the host memory interface the allocator core requires.
type Arena interface {
	// RequestBytes advances the arena's break by delta bytes and returns
	// the address of the old break (where the newly available bytes
	// begin). ok is false, with the arena left untouched, if delta cannot
	// be satisfied.
	RequestBytes(delta int) (oldBreak uintptr, ok bool)

	// Base returns the fixed address of the first byte of the arena. It
	// never changes for the lifetime of the Arena.
	Base() unsafe.Pointer

	// HeapLow and HeapHigh bound the currently committed region
	// (inclusive on both ends). HeapHigh is only meaningful once at least
	// one byte has been committed.
	HeapLow() uintptr
	HeapHigh() uintptr

	// HeapSize reports the number of bytes currently committed.
	HeapSize() int

	// PageSize reports the host's page granularity.
	PageSize() int
}
