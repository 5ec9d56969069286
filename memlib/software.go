// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memlib

import "unsafe"

// payloadAlignment matches the allocator core's 16-byte payload alignment
// requirement (dmalloc's `alignment` constant). make([]byte, n) makes no
// alignment promise beyond what the Go runtime's size classes happen to
// give a slice of that length, so SoftwareArena pads its backing array and
// rounds its own reported base up to this boundary - the same reason a
// real mmap-backed arena doesn't need to (mmap always returns
// page-aligned memory, far more aligned than this requires).
const payloadAlignment = 16

// SoftwareArena is a portable Arena backed by one pre-sized Go byte slice.
// It never calls into the OS; the whole region is allocated once, up
// front, and "growth" is nothing more than advancing a committed-byte
// counter within it. Because the backing array is sized once at
// construction and never reallocated, its address is as stable as a real
// mmap mapping's for as long as the arena lives, which is what lets the
// allocator core keep raw uintptr arithmetic across calls.
//
// This is the arena used by dmalloc's own tests: traces run with no OS
// involvement at all, and a too-small capacity is the cheapest way to
// exercise the out-of-memory paths.
type SoftwareArena struct {
	mem       []byte
	base      unsafe.Pointer
	limit     int // bytes usable from base onward
	committed int
	pageSize  int
}

// NewSoftwareArena reserves capacity bytes of storage. capacity is the hard
// ceiling the arena can ever grow to; RequestBytes fails once it would be
// exceeded.
func NewSoftwareArena(capacity int) *SoftwareArena {
	mem := make([]byte, capacity+payloadAlignment)
	raw := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	aligned := (raw + payloadAlignment - 1) &^ uintptr(payloadAlignment-1)
	return &SoftwareArena{
		mem:      mem,
		base:     unsafe.Pointer(aligned),
		limit:    capacity,
		pageSize: 4096,
	}
}

func (s *SoftwareArena) RequestBytes(delta int) (uintptr, bool) {
	if delta < 0 || s.committed+delta > s.limit {
		return 0, false
	}
	old := s.committed
	s.committed += delta
	return uintptr(s.base) + uintptr(old), true
}

func (s *SoftwareArena) Base() unsafe.Pointer { return s.base }
func (s *SoftwareArena) HeapLow() uintptr { return uintptr(s.base) }

func (s *SoftwareArena) HeapHigh() uintptr {
	if s.committed == 0 {
		return uintptr(s.base)
	}
	return uintptr(s.base) + uintptr(s.committed) - 1
}

func (s *SoftwareArena) HeapSize() int { return s.committed }
func (s *SoftwareArena) PageSize() int { return s.pageSize }
