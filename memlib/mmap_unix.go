// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package memlib

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapArena is a grow-only Arena backed by a single anonymous mmap
// reservation: the whole span is reserved PROT_NONE up front (so its
// address never moves), and RequestBytes extends the committed prefix by
// mprotecting newly-needed pages PROT_READ|PROT_WRITE. RequestBytes never
// munmaps or re-protects pages back to PROT_NONE - growth is monotonic;
// only Close releases memory, and it releases the whole reservation.
type MmapArena struct {
	region    []byte
	base      unsafe.Pointer
	reserved  int
	committed int
}

// NewMmapArena reserves up to reserve bytes of address space for the
// arena's lifetime.
func NewMmapArena(reserve int) (*MmapArena, error) {
	region, err := unix.Mmap(-1, 0, reserve, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("memlib: reserve %d bytes: %w", reserve, err)
	}
	return &MmapArena{
		region:   region,
		base:     unsafe.Pointer(unsafe.SliceData(region)),
		reserved: reserve,
	}, nil
}

func (m *MmapArena) RequestBytes(delta int) (uintptr, bool) {
	if delta < 0 || m.committed+delta > m.reserved {
		return 0, false
	}
	start := uintptr(m.base) + uintptr(m.committed)
	page := uintptr(unix.Getpagesize())
	lo := start &^ (page - 1)
	hi := (start + uintptr(delta) + page - 1) &^ (page - 1)
	if hi > lo {
		grown := unsafe.Slice((*byte)(unsafe.Pointer(lo)), hi-lo)
		if err := unix.Mprotect(grown, unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return 0, false
		}
	}
	old := m.committed
	m.committed += delta
	return uintptr(m.base) + uintptr(old), true
}

func (m *MmapArena) Base() unsafe.Pointer { return m.base }
func (m *MmapArena) HeapLow() uintptr { return uintptr(m.base) }

func (m *MmapArena) HeapHigh() uintptr {
	if m.committed == 0 {
		return uintptr(m.base)
	}
	return uintptr(m.base) + uintptr(m.committed) - 1
}

func (m *MmapArena) HeapSize() int { return m.committed }
func (m *MmapArena) PageSize() int { return unix.Getpagesize() }

// Close releases the whole reservation. Not required before process exit.
func (m *MmapArena) Close() error {
	return unix.Munmap(m.region)
}
