// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package memlib

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// MmapArena is a grow-only Arena backed by a single VirtualAlloc
// reservation: the whole span is MEM_RESERVEd up front (its address never
// moves), and RequestBytes extends the committed prefix with a MEM_COMMIT
// call. Nothing is ever decommitted or freed early - growth is monotonic,
// matching the unix implementation.
type MmapArena struct {
	base      unsafe.Pointer
	reserved  int
	committed int
}

// NewMmapArena reserves up to reserve bytes of address space for the
// arena's lifetime.
func NewMmapArena(reserve int) (*MmapArena, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(reserve), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, fmt.Errorf("memlib: reserve %d bytes: %w", reserve, err)
	}
	return &MmapArena{
		base:     unsafe.Pointer(addr),
		reserved: reserve,
	}, nil
}

func (m *MmapArena) RequestBytes(delta int) (uintptr, bool) {
	if delta < 0 || m.committed+delta > m.reserved {
		return 0, false
	}
	start := uintptr(m.base) + uintptr(m.committed)
	if _, err := windows.VirtualAlloc(start, uintptr(delta), windows.MEM_COMMIT, windows.PAGE_READWRITE); err != nil {
		return 0, false
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

func (m *MmapArena) PageSize() int {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return int(si.PageSize)
}

// Close releases the whole reservation. Not required before process exit.
func (m *MmapArena) Close() error {
	return windows.VirtualFree(uintptr(m.base), 0, windows.MEM_RELEASE)
}
