// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

import "testing"

func TestHeaderPackRoundTrip(t *testing.T) {
	cases := []struct {
		size                       uintptr
		alloc, prevAlloc, prevMini bool
	}{
		{16, true, true, false},
		{32, false, false, true},
		{4096, true, false, false},
		{0, true, true, false},
	}
	for _, c := range cases {
		w := packHeader(c.size, c.alloc, c.prevAlloc, c.prevMini)
		if got := hdrSize(w); got != c.size {
			t.Errorf("size: got %d, want %d", got, c.size)
		}
		if got := hdrAlloc(w); got != c.alloc {
			t.Errorf("alloc: got %v, want %v", got, c.alloc)
		}
		if got := hdrPrevAlloc(w); got != c.prevAlloc {
			t.Errorf("prevAlloc: got %v, want %v", got, c.prevAlloc)
		}
		if got := hdrPrevMini(w); got != c.prevMini {
			t.Errorf("prevMini: got %v, want %v", got, c.prevMini)
		}
	}
}

func TestBlockRequestSize(t *testing.T) {
	cases := []struct{ in int; want uintptr }{
		{1, 16},
		{8, 16},
		{9, 32},
		{17, 32},
		{24, 32},
		{25, 48},
	}
	for _, c := range cases {
		if got := blockRequestSize(c.in); got != c.want {
			t.Errorf("blockRequestSize(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
