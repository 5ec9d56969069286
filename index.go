// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

import "github.com/cznic/mathutil"

// classOf returns the bucket index (0..numClasses-1) a free block of the
// given size belongs to. Bucket 0 holds mini blocks only; bucket i covers
// (2^(i+3), 2^(i+4)] for 1 <= i <= 13, and bucket 14 everything above
// 131072 bytes.
//
// Note the deliberate (16, 32] boundary on bucket 1: a non-mini 32-byte
// block and mini 16-byte blocks are adjacent in size but never share a
// bucket, since mini blocks are singly-linked and carry no prev pointer.
// Traces that mix heavy 16- and 32-byte traffic exercise this boundary the
// hardest; see check_test.go and dmalloc_test.go for coverage.
func classOf(size uintptr) int {
	if size == miniSize {
		return 0
	}
	c := mathutil.BitLen(int(size)-1) - 4
	if c < 1 {
		c = 1
	}
	if c > numClasses-1 {
		c = numClasses - 1
	}
	return c
}

// freeList holds the 15 segregated bucket heads and the link-word
// manipulation for both bucket 0's singly-linked mini chain and buckets
// 1-14's doubly-linked regular chains.
type freeList struct {
	heads [numClasses]uintptr
}

func miniNext(b uintptr) uintptr { return uintptr(readWord(blockPayload(b))) }
func setMiniNext(b, v uintptr) { writeWord(blockPayload(b), uint64(v)) }

func regularNext(b uintptr) uintptr { return uintptr(readWord(blockPayload(b))) }
func setRegularNext(b, v uintptr) { writeWord(blockPayload(b), uint64(v)) }
func regularPrev(b uintptr) uintptr { return uintptr(readWord(blockPayload(b) + wordSize)) }
func setRegularPrev(b, v uintptr) { writeWord(blockPayload(b)+wordSize, uint64(v)) }

// nextInBucket walks forward in class c's chain regardless of whether it's
// the singly- or doubly-linked representation.
func nextInBucket(b uintptr, c int) uintptr {
	if c == 0 {
		return miniNext(b)
	}
	return regularNext(b)
}

// insert prepends a free block to the head of its size class. Precondition:
// b is free, its header size is current, and it is not already linked into
// any bucket.
func (fl *freeList) insert(b uintptr) {
	c := classOf(blockSize(b))
	old := fl.heads[c]
	if c == 0 {
		setMiniNext(b, old)
		fl.heads[c] = b
		return
	}
	setRegularNext(b, old)
	setRegularPrev(b, 0)
	if old != 0 {
		setRegularPrev(old, b)
	}
	fl.heads[c] = b
}

// remove unlinks b from its size class. Precondition: b is present in
// bucket classOf(blockSize(b)).
func (fl *freeList) remove(b uintptr) {
	c := classOf(blockSize(b))
	if c == 0 {
		if fl.heads[0] == b {
			fl.heads[0] = miniNext(b)
			return
		}
		cur := fl.heads[0]
		for cur != 0 {
			n := miniNext(cur)
			if n == b {
				setMiniNext(cur, miniNext(b))
				return
			}
			cur = n
		}
		// Precondition violated: b was never inserted. The heap checker
		// catches this class of corruption; nothing further to do here.
		return
	}

	prev, next := regularPrev(b), regularNext(b)
	if prev != 0 {
		setRegularNext(prev, next)
	} else {
		fl.heads[c] = next
	}
	if next != 0 {
		setRegularPrev(next, prev)
	}
}

// contains reports whether b is currently linked into its size class's
// bucket. Used by the heap checker, not by the hot allocate/free paths.
func (fl *freeList) contains(b uintptr) bool {
	c := classOf(blockSize(b))
	for cur := fl.heads[c]; cur != 0; cur = nextInBucket(cur, c) {
		if cur == b {
			return true
		}
	}
	return false
}
