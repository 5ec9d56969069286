// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhichun2/dmalloc/memlib"
)

func TestCheckHeapOnFreshHeap(t *testing.T) {
	h := NewHeap(memlib.NewSoftwareArena(1 << 20))
	ok, err := h.Init()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, h.CheckHeap(0))
}

func TestCheckHeapDetectsHeaderFooterMismatch(t *testing.T) {
	h := NewHeap(memlib.NewSoftwareArena(1 << 20))
	ok, err := h.Init()
	require.NoError(t, err)
	require.True(t, ok)

	free := h.free.heads[classOf(chunkSize)]
	require.NotZero(t, free, "expected a free block after Init's extendHeap")

	// Corrupt the footer directly; CheckHeap must catch the mismatch
	// instead of silently trusting the header.
	writeWord(blockFooter(free), readWord(free)^1)

	require.False(t, h.CheckHeap(0))
}

func TestCheckHeapDetectsMissingBucketMembership(t *testing.T) {
	h := NewHeap(memlib.NewSoftwareArena(1 << 20))
	ok, err := h.Init()
	require.NoError(t, err)
	require.True(t, ok)

	c := classOf(chunkSize)
	free := h.free.heads[c]
	require.NotZero(t, free)

	// Unlink the block from its bucket without updating its header: now
	// it's a free block the checker can find by walking the heap but
	// can't find in any bucket.
	h.free.heads[c] = nextInBucket(free, c)

	require.False(t, h.CheckHeap(0))
}

func TestClassOfBoundaries(t *testing.T) {
	require.Equal(t, 0, classOf(16))
	require.Equal(t, 1, classOf(17))
	require.Equal(t, 1, classOf(32))
	require.Equal(t, 2, classOf(33))
	require.Equal(t, 13, classOf(131072))
	require.Equal(t, numClasses-1, classOf(131073))
	require.Equal(t, numClasses-1, classOf(1<<20))
}
