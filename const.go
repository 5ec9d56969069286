// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dmalloc

import "errors"

// Compile-time constants. None of these are runtime-tunable.
const (
	wordSize   = 8    // header/footer/link word width
	alignment  = 16   // payload alignment quantum
	miniSize   = 16   // exact size of a mini block
	minRegular = 32   // minimum size of a regular (non-mini) block
	chunkSize  = 4096 // heap-extension granularity

	numClasses = 15 // bucket 0 (mini) + 14 doubling regular buckets

	// bestFitScanBudget bounds how many large-enough free blocks findFit
	// considers per bucket before committing to the smallest one seen;
	// blocks too small for the request do not count toward it. 3 is the
	// throughput/fragmentation tradeoff this implementation documents and
	// tunes; see placement.go.
	bestFitScanBudget = 3
)

var (
	// ErrOutOfMemory is returned when the host memory collaborator refuses
	// to grow the arena. The heap is left exactly as it was on entry.
	ErrOutOfMemory = errors.New("dmalloc: out of memory")

	// ErrInvalidSize is returned for negative or otherwise nonsensical size
	// arguments. It is never returned for size == 0 - that is a defined,
	// non-error null allocation (see Allocate).
	ErrInvalidSize = errors.New("dmalloc: invalid size")

	// ErrNotInitialized is returned by operations invoked before Init has
	// succeeded.
	ErrNotInitialized = errors.New("dmalloc: heap not initialized")

	// errCorrupt marks a free-index inconsistency the allocator itself
	// detected. Invariant violations caused by client misuse (double free,
	// foreign pointer) are undefined behavior, not a reported error.
	errCorrupt = errors.New("dmalloc: heap invariant violated")
)
