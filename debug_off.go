// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !memdebug

package dmalloc

// trace gates stderr diagnostics in the public entry points. Off by
// default so the hot path never pays for a disabled Fprintf.
const trace = false

// debugAutoCheck gates an automatic CheckHeap call after every mutating
// public operation. Only worth paying for in debug builds: CheckHeap walks
// the whole heap and every bucket on each call.
const debugAutoCheck = false
