// Copyright 2024 The dmalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build memdebug

package dmalloc

const trace = true
const debugAutoCheck = true
