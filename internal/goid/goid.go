// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package goid returns the identity of the calling goroutine.
package goid

import (
	"runtime"
	"strconv"
	"strings"
)

// Get returns the numeric id of the calling goroutine, or 0 if it
// cannot be determined.
func Get() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	if n <= 0 {
		return 0
	}
	// stack header: "goroutine 123 [running]:"
	fields := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))
	if len(fields) == 0 {
		return 0
	}
	id, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
