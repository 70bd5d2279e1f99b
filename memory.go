// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

// AllocateMemory allocates n bytes from the allocator of the current
// fixture. It returns nil for n == 0 or when out of memory.
func AllocateMemory(n int) []byte {
	return Allocate(DefaultAllocator(), n)
}

// FreeMemory releases p to the allocator of the current fixture.
func FreeMemory(p []byte) {
	Free(DefaultAllocator(), p)
}

// ResizeMemory resizes p using the allocator of the current fixture.
// See Reallocate.
func ResizeMemory(p []byte, n int) []byte {
	return Reallocate(DefaultAllocator(), p, n)
}

// ZeroMemory clears p.
func ZeroMemory(p []byte) {
	clear(p)
}

// FillMemory sets every byte of p to c.
func FillMemory(p []byte, c byte) {
	fill(p, c)
}

// CopyMemory copies min(len(dst), len(src)) bytes from src to dst.
func CopyMemory(dst, src []byte) int {
	return copy(dst, src)
}

// MoveMemory copies min(len(dst), len(src)) bytes from src to dst.
// The regions may overlap.
func MoveMemory(dst, src []byte) int {
	return copy(dst, src)
}

// SwapMemory exchanges the first min(len(p), len(q)) bytes of p and q.
func SwapMemory(p, q []byte) {
	n := min(len(p), len(q))
	for i := 0; i < n; i++ {
		p[i], q[i] = q[i], p[i]
	}
}

func fill(p []byte, c byte) {
	if len(p) == 0 {
		return
	}
	p[0] = c
	for i := 1; i < len(p); i *= 2 {
		copy(p[i:], p[:i])
	}
}
