// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package t7 provides pluggable memory allocators and a failure
// simulation harness that exercises every allocation failure branch of
// a function under test.
//
// Allocators are created from a Type (the capability table). Code that
// allocates through AllocateMemory, ResizeMemory and FreeMemory uses the
// allocator selected by the current Fixture, so tests can switch to an
// Arena or to the faulty allocator without touching the call sites.
package t7

const NAME = "t7"

// Type describes an allocator implementation. The address of a Type
// identifies the implementation in the allocator registry.
type Type struct {
	Name string
	// Create constructs a new allocator instance of type t.
	Create func(t *Type) (Allocator, error)
}

// Allocator is the capability set every allocator implements.
//
// Grab returns a region of at least n bytes (n > 0) or nil if the
// request cannot be satisfied. The returned slice has length n.
// Release frees a region returned by Grab or Resize of the same
// allocator. Resize changes the size of a region like realloc(): the
// content up to min(old size, n) is preserved; on failure it returns
// nil and leaves p untouched.
type Allocator interface {
	Type() *Type
	Destroy()
	Grab(n int) []byte
	Release(p []byte)
	Resize(p []byte, n int) []byte
}

// Allocate allocates n bytes from a. Allocating 0 bytes returns nil.
func Allocate(a Allocator, n int) []byte {
	if a == nil {
		PANIC("BUG: Allocate called with nil allocator\n")
	}
	if n <= 0 {
		return nil
	}
	return a.Grab(n)
}

// Reallocate resizes p using a. A nil p is allocated fresh, a zero n
// releases p and returns nil.
func Reallocate(a Allocator, p []byte, n int) []byte {
	if a == nil {
		PANIC("BUG: Reallocate called with nil allocator\n")
	}
	if p == nil {
		if n <= 0 {
			return nil
		}
		return a.Grab(n)
	}
	if n <= 0 {
		a.Release(p)
		return nil
	}
	return a.Resize(p, n)
}

// Free releases p using a. Freeing nil does nothing.
func Free(a Allocator, p []byte) {
	if a == nil {
		PANIC("BUG: Free called with nil allocator\n")
	}
	if p == nil {
		return
	}
	a.Release(p)
}

// SystemType is the allocator backed by the Go heap.
var SystemType = &Type{
	Name:   "system",
	Create: func(t *Type) (Allocator, error) { return &systemAllocator{t: t}, nil },
}

// systemAllocator delegates to the Go runtime. Release is a no-op, the
// garbage collector reclaims the memory.
type systemAllocator struct {
	t *Type
}

func (s *systemAllocator) Type() *Type { return s.t }

func (s *systemAllocator) Destroy() {}

func (s *systemAllocator) Grab(n int) []byte {
	return systemGrab(n)
}

func (s *systemAllocator) Release(p []byte) {}

func (s *systemAllocator) Resize(p []byte, n int) []byte {
	return systemResize(p, n)
}

// systemMaxSize is the largest request passed to the Go heap, below the
// runtime limit on allocation sizes.
const systemMaxSize = 1 << 47

func systemGrab(n int) []byte {
	if uint64(n) > systemMaxSize {
		return nil
	}
	return make([]byte, n)
}

func systemResize(p []byte, n int) []byte {
	if n <= cap(p) {
		return p[:n]
	}
	if uint64(n) > systemMaxSize {
		return nil
	}
	q := make([]byte, n)
	copy(q, p)
	return q
}
