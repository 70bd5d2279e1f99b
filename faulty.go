// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

// FaultyType is an allocator using the Go heap that fails whenever
// SimulateFailure says so. Freeing never fails.
var FaultyType = &Type{
	Name:   "faulty",
	Create: func(t *Type) (Allocator, error) { return &faultyAllocator{t: t}, nil },
}

// TestFixture selects the faulty allocator. Code allocating through the
// current fixture and run by RepeatTest then sees every allocation fail
// in turn.
var TestFixture = NewFixture(FaultyType)

type faultyAllocator struct {
	t *Type
}

func (f *faultyAllocator) Type() *Type { return f.t }

func (f *faultyAllocator) Destroy() {}

func (f *faultyAllocator) Grab(n int) []byte {
	if SimulateFailure() {
		return nil
	}
	return systemGrab(n)
}

func (f *faultyAllocator) Release(p []byte) {}

func (f *faultyAllocator) Resize(p []byte, n int) []byte {
	if SimulateFailure() {
		return nil
	}
	return systemResize(p, n)
}
