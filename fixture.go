// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

// Fixture selects the execution environment, i.e. the allocator used by
// default. Each goroutine has its own current fixture; goroutines
// started with Thread inherit a copy of the fixture of their creator.
//
// A fixture must stay valid while it is current.
type Fixture struct {
	GetAllocator func(f *Fixture) Allocator
}

// DefaultFixture allocates from the Go heap. It is the current fixture
// of every goroutine that did not set another one.
var DefaultFixture = &Fixture{
	GetAllocator: func(*Fixture) Allocator { return mustGetAllocator(SystemType) },
}

var fixtureKey = NewTLSKey(nil)

// NewFixture returns a fixture resolving to the process wide instance of
// allocator type t.
func NewFixture(t *Type) *Fixture {
	return &Fixture{
		GetAllocator: func(*Fixture) Allocator { return mustGetAllocator(t) },
	}
}

// Allocator returns the allocator selected by f.
func (f *Fixture) Allocator() Allocator {
	return f.GetAllocator(f)
}

// CurrentFixture returns the fixture of the calling goroutine.
func CurrentFixture() *Fixture {
	if f, ok := fixtureKey.Get().(*Fixture); ok && f != nil {
		return f
	}
	return DefaultFixture
}

// SetFixture makes f the current fixture of the calling goroutine and of
// the threads it starts from now on. Goroutines already running are not
// affected.
func SetFixture(f *Fixture) {
	if f == nil || f.GetAllocator == nil {
		PANIC("BUG: SetFixture called with invalid fixture\n")
	}
	if f == DefaultFixture {
		// the default needs no slot
		fixtureKey.Set(nil)
		return
	}
	fixtureKey.Set(f)
}

// CopyFixture copies src into dst.
func CopyFixture(dst, src *Fixture) {
	if dst == nil || src == nil || src.GetAllocator == nil {
		PANIC("BUG: CopyFixture called with invalid fixture\n")
	}
	dst.GetAllocator = src.GetAllocator
}

// DefaultAllocator returns the allocator of the current fixture.
func DefaultAllocator() Allocator {
	return CurrentFixture().Allocator()
}

// mustGetAllocator returns the singleton of type t. A fixture has no way
// to report errors, so failing to create it is fatal.
func mustGetAllocator(t *Type) Allocator {
	a, err := GetAllocator(t)
	if err != nil {
		PANIC("cannot get allocator %q: %v\n", typeName(t), err)
	}
	return a
}
