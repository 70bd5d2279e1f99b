// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intuitivelabs/mallocs/t7/internal/goid"
)

func TestDefaultFixture(t *testing.T) {
	require.Same(t, DefaultFixture, CurrentFixture())
	require.Same(t, SystemType, DefaultAllocator().Type())
}

func TestSetFixture(t *testing.T) {
	SetFixture(TestFixture)
	defer SetFixture(DefaultFixture)
	require.Same(t, TestFixture, CurrentFixture())
	require.Same(t, FaultyType, DefaultAllocator().Type())

	// other goroutines keep their own fixture
	typ := make(chan *Type)
	go func() { typ <- DefaultAllocator().Type() }()
	require.Same(t, SystemType, <-typ)

	require.Panics(t, func() { SetFixture(nil) })
	require.Panics(t, func() { SetFixture(&Fixture{}) })
	require.Same(t, TestFixture, CurrentFixture())
}

func TestSetDefaultFixtureFreesSlot(t *testing.T) {
	hasStorage := make(chan [2]bool)
	go func() {
		var res [2]bool
		id := goid.Get()
		SetFixture(TestFixture)
		tlsMu.Lock()
		_, res[0] = tlsMap[id]
		tlsMu.Unlock()
		SetFixture(DefaultFixture)
		tlsMu.Lock()
		_, res[1] = tlsMap[id]
		tlsMu.Unlock()
		hasStorage <- res
	}()
	require.Equal(t, [2]bool{true, false}, <-hasStorage)
	require.Nil(t, fixtureKey.Get())
}

func TestCopyFixture(t *testing.T) {
	var f Fixture
	CopyFixture(&f, TestFixture)
	require.Same(t, FaultyType, f.Allocator().Type())
	require.Panics(t, func() { CopyFixture(nil, TestFixture) })
	require.Panics(t, func() { CopyFixture(&f, &Fixture{}) })
}

func TestArenaFixture(t *testing.T) {
	typ := NewArenaType("fixture-arena", 4096, ArenaChecks)
	f := NewFixture(typ)
	SetFixture(f)
	defer func() {
		SetFixture(DefaultFixture)
		a, err := GetAllocator(typ)
		require.NoError(t, err)
		DeleteAllocator(a)
	}()

	a, ok := DefaultAllocator().(*Arena)
	require.True(t, ok)
	p := AllocateMemory(100)
	require.True(t, a.Owns(p))
	p = ResizeMemory(p, 1000)
	require.True(t, a.Owns(p))
	require.Equal(t, uint64(1008), a.MUsage().RealUsed)
	FreeMemory(p)
	require.Zero(t, a.MUsage().RealUsed)
}

func TestThreadInheritsFixture(t *testing.T) {
	for _, s := range []Scheduler{Goroutines, Inline} {
		SetScheduler(s)
		SetFixture(TestFixture)

		release := make(chan struct{})
		th := NewThread(func(th *Thread) bool {
			if s.Threaded() {
				<-release
			}
			inherited := DefaultAllocator().Type() == FaultyType
			// the parent does not see this
			SetFixture(DefaultFixture)
			return inherited && CurrentFixture() == DefaultFixture
		})
		require.True(t, th.Start())
		require.False(t, th.Start())
		// changing the parent fixture after start does not affect the thread
		SetFixture(DefaultFixture)
		close(release)
		require.True(t, th.Join(), "threaded=%v", s.Threaded())
		require.Same(t, FaultyType, th.Fixture().Allocator().Type())
		require.Same(t, DefaultFixture, CurrentFixture())

		SetFixture(TestFixture)
		th = NewThread(func(*Thread) bool {
			SetFixture(DefaultFixture)
			return true
		})
		th.Start()
		require.True(t, th.Join())
		require.Same(t, TestFixture, CurrentFixture())
		SetFixture(DefaultFixture)
	}
	SetScheduler(Goroutines)
}

func TestThreadNotStarted(t *testing.T) {
	th := NewThread(func(*Thread) bool { return true })
	require.False(t, th.Join())
	require.Panics(t, func() { NewThread(nil) })
	require.Panics(t, func() { SetScheduler(nil) })
	require.True(t, HasThreads())
	Yield()
}
