// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"runtime"
	"sync"
)

// Scheduler decides how threads are executed.
type Scheduler interface {
	// Go runs fn as a new thread of execution.
	Go(fn func())
	// Yield lets other threads run.
	Yield()
	// Threaded returns false if Go runs fn synchronously.
	Threaded() bool
}

type goroutineScheduler struct{}

func (goroutineScheduler) Go(fn func()) { go fn() }

func (goroutineScheduler) Yield() { runtime.Gosched() }

func (goroutineScheduler) Threaded() bool { return true }

// inlineScheduler runs threads on the calling goroutine, as if the thread
// ran to completion right after being started. The thread sees its own
// empty goroutine local storage, like a new goroutine would.
type inlineScheduler struct{}

func (inlineScheduler) Go(fn func()) {
	saved := detachTLS()
	defer attachTLS(saved)
	fn()
}

func (inlineScheduler) Yield() {}

func (inlineScheduler) Threaded() bool { return false }

var (
	// Goroutines runs every thread on its own goroutine.
	Goroutines Scheduler = goroutineScheduler{}
	// Inline runs every thread synchronously, at Start.
	Inline Scheduler = inlineScheduler{}
)

var (
	schedMu sync.Mutex
	sched   = Goroutines
)

// SetScheduler selects how threads started from now on are run.
func SetScheduler(s Scheduler) {
	if s == nil {
		PANIC("BUG: SetScheduler called with nil scheduler\n")
	}
	schedMu.Lock()
	sched = s
	schedMu.Unlock()
}

func currentScheduler() Scheduler {
	schedMu.Lock()
	defer schedMu.Unlock()
	return sched
}

// HasThreads returns true if threads run concurrently.
func HasThreads() bool {
	return currentScheduler().Threaded()
}

// Yield lets other threads run.
func Yield() {
	currentScheduler().Yield()
}

// Thread is a thread of execution that inherits the fixture of the
// goroutine starting it.
type Thread struct {
	fn      func(t *Thread) bool
	fixture Fixture // copy of the creator's fixture
	done    chan struct{}
	started bool
	result  bool
}

// NewThread returns a thread that will run fn once started.
func NewThread(fn func(t *Thread) bool) *Thread {
	if fn == nil {
		PANIC("BUG: NewThread called with nil function\n")
	}
	return &Thread{fn: fn}
}

// Start runs the thread. It returns false if the thread was already
// started.
func (t *Thread) Start() bool {
	if t.started {
		return false
	}
	CopyFixture(&t.fixture, CurrentFixture())
	t.done = make(chan struct{})
	t.started = true
	currentScheduler().Go(t.run)
	return true
}

func (t *Thread) run() {
	defer close(t.done)
	defer ExitTLS()
	SetFixture(&t.fixture)
	t.result = t.fn(t)
}

// Join waits for the thread to finish and returns its result.
// Joining a thread that was never started returns false.
func (t *Thread) Join() bool {
	if !t.started {
		return false
	}
	<-t.done
	return t.result
}

// Fixture returns the fixture the thread runs with.
func (t *Thread) Fixture() *Fixture {
	return &t.fixture
}
