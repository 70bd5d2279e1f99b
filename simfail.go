// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

// MaxSimulatedCalls is the maximum number of SimulateFailure calls in one
// execution of a test function run by RepeatTest.
const MaxSimulatedCalls = 1024

// trialFrame is the failure simulation state of one RepeatTest run.
type trialFrame struct {
	triggered bool // a failure was simulated in this execution
	count     int  // SimulateFailure calls in this execution
	simulate  [MaxSimulatedCalls / 64]uint64
}

func (f *trialFrame) bit(i int) bool {
	return f.simulate[i/64]&(uint64(1)<<(i%64)) != 0
}

func (f *trialFrame) setBit(i int, v bool) {
	if v {
		f.simulate[i/64] |= uint64(1) << (i % 64)
	} else {
		f.simulate[i/64] &^= uint64(1) << (i % 64)
	}
}

var frameKey = NewTLSKey(nil)

func activeFrame() *trialFrame {
	f, _ := frameKey.Get().(*trialFrame)
	return f
}

func setActiveFrame(f *trialFrame) {
	if f == nil {
		frameKey.Set(nil)
		return
	}
	frameKey.Set(f)
}

// SimulateFailure returns true if the caller should behave as if the
// resource it is about to acquire were not available.
// Outside of RepeatTest it always returns false.
func SimulateFailure() bool {
	f := activeFrame()
	if f == nil {
		return false
	}
	if f.count >= MaxSimulatedCalls {
		PANIC("too many allocation requests at SimulateFailure (max %d)\n",
			MaxSimulatedCalls)
	}
	i := f.count
	f.count++
	if f.bit(i) {
		f.triggered = true
		return true
	}
	return false
}

// RepeatTest runs test until an execution completes without a simulated
// failure and returns the result of that last execution.
//
// The first execution fails the first SimulateFailure call. Each
// following execution lets one more call succeed: the last call that
// failed now succeeds, and every later call fails by default. So each
// allocation site of test is made to fail once, one site at a time.
// Combinations of several failing sites are not explored.
//
// RepeatTest may be nested; the calling goroutine's previous simulation
// state is restored on return.
func RepeatTest(test func() bool) bool {
	ok, _ := RepeatTestRuns(test)
	return ok
}

// RepeatTestRuns is like RepeatTest but also returns the number of times
// test was executed.
func RepeatTestRuns(test func() bool) (ok bool, runs int) {
	frame := &trialFrame{}
	for i := range frame.simulate {
		frame.simulate[i] = ^uint64(0)
	}
	old := activeFrame()
	setActiveFrame(frame)
	defer setActiveFrame(old)

	for {
		frame.triggered = false
		frame.count = 0

		ok = test()
		runs++
		if !frame.triggered {
			break
		}
		// find the last call that failed; triggered guarantees there is
		// one among the calls made in this execution
		i := frame.count - 1
		for !frame.bit(i) {
			i--
		}
		// let it succeed next time, and fail every call after it
		frame.setBit(i, false)
		for i++; i < MaxSimulatedCalls; i++ {
			frame.setBit(i, true)
		}
	}
	if DBGon() {
		DBG("RepeatTest: %d runs, result %v\n", runs, ok)
	}
	return ok, runs
}
