// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repeatScenarios checks the run counts of RepeatTest. It uses assert
// since it also runs on goroutines other than the test one.
func repeatScenarios(t *testing.T) bool {
	counter := 0
	always := func() bool {
		counter++
		return true
	}
	never := func() bool {
		counter++
		return false
	}
	second := func() bool {
		counter++
		return !SimulateFailure()
	}
	fourth := func() bool {
		counter++
		return !SimulateFailure() && !SimulateFailure() && !SimulateFailure()
	}

	ok := true
	for _, tc := range []struct {
		name string
		fn   func() bool
		ok   bool
		runs int
	}{
		{"always", always, true, 1},
		{"second", second, true, 2},
		{"fourth", fourth, true, 4},
		{"never", never, false, 1},
	} {
		counter = 0
		res, runs := RepeatTestRuns(tc.fn)
		ok = assert.Equal(t, tc.ok, res, tc.name) && ok
		ok = assert.Equal(t, tc.runs, counter, tc.name) && ok
		ok = assert.Equal(t, tc.runs, runs, tc.name) && ok
	}
	return ok
}

func TestRepeatTest(t *testing.T) {
	require.True(t, repeatScenarios(t))
}

func TestRepeatTestNested(t *testing.T) {
	ok, runs := RepeatTestRuns(func() bool { return repeatScenarios(t) })
	require.True(t, ok)
	require.Equal(t, 1, runs)
	require.Nil(t, activeFrame())
}

func TestRepeatTestInThread(t *testing.T) {
	for _, s := range []Scheduler{Goroutines, Inline} {
		t.Run(fmt.Sprintf("threaded=%v", s.Threaded()), func(t *testing.T) {
			SetScheduler(s)
			defer SetScheduler(Goroutines)

			ok := RepeatTest(func() bool {
				th := NewThread(func(*Thread) bool {
					return repeatScenarios(t) &&
						RepeatTest(func() bool { return repeatScenarios(t) })
				})
				if !th.Start() {
					return false
				}
				return th.Join()
			})
			require.True(t, ok)
		})
	}
}

func TestRepeatTestOuterFrameRestored(t *testing.T) {
	var inner, after []bool
	ok := RepeatTest(func() bool {
		a := SimulateFailure()
		RepeatTest(func() bool {
			inner = append(inner, SimulateFailure())
			return true
		})
		b := SimulateFailure()
		after = append(after, a, b)
		return !a && !b
	})
	require.True(t, ok)
	// the outer calls are counted across the nested runs
	require.Equal(t, []bool{
		true, true,
		true, false,
		false, true,
		false, false,
	}, after)
	require.Equal(t, []bool{
		true, false,
		true, false,
		true, false,
		true, false,
	}, inner)
}

func TestSimulateFailureOutsideRepeatTest(t *testing.T) {
	for i := 0; i < 2*MaxSimulatedCalls; i++ {
		require.False(t, SimulateFailure())
	}
}

func TestSimulateFailureCeiling(t *testing.T) {
	require.Panics(t, func() {
		RepeatTest(func() bool {
			for i := 0; i <= MaxSimulatedCalls; i++ {
				SimulateFailure()
			}
			return true
		})
	})
	require.Nil(t, activeFrame())

	// exactly MaxSimulatedCalls calls are fine
	ok, runs := RepeatTestRuns(func() bool {
		for i := 0; i < MaxSimulatedCalls; i++ {
			if SimulateFailure() {
				return false
			}
		}
		return true
	})
	require.True(t, ok)
	require.Equal(t, MaxSimulatedCalls+1, runs)
}

func ExampleRepeatTest() {
	try := func() bool {
		if p := AllocateMemory(1000); p != nil {
			FreeMemory(p)
			fmt.Println("large")
			return true
		}
		if p := AllocateMemory(10); p != nil {
			FreeMemory(p)
			fmt.Println("small")
			return true
		}
		fmt.Println("none")
		return false
	}
	SetFixture(TestFixture)
	defer SetFixture(DefaultFixture)
	fmt.Println(RepeatTest(try))
	// Output:
	// none
	// small
	// large
	// true
}
