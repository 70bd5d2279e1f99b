// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRMutexReentrant(t *testing.T) {
	var m RMutex
	require.False(t, m.Held())
	m.Lock()
	m.Lock()
	m.Lock()
	require.True(t, m.Held())
	m.Unlock()
	m.Unlock()
	require.True(t, m.Held())
	m.Unlock()
	require.False(t, m.Held())
}

func TestRMutexExclusion(t *testing.T) {
	var m RMutex
	m.Lock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		m.Lock()
		close(acquired)
		m.Unlock()
		m.Unlock()
	}()
	select {
	case <-acquired:
		t.Fatal("mutex acquired by a second goroutine")
	case <-time.After(50 * time.Millisecond):
	}
	m.Unlock()
	<-acquired
}

func TestRMutexCounter(t *testing.T) {
	var m RMutex
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Lock()
				m.Lock()
				counter++
				m.Unlock()
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 8000, counter)
}

func TestRMutexUnlockNotHeld(t *testing.T) {
	var m RMutex
	require.Panics(t, func() { m.Unlock() })

	m.Lock()
	defer m.Unlock()
	panicked := make(chan bool)
	go func() {
		defer func() { panicked <- recover() != nil }()
		m.Unlock()
	}()
	require.True(t, <-panicked)
	require.True(t, m.Held())
}

func TestCriticalSection(t *testing.T) {
	EnterCritical()
	EnterCritical()
	require.True(t, critical.Held())
	LeaveCritical()
	LeaveCritical()
	require.False(t, critical.Held())
}
