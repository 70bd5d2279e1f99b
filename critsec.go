// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"sync"

	"github.com/intuitivelabs/mallocs/t7/internal/goid"
)

// RMutex is a reentrant mutual exclusion lock: the goroutine holding it
// may lock it again without deadlocking. Each Lock must be paired with
// an Unlock from the same goroutine.
// The zero value is an unlocked mutex.
type RMutex struct {
	mu    sync.Mutex
	cond  sync.Cond
	owner uint64 // goroutine id of the holder, 0 if unlocked
	depth int
}

// Lock acquires m, blocking until it is available or returning at once
// if the calling goroutine already holds it.
func (m *RMutex) Lock() {
	id := goid.Get()
	if id == 0 {
		PANIC("cannot identify calling goroutine, lock unusable\n")
	}
	m.mu.Lock()
	if m.cond.L == nil {
		m.cond.L = &m.mu
	}
	for m.depth > 0 && m.owner != id {
		m.cond.Wait()
	}
	m.owner = id
	m.depth++
	m.mu.Unlock()
}

// Unlock releases one level of m. Unlocking a mutex not held by the
// calling goroutine is a fatal error.
func (m *RMutex) Unlock() {
	id := goid.Get()
	m.mu.Lock()
	if m.depth == 0 || m.owner != id {
		owner, depth := m.owner, m.depth
		m.mu.Unlock()
		PANIC("BUG: unlock of mutex held by %d (depth %d) from %d\n",
			owner, depth, id)
		return
	}
	m.depth--
	if m.depth == 0 {
		m.owner = 0
		if m.cond.L != nil {
			m.cond.Signal()
		}
	}
	m.mu.Unlock()
}

// Held returns true if the calling goroutine holds m.
func (m *RMutex) Held() bool {
	id := goid.Get()
	m.mu.Lock()
	held := m.depth > 0 && m.owner == id
	m.mu.Unlock()
	return held
}

// critical protects the allocator registry and the arena node lists.
var critical RMutex

// EnterCritical enters the process-wide critical section.
// It may be nested by the same goroutine.
func EnterCritical() {
	critical.Lock()
}

// LeaveCritical leaves the process-wide critical section.
func LeaveCritical() {
	critical.Unlock()
}
