// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"os"
	"reflect"
	"sync"
	"sync/atomic"
)

// MaxExitHandlers is the capacity of an exit handler table.
const MaxExitHandlers = 32

type exitHandler struct {
	f        func()
	id       interface{} // identifies the handler in the table
	priority int
}

// codePtr is the default handler identity.
type codePtr uintptr

// ExitTable keeps functions to be called once at program exit, ordered
// from the highest to the lowest priority. Handlers with the same
// priority run in reverse registration order.
// The zero value is an empty table.
type ExitTable struct {
	mu       sync.Mutex
	handlers [MaxExitHandlers]exitHandler
	count    int
	ran      atomic.Bool
}

// Register adds f to the table. It returns false if f is already
// registered. Registering more than MaxExitHandlers functions is fatal.
// Functions are identified by their code pointer, so two closures
// created from the same function literal count as the same handler, and
// so do method values of the same method on different receivers
// (a1.Close and a2.Close). Use RegisterID for those.
func (t *ExitTable) Register(f func(), priority int) bool {
	if f == nil {
		PANIC("BUG: nil exit handler\n")
	}
	return t.RegisterID(codePtr(reflect.ValueOf(f).Pointer()), f, priority)
}

// RegisterID is like Register but identifies f by id, which must be
// comparable. Typically id is the receiver of a method value.
func (t *ExitTable) RegisterID(id interface{}, f func(), priority int) bool {
	if f == nil || id == nil {
		PANIC("BUG: nil exit handler or handler id\n")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < t.count; i++ {
		if t.handlers[i].id == id {
			return false
		}
	}
	if t.count >= MaxExitHandlers {
		PANIC("too many exit functions (max %d)\n", MaxExitHandlers)
		return false
	}
	// keep the table sorted from highest to lowest priority; a new
	// handler goes in front of the ones with the same priority
	i := 0
	for i < t.count && priority < t.handlers[i].priority {
		i++
	}
	copy(t.handlers[i+1:t.count+1], t.handlers[i:t.count])
	t.handlers[i] = exitHandler{f: f, id: id, priority: priority}
	t.count++
	return true
}

// Len returns the number of registered handlers.
func (t *ExitTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Run invokes the registered handlers. Only the first call has an
// effect, including calls made from within a handler.
// No other goroutine should be running when Run is called.
func (t *ExitTable) Run() {
	if t.ran.Swap(true) {
		return
	}
	t.mu.Lock()
	handlers := make([]exitHandler, t.count)
	copy(handlers, t.handlers[:t.count])
	t.mu.Unlock()
	for _, h := range handlers {
		h.f()
	}
}

// exitTable is the process wide exit handler table.
var exitTable ExitTable

// ExitHandler registers f to be called at program exit with the given
// priority. See ExitTable.Register.
func ExitHandler(f func(), priority int) bool {
	return exitTable.Register(f, priority)
}

// RunExitHandlers invokes the process wide exit handlers.
// Go has no atexit hook: main should defer RunExitHandlers or leave
// through ExitApplication.
func RunExitHandlers() {
	exitTable.Run()
}

// ExitApplication runs the process wide exit handlers and terminates
// the program with the given status.
func ExitApplication(status int) {
	exitTable.Run()
	os.Exit(status)
}
