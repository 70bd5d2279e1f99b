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

// TLSKey identifies one goroutine-local variable.
// Values are set per goroutine; a goroutine that never set a value
// sees nil.
type TLSKey struct {
	destructor func(v interface{})
}

// tlsStorage holds all the goroutine-local values of one goroutine.
type tlsStorage map[*TLSKey]interface{}

var (
	tlsMu  sync.Mutex
	tlsMap = make(map[uint64]tlsStorage)
)

// NewTLSKey creates a new goroutine-local variable. destructor (if not
// nil) is called with the non-nil value of a goroutine on ExitTLS.
func NewTLSKey(destructor func(v interface{})) *TLSKey {
	return &TLSKey{destructor: destructor}
}

// Get returns the value of k for the calling goroutine.
func (k *TLSKey) Get() interface{} {
	id := goid.Get()
	tlsMu.Lock()
	defer tlsMu.Unlock()
	if s := tlsMap[id]; s != nil {
		return s[k]
	}
	return nil
}

// Set sets the value of k for the calling goroutine. Setting nil
// removes the value.
func (k *TLSKey) Set(v interface{}) {
	id := goid.Get()
	if id == 0 {
		PANIC("cannot set goroutine local value: unknown goroutine\n")
	}
	tlsMu.Lock()
	defer tlsMu.Unlock()
	s := tlsMap[id]
	if v == nil {
		if s != nil {
			delete(s, k)
			if len(s) == 0 {
				delete(tlsMap, id)
			}
		}
		return
	}
	if s == nil {
		s = make(tlsStorage)
		tlsMap[id] = s
	}
	s[k] = v
}

// detachTLS removes and returns the whole goroutine-local storage of the
// calling goroutine. The goroutine continues with empty storage.
func detachTLS() tlsStorage {
	id := goid.Get()
	tlsMu.Lock()
	s := tlsMap[id]
	delete(tlsMap, id)
	tlsMu.Unlock()
	return s
}

// attachTLS replaces the storage of the calling goroutine with s.
func attachTLS(s tlsStorage) {
	id := goid.Get()
	tlsMu.Lock()
	if len(s) == 0 {
		delete(tlsMap, id)
	} else {
		tlsMap[id] = s
	}
	tlsMu.Unlock()
}

// ExitTLS runs the destructors of all the values set by the calling
// goroutine and forgets them. Goroutines started with Thread call it
// on exit; other goroutines using goroutine-local values should call it
// before returning.
func ExitTLS() {
	s := detachTLS()
	for k, v := range s {
		if k.destructor != nil && v != nil {
			k.destructor(v)
		}
	}
}
