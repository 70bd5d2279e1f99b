// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"container/list"
	"errors"
	"fmt"
)

// ErrCreate is returned (wrapped) when an allocator cannot be constructed.
var ErrCreate = errors.New("cannot create allocator")

// registry priority in the exit handler table. Allocators are torn down
// after the handlers registered with a higher priority.
const registryExitPriority = 20

// registry keeps the singleton allocators in construction order.
// Protected by the critical section.
var registry struct {
	initialized    bool
	exitRegistered bool
	lst            list.List
	elems          map[Allocator]*list.Element
}

// GetAllocator returns the process wide instance of allocator type t,
// creating it on the first request.
func GetAllocator(t *Type) (Allocator, error) {
	EnterCritical()
	defer LeaveCritical()

	if !registry.initialized {
		if !registry.exitRegistered {
			if !ExitHandler(ShutdownAllocators, registryExitPriority) {
				return nil, fmt.Errorf("%w %q: cannot install exit handler",
					ErrCreate, typeName(t))
			}
			registry.exitRegistered = true
		}
		registry.lst.Init()
		registry.elems = make(map[Allocator]*list.Element)
		registry.initialized = true
	}
	for e := registry.lst.Front(); e != nil; e = e.Next() {
		if a := e.Value.(Allocator); a.Type() == t {
			return a, nil
		}
	}
	a, err := NewAllocator(t)
	if err != nil {
		return nil, err
	}
	registry.elems[a] = registry.lst.PushBack(a)
	DBG("registered allocator %q (%d live)\n", t.Name, registry.lst.Len())
	return a, nil
}

// NewAllocator creates a new instance of allocator type t that is owned
// by the caller and must be released with DeleteAllocator.
func NewAllocator(t *Type) (Allocator, error) {
	if t == nil || t.Create == nil {
		PANIC("BUG: invalid allocator type %q\n", typeName(t))
	}
	a, err := t.Create(t)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrCreate, t.Name, err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w %q", ErrCreate, t.Name)
	}
	if a.Type() != t {
		PANIC("BUG: allocator %q created with foreign type %q\n",
			t.Name, typeName(a.Type()))
	}
	return a, nil
}

// DeleteAllocator destroys a. Deleting nil does nothing.
// If a is a registered singleton it is removed from the registry first.
func DeleteAllocator(a Allocator) {
	if a == nil {
		return
	}
	EnterCritical()
	if registry.initialized {
		if e, ok := registry.elems[a]; ok {
			registry.lst.Remove(e)
			delete(registry.elems, a)
		}
	}
	LeaveCritical()
	a.Destroy()
}

// ShutdownAllocators destroys all the registered allocators, in reverse
// construction order, since an allocator may depend on the ones created
// before it. It runs automatically as an exit handler; no other goroutine
// may use the allocators while it runs.
func ShutdownAllocators() {
	EnterCritical()
	defer LeaveCritical()
	if !registry.initialized {
		return
	}
	for e := registry.lst.Back(); e != nil; e = registry.lst.Back() {
		DeleteAllocator(e.Value.(Allocator))
	}
	if registry.lst.Len() != 0 || len(registry.elems) != 0 {
		PANIC("BUG: allocator registry not empty after shutdown\n")
	}
	registry.initialized = false
}

func typeName(t *Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}
