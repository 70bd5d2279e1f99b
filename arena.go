// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"errors"
	"fmt"
	"unsafe"
)

// ArenaDefaultSize is the buffer size used by ArenaType.
const ArenaDefaultSize = 1024 * 1024

// ErrBadBuffer is returned when an arena cannot use the given buffer.
var ErrBadBuffer = errors.New("invalid arena buffer")

// Options encodes various configuration flags for an Arena.
type Options uint32

const (
	ArenaDebug          Options = 1 << iota // fill new and freed memory with patterns
	ArenaChecks                             // verify all the nodes after each operation (expensive)
	ArenaMmap                               // map the owned buffer instead of using the Go heap
	ArenaDumpStatsShort                     // dump status in log, short version
	ArenaDefaultOptions = ArenaDebug
)

// Debug fill patterns.
const (
	FillNew   byte = 0xCC // fresh arena
	FillFreed byte = 0xFF // released memory and destroyed arenas
)

// MUsed contains the arena memory usage statistics.
type MUsed struct {
	Used        uint64 // total size allocated
	RealUsed    uint64 // real size = Used + node headers
	MaxRealUsed uint64
}

// Arena is an allocator drawing from a single fixed buffer.
//
// The buffer is partitioned into nodes, each starting with a one word
// header holding the node size and its allocation status. Allocation
// picks the first large enough free node, starting at the node after
// the last allocation, and splits it. Adjacent free nodes are merged
// lazily, when the allocator looks at their size.
//
// All the operations are serialised by the process wide critical
// section.
type Arena struct {
	t       *Type
	options Options
	buf     []byte
	size    int
	start   int  // offset of the node where the next search begins
	owned   bool // buf allocated by the arena
	mapped  bool // buf is a memory mapping
	used    MUsed
}

// ArenaType is the registry type for arenas with an owned buffer of
// ArenaDefaultSize bytes.
var ArenaType = NewArenaType("arena", ArenaDefaultSize, ArenaDefaultOptions)

// NewArenaType returns an allocator type creating arenas with an owned
// buffer of size bytes.
func NewArenaType(name string, size int, options Options) *Type {
	return &Type{
		Name: name,
		Create: func(t *Type) (Allocator, error) {
			a, err := newOwnedArena(size, options)
			if err != nil {
				return nil, err
			}
			a.t = t
			return a, nil
		},
	}
}

// NewArena creates an arena with an owned buffer of size bytes.
// size must be a positive multiple of 16.
func NewArena(size int, options Options) (*Arena, error) {
	a, err := newOwnedArena(size, options)
	if err != nil {
		return nil, err
	}
	a.t = ArenaType
	return a, nil
}

// NewArenaWithBuffer creates an arena using buf, which stays owned by
// the caller and is never freed by the arena.
// buf must be word aligned and its length a multiple of 16.
func NewArenaWithBuffer(buf []byte, options Options) (*Arena, error) {
	if err := checkBuffer(buf); err != nil {
		return nil, err
	}
	a := &Arena{t: ArenaType}
	a.init(buf, options&^ArenaMmap)
	return a, nil
}

func newOwnedArena(size int, options Options) (*Arena, error) {
	if size <= 0 || size%(2*wordSize) != 0 {
		return nil, fmt.Errorf("%w: size %d is not a positive multiple of %d",
			ErrBadBuffer, size, 2*wordSize)
	}
	var buf []byte
	mapped := false
	if options&ArenaMmap != 0 {
		var err error
		if buf, mapped, err = mapBuffer(size); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadBuffer, err)
		}
	} else {
		buf = make([]byte, size)
	}
	if err := checkBuffer(buf); err != nil {
		if mapped {
			_ = unmapBuffer(buf)
		}
		return nil, err
	}
	a := &Arena{owned: true, mapped: mapped}
	a.init(buf, options)
	return a, nil
}

func checkBuffer(buf []byte) error {
	if len(buf) == 0 || len(buf)%(2*wordSize) != 0 {
		return fmt.Errorf("%w: size %d is not a positive multiple of %d",
			ErrBadBuffer, len(buf), 2*wordSize)
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%wordSize != 0 {
		return fmt.Errorf("%w: buffer %p not aligned to %d bytes",
			ErrBadBuffer, unsafe.SliceData(buf), wordSize)
	}
	return nil
}

// init creates a single free node covering the whole buffer.
func (a *Arena) init(buf []byte, options Options) {
	a.buf = buf[:len(buf):len(buf)]
	a.size = len(buf)
	a.options = options
	if a.Debug() {
		fill(a.buf, FillNew)
	}
	a.store(0, node{size: a.size})
	a.start = 0
}

// Debug returns true if pattern filling is turned on.
func (a *Arena) Debug() bool { return a.options&ArenaDebug != 0 }

// Checks returns true if full consistency checks are turned on.
func (a *Arena) Checks() bool { return a.options&ArenaChecks != 0 }

// Type returns the allocator type a was created from.
func (a *Arena) Type() *Type { return a.t }

// Size returns the size of the arena buffer.
func (a *Arena) Size() int { return a.size }

// Available returns the number of bytes not held by allocated nodes.
func (a *Arena) Available() uint64 {
	EnterCritical()
	defer LeaveCritical()
	return uint64(a.size) - a.used.RealUsed
}

// MUsage returns current memory usage values.
func (a *Arena) MUsage() MUsed {
	EnterCritical()
	defer LeaveCritical()
	return a.used
}

// Owns returns whether or not p lies inside the arena buffer.
func (a *Arena) Owns(p []byte) bool {
	if cap(p) == 0 || a.buf == nil {
		return false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.buf)))
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(p)))
	return addr >= base+wordSize && addr < base+uintptr(a.size)
}

// addUsed accounts for a newly allocated node.
func (a *Arena) addUsed(nd node) {
	a.used.Used += uint64(nd.usable())
	a.used.RealUsed += uint64(nd.size)
	if a.used.MaxRealUsed < a.used.RealUsed {
		a.used.MaxRealUsed = a.used.RealUsed
	}
}

// subUsed accounts for a node that is no longer allocated.
func (a *Arena) subUsed(nd node) {
	a.used.Used -= uint64(nd.usable())
	a.used.RealUsed -= uint64(nd.size)
}

// nodeOf returns the offset of the allocated node owning the region p.
// Passing a region not returned by this arena is fatal.
func (a *Arena) nodeOf(p []byte, op string) int {
	if !a.Owns(p) {
		PANIC("BUG: %s called with pointer %p out of arena %p (size %d)\n",
			op, unsafe.SliceData(p), unsafe.SliceData(a.buf), a.size)
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.buf)))
	off := int(uintptr(unsafe.Pointer(unsafe.SliceData(p)))-base) - wordSize
	if off%wordSize != 0 || (a.Checks() && !a.isNode(off)) {
		PANIC("BUG: %s called with pointer %p not at the start of a region\n",
			op, unsafe.SliceData(p))
	}
	nd := a.load(off)
	if nd.size < wordSize || off+nd.size > a.size {
		a.dumpStatus()
		PANIC("BUG: arena node %d corrupted (size %d)\n", off, nd.size)
	}
	if !nd.allocated {
		PANIC("BUG: %s called with already freed pointer %p\n",
			op, unsafe.SliceData(p))
	}
	return off
}

// Grab allocates n bytes from the arena and returns them, or nil if no
// free node is large enough.
func (a *Arena) Grab(n int) []byte {
	if n <= 0 {
		PANIC("BUG: Grab called with invalid size %d\n", n)
	}
	EnterCritical()
	defer LeaveCritical()
	return a.grab(n)
}

func (a *Arena) grab(n int) []byte {
	if a.buf == nil {
		PANIC("BUG: Grab called on destroyed arena\n")
	}
	// checked before rounding, which would overflow for huge n
	if n > a.size-wordSize {
		return nil
	}
	want := roundUp(n)
	// Walk the circular node list, looking at no more than two times the
	// buffer size. Merging nodes during the walk moves node boundaries,
	// counting bytes instead of nodes keeps the walk finite while
	// guaranteeing every free run is seen from its first node.
	off := a.start
	for scanned := 0; scanned < 2*a.size; {
		nd := a.load(off)
		if !nd.allocated {
			nd.size = a.coalesce(off)
			if want <= nd.size {
				p := a.allocateNode(off, want, n)
				a.check("grab")
				return p
			}
		}
		scanned += nd.size
		off = a.successor(off)
	}
	if DBGon() {
		DBG("arena %p: out of memory for %d bytes (available %d)\n",
			a, n, uint64(a.size)-a.used.RealUsed)
	}
	return nil
}

// Release returns p to the arena. Releasing a region twice, or one not
// returned by this arena, is fatal.
func (a *Arena) Release(p []byte) {
	EnterCritical()
	defer LeaveCritical()
	off := a.nodeOf(p, "Release")
	a.release(off)
	a.check("release")
}

func (a *Arena) release(off int) {
	nd := a.load(off)
	a.subUsed(nd)
	nd.allocated = false
	a.store(off, nd)
	if a.Debug() {
		fill(a.buf[off+wordSize:off+nd.size], FillFreed)
	}
	// prefer reusing freshly freed memory
	if off < a.start {
		a.start = off
	}
}

// Resize grows or shrinks the region p to n bytes. The region is
// resized in place when the node plus the free nodes after it are large
// enough, otherwise it is moved and the old region is released.
// If moving fails nil is returned and p stays valid.
func (a *Arena) Resize(p []byte, n int) []byte {
	if n <= 0 {
		PANIC("BUG: Resize called with invalid size %d\n", n)
	}
	EnterCritical()
	defer LeaveCritical()
	off := a.nodeOf(p, "Resize")
	nd := a.load(off)
	if n > a.size-wordSize {
		return nil
	}
	want := roundUp(n)

	// size of the node plus all the free nodes following it
	available := nd.size
	for next := off + available; next != a.size; next = off + available {
		m := a.load(next)
		if m.allocated {
			break
		}
		available += m.size
	}
	if want <= available {
		a.subUsed(nd)
		a.store(off, node{size: available})
		q := a.allocateNode(off, want, n)
		a.check("resize")
		return q
	}

	// relocate
	q := a.grab(n)
	if q == nil {
		return nil
	}
	copy(q, a.buf[off+wordSize:off+nd.size])
	a.release(off)
	a.check("resize")
	return q
}

// Destroy releases the arena buffer if it is owned by the arena.
// The arena cannot be used afterwards.
func (a *Arena) Destroy() {
	EnterCritical()
	defer LeaveCritical()
	if a.buf == nil {
		return
	}
	if a.Debug() {
		fill(a.buf, FillFreed)
	}
	if a.mapped {
		if err := unmapBuffer(a.buf); err != nil {
			ERR("arena %p: unmap failed: %v\n", a, err)
		}
	}
	a.buf = nil
	a.size = 0
	a.start = 0
	a.used = MUsed{}
}

// isNode returns true if off is the offset of a node.
func (a *Arena) isNode(off int) bool {
	for o := 0; o < a.size; o += a.load(o).size {
		if o == off {
			return true
		}
		if o > off || a.load(o).size < wordSize {
			return false
		}
	}
	return false
}

// check verifies the whole node partition if ArenaChecks is set.
func (a *Arena) check(op string) {
	if !a.Checks() {
		return
	}
	var realUsed uint64
	startOk := false
	off := 0
	for off < a.size {
		nd := a.load(off)
		if nd.size < wordSize || nd.size%wordSize != 0 || off+nd.size > a.size {
			a.dumpStatus()
			PANIC("BUG: after %s: arena node %d has invalid size %d\n",
				op, off, nd.size)
		}
		if off == a.start {
			startOk = true
		}
		if nd.allocated {
			realUsed += uint64(nd.size)
		}
		off += nd.size
	}
	if off != a.size || !startOk || realUsed != a.used.RealUsed {
		a.dumpStatus()
		PANIC("BUG: after %s: arena inconsistent (end %d/%d, start %d,"+
			" used %d/%d)\n", op, off, a.size, a.start,
			realUsed, a.used.RealUsed)
	}
}
