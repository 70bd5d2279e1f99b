// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"encoding/binary"
)

// wordSize is the size of a node header and the alignment of every node
// (and so of every returned memory region).
const wordSize = 8

// node is the decoded header stored in the first word of each node.
// On disk (in the buffer) size and allocated share one word: the size is
// always a multiple of wordSize, so the low bit holds the allocated flag.
type node struct {
	size      int // total node size, header included
	allocated bool
}

// usable returns the number of payload bytes in the node.
func (n node) usable() int { return n.size - wordSize }

// load reads the header of the node at offset off.
func (a *Arena) load(off int) node {
	w := binary.NativeEndian.Uint64(a.buf[off : off+wordSize])
	return node{size: int(w &^ 1), allocated: w&1 != 0}
}

// store writes the header of the node at offset off.
func (a *Arena) store(off int, n node) {
	w := uint64(n.size)
	if n.allocated {
		w |= 1
	}
	binary.NativeEndian.PutUint64(a.buf[off:off+wordSize], w)
}

// payload returns the memory region of the node at off, with length n
// and capacity equal to the usable node size.
func (a *Arena) payload(off int, nd node, n int) []byte {
	return a.buf[off+wordSize : off+wordSize+n : off+nd.size]
}

// successor returns the offset of the node following off, wrapping
// around to the first node at the end of the buffer.
func (a *Arena) successor(off int) int {
	next := off + a.load(off).size
	if next == a.size {
		return 0
	}
	return next
}

// coalesce returns the size of the node at off. A free node is first
// merged with all the free nodes immediately following it, so that the
// returned size is the size of the whole free run. Free nodes are never
// merged eagerly on release, only here.
func (a *Arena) coalesce(off int) int {
	nd := a.load(off)
	if nd.allocated {
		return nd.size
	}
	size := nd.size
	next := off + size
	for next != a.size {
		m := a.load(next)
		if m.allocated {
			break
		}
		size += m.size
		next = off + size
	}
	if size != nd.size {
		a.store(off, node{size: size})
		// start must stay on a node boundary
		if off < a.start && a.start < next {
			a.start = off
		}
	}
	return size
}

// allocateNode marks the free node at off as allocated, splitting off
// the excess beyond newSize as a new free node. The new free node may
// hold only a header: it will be merged with its successors later.
// It returns the payload of the allocated node (length n).
func (a *Arena) allocateNode(off, newSize, n int) []byte {
	nd := a.load(off)
	if nd.allocated || newSize > nd.size || newSize <= wordSize {
		a.dumpStatus()
		PANIC("BUG: cannot allocate %d bytes from node %d (size %d,"+
			" allocated %v)\n", newSize, off, nd.size, nd.allocated)
	}
	if newSize < nd.size {
		a.store(off+newSize, node{size: nd.size - newSize})
		nd.size = newSize
	}
	nd.allocated = true
	a.store(off, nd)
	a.addUsed(nd)
	// the next search starts here, which also keeps start valid after
	// a merge
	a.start = off
	return a.payload(off, nd, n)
}

// roundUp converts a request for n bytes into a node size: room for the
// header plus n rounded up to wordSize, and at least two words so that
// the node can be split later.
func roundUp(n int) int {
	if n < wordSize {
		return 2 * wordSize
	}
	return wordSize + (n+wordSize-1)&^(wordSize-1)
}
