// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package t7

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitTableOrder(t *testing.T) {
	var tbl ExitTable
	var order []string

	exit1 := func() { order = append(order, "exit1") }
	exit2 := func() { order = append(order, "exit2") }
	exit3 := func() { order = append(order, "exit3") }
	exit4 := func() { order = append(order, "exit4") }
	exit5 := func() { order = append(order, "exit5") }

	require.True(t, tbl.Register(exit1, 0))
	require.True(t, tbl.Register(exit2, 0))
	require.True(t, tbl.Register(exit3, 1))
	require.True(t, tbl.Register(exit4, 99999))
	require.True(t, tbl.Register(exit5, 100))
	require.Equal(t, 5, tbl.Len())

	// the same function cannot be registered twice, whatever the priority
	require.False(t, tbl.Register(exit1, 0))
	require.False(t, tbl.Register(exit3, 7))
	require.Equal(t, 5, tbl.Len())

	tbl.Run()
	require.Equal(t, []string{"exit4", "exit5", "exit3", "exit2", "exit1"}, order)

	// only once
	tbl.Run()
	require.Len(t, order, 5)
}

func TestExitTableReentrantRun(t *testing.T) {
	var tbl ExitTable
	calls := 0
	require.True(t, tbl.Register(func() {
		calls++
		tbl.Run()
	}, 0))
	tbl.Run()
	require.Equal(t, 1, calls)
}

// distinct function literals, as handlers are identified by their code
var manyHandlers = [...]func(){
	func() {}, func() {}, func() {}, func() {}, func() {}, func() {}, func() {}, func() {},
	func() {}, func() {}, func() {}, func() {}, func() {}, func() {}, func() {}, func() {},
	func() {}, func() {}, func() {}, func() {}, func() {}, func() {}, func() {}, func() {},
	func() {}, func() {}, func() {}, func() {}, func() {}, func() {}, func() {}, func() {},
	func() {},
}

func TestExitTableFull(t *testing.T) {
	var tbl ExitTable
	for i, f := range manyHandlers[:MaxExitHandlers] {
		require.True(t, tbl.Register(f, i), "handler %d", i)
	}
	require.Equal(t, MaxExitHandlers, tbl.Len())
	// duplicates are still detected on a full table
	require.False(t, tbl.Register(manyHandlers[0], 0))
	require.Panics(t, func() { tbl.Register(manyHandlers[MaxExitHandlers], 0) })
	require.Panics(t, func() { tbl.Register(nil, 0) })
}

type closer struct {
	name   string
	closed *[]string
}

func (c *closer) Close() { *c.closed = append(*c.closed, c.name) }

func TestExitTableMethodValues(t *testing.T) {
	var closed []string
	c1 := &closer{name: "c1", closed: &closed}
	c2 := &closer{name: "c2", closed: &closed}

	// same method, same code pointer
	var tbl ExitTable
	require.True(t, tbl.Register(c1.Close, 0))
	require.False(t, tbl.Register(c2.Close, 0))

	var byID ExitTable
	require.True(t, byID.RegisterID(c1, c1.Close, 0))
	require.True(t, byID.RegisterID(c2, c2.Close, 0))
	require.False(t, byID.RegisterID(c1, c1.Close, 5))
	require.Panics(t, func() { byID.RegisterID(nil, c1.Close, 0) })
	byID.Run()
	require.Equal(t, []string{"c2", "c1"}, closed)
}
