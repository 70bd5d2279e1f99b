// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intuitivelabs/mallocs/t7"
)

func TestArenaTraceReleasesEverything(t *testing.T) {
	for _, size := range []int{minArenaSize, 512, 1024} {
		a, err := t7.NewArena(size, t7.ArenaChecks|t7.ArenaDebug)
		require.NoError(t, err)

		require.NoError(t, arenaTrace(a, 100), "size %d", size)
		require.Zero(t, a.MUsage().RealUsed, "size %d", size)
		require.Same(t, t7.DefaultFixture, t7.CurrentFixture())
		t7.DeleteAllocator(a)
	}
}

func TestArenaCommandRejectsSmallSize(t *testing.T) {
	rootCmd.SetArgs([]string{"arena", "--size", "32", "--loops", "1"})
	require.Error(t, rootCmd.Execute())
}
