// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/intuitivelabs/mallocs/t7"
)

// minArenaSize leaves room for the steady state loop.
const minArenaSize = 256

var (
	arenaSize  int
	arenaMmap  bool
	arenaCheck bool
	arenaLoops int
)

var arenaCmd = &cobra.Command{
	Use:   "arena",
	Short: "Trace grab, resize and release on an arena",
	RunE: func(cmd *cobra.Command, args []string) error {
		if arenaSize < minArenaSize {
			return fmt.Errorf("arena size %d too small (min %d)", arenaSize, minArenaSize)
		}
		opts := t7.ArenaDebug
		if arenaMmap {
			opts |= t7.ArenaMmap
		}
		if arenaCheck {
			opts |= t7.ArenaChecks
		}
		a, err := t7.NewArena(arenaSize, opts)
		if err != nil {
			return err
		}
		defer t7.DeleteAllocator(a)

		if err := arenaTrace(a, arenaLoops); err != nil {
			return err
		}
		u := a.MUsage()
		fmt.Printf("arena %d bytes: %d loops done, used %d, max used %d\n",
			a.Size(), arenaLoops, u.RealUsed, u.MaxRealUsed)
		return nil
	},
}

// arenaTrace exhausts a, shrinks a region to make room again, then runs
// loops grab/resize/release rounds. Everything is released on return.
func arenaTrace(a *t7.Arena, loops int) error {
	// run the trace through the fixture, like application code would
	t7.SetFixture(&t7.Fixture{
		GetAllocator: func(*t7.Fixture) t7.Allocator { return a },
	})
	defer t7.SetFixture(t7.DefaultFixture)

	big := a.Size() - 24
	p := t7.AllocateMemory(big)
	report(a, "grab", big, p != nil)
	q := t7.AllocateMemory(big)
	report(a, "grab", big, q != nil)
	t7.FreeMemory(q)
	if p != nil {
		if r := t7.ResizeMemory(p, 100); r != nil {
			p = r
		}
		report(a, "resize", 100, len(p) == 100)
	}
	q = t7.AllocateMemory(a.Size() / 2)
	report(a, "grab", a.Size()/2, q != nil)
	t7.FreeMemory(q)
	t7.FreeMemory(p)

	for i := 0; i < loops; i++ {
		x := t7.AllocateMemory(15)
		y := t7.AllocateMemory(12)
		if x == nil || y == nil {
			t7.FreeMemory(x)
			t7.FreeMemory(y)
			return fmt.Errorf("arena exhausted at iteration %d", i)
		}
		for _, n := range []int{55, 10} {
			if r := t7.ResizeMemory(x, n); r != nil {
				x = r
			}
		}
		t7.FreeMemory(x)
		t7.FreeMemory(y)
	}
	return nil
}

func report(a *t7.Arena, op string, n int, ok bool) {
	u := a.MUsage()
	slog.Debug("arena operation", "op", op, "bytes", n, "ok", ok,
		"used", u.RealUsed, "available", a.Available())
	fmt.Printf("%-7s %6d bytes: %-5v (available %d)\n", op, n, ok, a.Available())
}

func init() {
	arenaCmd.Flags().IntVar(&arenaSize, "size", 1024, "Arena size in bytes (multiple of 16, at least 256)")
	arenaCmd.Flags().BoolVar(&arenaMmap, "mmap", false, "Map the arena buffer instead of using the Go heap")
	arenaCmd.Flags().BoolVar(&arenaCheck, "check", false, "Verify the arena after every operation")
	arenaCmd.Flags().IntVar(&arenaLoops, "loops", 10000, "Number of steady state grab/resize/release loops")
	rootCmd.AddCommand(arenaCmd)
}
