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

var simulateThread bool

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a sample routine under exhaustive allocation failure simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		t7.SetFixture(t7.TestFixture)
		defer t7.SetFixture(t7.DefaultFixture)

		var paths [4]int
		routine := func() bool { return sampleRoutine(&paths) }

		var ok bool
		var runs int
		if simulateThread {
			th := t7.NewThread(func(*t7.Thread) bool {
				ok, runs = t7.RepeatTestRuns(routine)
				return ok
			})
			th.Start()
			th.Join()
		} else {
			ok, runs = t7.RepeatTestRuns(routine)
		}
		slog.Info("simulation finished", "runs", runs, "ok", ok)
		for i, n := range paths {
			fmt.Printf("path %d taken %d times\n", i+1, n)
		}
		if !ok {
			return fmt.Errorf("sample routine failed after %d runs", runs)
		}
		return nil
	},
}

// sampleRoutine allocates with fallbacks: every allocation failure is
// handled by trying a smaller one.
func sampleRoutine(paths *[4]int) bool {
	p := t7.AllocateMemory(1000)
	if p == nil {
		p = t7.AllocateMemory(100)
		if p == nil {
			p = t7.AllocateMemory(10)
			if p == nil {
				paths[0]++
				return false
			}
			paths[1]++
		} else {
			paths[2]++
		}
	} else {
		paths[3]++
	}
	t7.FreeMemory(p)
	return true
}

func init() {
	simulateCmd.Flags().BoolVar(&simulateThread, "thread", false, "Run the simulation in a separate thread")
	rootCmd.AddCommand(simulateCmd)
}
