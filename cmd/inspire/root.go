// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/intuitivelabs/mallocs/t7"
)

var (
	// Global flags
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "inspire",
	Short: "Exercise t7 allocators and allocation failure simulation",
	Long: `inspire runs small demonstrations of the t7 runtime: an arena
allocator trace, exhaustive allocation failure simulation of a sample
routine and character set name resolution.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(
			tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: "15:04:05",
				NoColor:    noColor,
			}),
		))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func execute() {
	err := rootCmd.Execute()
	t7.RunExitHandlers()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
