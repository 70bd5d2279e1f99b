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

	"github.com/intuitivelabs/mallocs/t7/charset"
)

var charsetCmd = &cobra.Command{
	Use:   "charset <name>...",
	Short: "Parse and resolve character set names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			c := charset.Parse(name)
			if c == charset.Invalid {
				return fmt.Errorf("unknown character set %q", name)
			}
			r := charset.Resolve(c)
			_, ok := charset.Encoding(r)
			slog.Debug("parsed character set", "input", name, "charset", c.String())
			fmt.Printf("%-12s %-10s -> %-10s encoding: %v\n", name, c, r, ok)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(charsetCmd)
}
