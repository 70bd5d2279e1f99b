// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

//go:build linux || darwin || freebsd

package t7

import (
	"golang.org/x/sys/unix"
)

// mapBuffer returns an anonymous private mapping of size bytes.
// Mappings are page aligned.
func mapBuffer(size int) ([]byte, bool, error) {
	b, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// unmapBuffer releases a mapping created by mapBuffer.
func unmapBuffer(b []byte) error {
	return unix.Munmap(b)
}
