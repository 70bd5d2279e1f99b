// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

//go:build !linux && !darwin && !freebsd

package t7

// mapBuffer falls back to the Go heap where anonymous mappings are not
// supported.
func mapBuffer(size int) ([]byte, bool, error) {
	return make([]byte, size), false, nil
}

func unmapBuffer(b []byte) error {
	return nil
}
