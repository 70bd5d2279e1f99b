// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package charset parses character set names and maps them to text
// encodings.
package charset

import (
	"encoding/binary"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// Charset identifies a character set.
type Charset int

const (
	Invalid Charset = iota
	ASCII
	ISO8859_1
	Filesystem // operating system dependent
	Locale     // user dependent
	UTF8
	UTF16 // native byte order
	UTF16LE
	UTF16BE
	UTF32 // native byte order
	UTF32LE
	UTF32BE
	WChar // wide characters, 32 bits
)

var names = [...]string{
	Invalid:    "invalid",
	ASCII:      "ascii",
	ISO8859_1:  "iso-8859-1",
	Filesystem: "fs",
	Locale:     "locale",
	UTF8:       "utf-8",
	UTF16:      "utf-16",
	UTF16LE:    "utf-16le",
	UTF16BE:    "utf-16be",
	UTF32:      "utf-32",
	UTF32LE:    "utf-32le",
	UTF32BE:    "utf-32be",
	WChar:      "wc",
}

// parse table, keyed by the lower case name without spaces and dashes
var aliases = map[string]Charset{
	"ascii":    ASCII,
	"iso88591": ISO8859_1,
	"latin1":   ISO8859_1,
	"utf8":     UTF8,
	"utf16":    UTF16,
	"utf16le":  UTF16LE,
	"utf16be":  UTF16BE,
	"utf32":    UTF32,
	"utf32le":  UTF32LE,
	"utf32be":  UTF32BE,
}

// Parse converts a character set name such as "UTF-8", "latin1" or
// "iso-8859-1" into a Charset. Case, surrounding white space and the
// separators '-' and ' ' are ignored. Unknown names return Invalid.
func Parse(name string) Charset {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n', '-':
			return -1
		}
		return r
	}, strings.ToLower(name))
	if c, ok := aliases[key]; ok {
		return c
	}
	return Invalid
}

// String returns the canonical name of c.
func (c Charset) String() string {
	if c < 0 || int(c) >= len(names) {
		return names[Invalid]
	}
	return names[c]
}

// Resolve converts the byte order neutral character sets into the
// ones used by this machine. Other character sets are returned as is.
func Resolve(c Charset) Charset {
	le := littleEndian()
	switch c {
	case UTF16:
		if le {
			return UTF16LE
		}
		return UTF16BE
	case UTF32, WChar:
		if le {
			return UTF32LE
		}
		return UTF32BE
	}
	if c < 0 || int(c) >= len(names) {
		return Invalid
	}
	return c
}

// Encoding returns the text encoding of c, after resolving it. It
// returns false for Invalid and for the environment dependent
// Filesystem and Locale character sets. ASCII is decoded as UTF-8, of
// which it is a subset.
func Encoding(c Charset) (encoding.Encoding, bool) {
	switch Resolve(c) {
	case ASCII, UTF8:
		return unicode.UTF8, true
	case ISO8859_1:
		return charmap.ISO8859_1, true
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), true
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), true
	case UTF32LE:
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM), true
	case UTF32BE:
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM), true
	}
	return nil, false
}

func littleEndian() bool {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 0x1234)
	return b[0] == 0x34
}
