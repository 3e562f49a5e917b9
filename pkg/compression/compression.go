// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compression implements reading and writing of compressed device
// trees and tables.
//
// Compressed inputs are recognized by the magic number at their start, so
// callers can accept both raw and compressed blobs without being told which.
package compression

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Compressor defines a single compression scheme (such as XZ).
type Compressor interface {
	// Name is typically the name of a class.
	Name() string

	// Decode and Encode obey "x == Decode(Encode(x))".
	Decode(encodedData []byte) ([]byte, error)
	Encode(decodedData []byte) ([]byte, error)
}

// Magic numbers of the supported formats.
var (
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

func isZlib(b []byte) bool {
	if len(b) < 2 || b[0]&0x0f != 8 {
		return false
	}
	return (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

// Detect returns the Compressor able to decode b, or nil when b does not
// start with a known magic number.
func Detect(b []byte) Compressor {
	switch {
	case bytes.HasPrefix(b, xzMagic):
		return &XZ{}
	case bytes.HasPrefix(b, lz4Magic):
		return &LZ4{}
	case bytes.HasPrefix(b, zstdMagic):
		return &ZSTD{}
	case bytes.HasPrefix(b, gzipMagic):
		return &GZIP{}
	case isZlib(b):
		return &ZLIB{}
	}
	return nil
}

// Decompress decodes b when it is compressed and returns it unchanged
// otherwise. The returned Compressor is nil for uncompressed data.
func Decompress(b []byte) ([]byte, Compressor, error) {
	c := Detect(b)
	if c == nil {
		return b, nil, nil
	}
	out, err := c.Decode(b)
	if err != nil {
		return nil, c, fmt.Errorf("%s: %w", c.Name(), err)
	}
	return out, c, nil
}

var byName = map[string]func(xzPath string) Compressor{
	"xz": func(xzPath string) Compressor {
		if xzPath != "" {
			return &SystemXZ{xzPath}
		}
		return &XZ{}
	},
	"lz4":  func(string) Compressor { return &LZ4{} },
	"zstd": func(string) Compressor { return &ZSTD{} },
	"gzip": func(string) Compressor { return &GZIP{} },
	"zlib": func(string) Compressor { return &ZLIB{} },
}

// Names lists the names accepted by ByName.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the Compressor called name, case insensitively. When
// xzPath is set, xz encoding calls out to that command.
func ByName(name, xzPath string) (Compressor, error) {
	f, ok := byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown compression %q, want one of %s", name, strings.Join(Names(), ", "))
	}
	return f(xzPath), nil
}
