// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fdttest builds device tree blobs for tests.
package fdttest

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/u-root/u-root/pkg/dt"

	"github.com/linuxboot/rvacpi/pkg/fdt"
)

// Node returns a node with the given properties and children.
func Node(name string, props []dt.Property, children ...*dt.Node) *dt.Node {
	return &dt.Node{Name: name, Properties: props, Children: children}
}

// U32 returns a property holding big-endian cells.
func U32(name string, cells ...uint32) dt.Property {
	v := make([]byte, 4*len(cells))
	for i, c := range cells {
		binary.BigEndian.PutUint32(v[i*4:], c)
	}
	return dt.Property{Name: name, Value: v}
}

// U64 returns a property holding 64-bit values, each encoded as two cells.
func U64(name string, vals ...uint64) dt.Property {
	v := make([]byte, 8*len(vals))
	for i, c := range vals {
		binary.BigEndian.PutUint64(v[i*8:], c)
	}
	return dt.Property{Name: name, Value: v}
}

// Str returns a property holding a NUL terminated string list.
func Str(name string, vals ...string) dt.Property {
	return dt.Property{Name: name, Value: []byte(strings.Join(vals, "\x00") + "\x00")}
}

// Raw returns a property with an arbitrary value.
func Raw(name string, v []byte) dt.Property {
	return dt.Property{Name: name, Value: v}
}

// Blob serializes root into a version 17 FDT blob.
func Blob(root *dt.Node) ([]byte, error) {
	f := &dt.FDT{
		Header: dt.Header{
			Magic:           fdt.Magic,
			Version:         fdt.Version,
			LastCompVersion: fdt.LastCompVersion,
		},
		RootNode: root,
	}
	var buf bytes.Buffer
	if _, err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
