// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hob

import (
	"encoding/binary"

	"github.com/linuxboot/rvacpi/pkg/guid"
)

// Builder assembles a HOB list, for tests and for platform images prepared
// offline.
type Builder struct {
	b []byte
}

// Append adds a HOB of type t carrying data, padded to 8 bytes.
func (b *Builder) Append(t Type, data []byte) *Builder {
	length := HeaderSize + len(data)
	length += (8 - length%8) % 8
	hdr := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(hdr[0:], uint16(t))
	binary.LittleEndian.PutUint16(hdr[2:], uint16(length))
	b.b = append(b.b, hdr...)
	b.b = append(b.b, data...)
	b.b = append(b.b, make([]byte, length-HeaderSize-len(data))...)
	return b
}

// AppendGUID adds a GUID extension HOB named g.
func (b *Builder) AppendGUID(g guid.GUID, data []byte) *Builder {
	return b.Append(TypeGUIDExtension, append(g[:], data...))
}

// AppendFDT adds the FDT HOB pointing at addr.
func (b *Builder) AppendFDT(addr uint64) *Builder {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, addr)
	return b.AppendGUID(FDTGUID, data)
}

// Bytes terminates the list and returns it.
func (b *Builder) Bytes() []byte {
	out := append([]byte{}, b.b...)
	end := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(end[0:], uint16(TypeEndOfList))
	binary.LittleEndian.PutUint16(end[2:], HeaderSize)
	return append(out, end...)
}
