// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fdt

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Magic is the big-endian value found in the first word of every FDT blob.
const Magic uint32 = 0xd00dfeed

// Versions of the blob format this package understands.
const (
	// Version is the structure version written by dtc and expected by the
	// table generators.
	Version = 17
	// LastCompVersion is the oldest version a version-17 blob is backwards
	// compatible with.
	LastCompVersion = 16
)

// HeaderSize is the size of a version 17 FDT header.
const HeaderSize = 40

// Header is the fixed header of a flattened device tree blob. All fields are
// big-endian on the wire.
type Header struct {
	Magic           uint32
	TotalSize       uint32
	OffDtStruct     uint32
	OffDtStrings    uint32
	OffMemRsvmap    uint32
	Version         uint32
	LastCompVersion uint32
	BootCPUIDPhys   uint32
	SizeDtStrings   uint32
	SizeDtStruct    uint32
}

// ReadHeader decodes and validates the header at the start of blob. It is the
// equivalent of libfdt's fdt_check_header and runs before any parsing.
func ReadHeader(blob []byte) (*Header, error) {
	if len(blob) < HeaderSize {
		return nil, &HeaderError{Reason: fmt.Sprintf("blob too short: %d < %d bytes", len(blob), HeaderSize)}
	}
	var h Header
	if err := binary.Read(bytes.NewReader(blob[:HeaderSize]), binary.BigEndian, &h); err != nil {
		return nil, &HeaderError{Reason: err.Error()}
	}
	if h.Magic != Magic {
		return nil, &HeaderError{Reason: fmt.Sprintf("bad magic %#08x, want %#08x", h.Magic, Magic)}
	}
	if h.LastCompVersion > Version {
		return nil, &HeaderError{Reason: fmt.Sprintf("unsupported last compatible version %d", h.LastCompVersion)}
	}
	if h.TotalSize < HeaderSize || int(h.TotalSize) > len(blob) {
		return nil, &HeaderError{Reason: fmt.Sprintf("total size %#x does not fit a %#x byte blob", h.TotalSize, len(blob))}
	}
	for _, blk := range []struct {
		name      string
		off, size uint32
	}{
		{"structure block", h.OffDtStruct, h.SizeDtStruct},
		{"strings block", h.OffDtStrings, h.SizeDtStrings},
	} {
		if blk.off < HeaderSize || uint64(blk.off)+uint64(blk.size) > uint64(h.TotalSize) {
			return nil, &HeaderError{Reason: fmt.Sprintf("%s [%#x, +%#x) outside of the blob", blk.name, blk.off, blk.size)}
		}
	}
	return &h, nil
}
