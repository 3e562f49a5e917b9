// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhct

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/xaionaro-go/bytesextra"

	"github.com/linuxboot/rvacpi/pkg/acpi"
)

// ISANode is a decoded ISA string node.
type ISANode struct {
	NodeHeader
	Offset    uint32
	ISALength uint16
	ISA       string
}

// DecodedCMONode is a CMO node with its position in the table.
type DecodedCMONode struct {
	CMONode
	Offset uint32
}

// HartInfoNode is a decoded hart info node.
type HartInfoNode struct {
	NodeHeader
	Offset           uint32
	ACPIProcessorUID uint32
	Offsets          []uint32
}

// Table is a decoded RHCT.
type Table struct {
	Header   Header
	ISA      []ISANode
	CMO      []DecodedCMONode
	HartInfo []HartInfoNode
	Unknown  []NodeType
}

// Parse decodes a complete RHCT, walking Header.NumNodes nodes from
// Header.NodeOffset.
func Parse(b []byte) (*Table, error) {
	if _, _, err := acpi.ReadTable(b, acpi.SignatureRHCT); err != nil {
		return nil, err
	}
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: RHCT header truncated", acpi.ErrSchemaViolation)
	}
	var t Table
	if err := binary.Read(bytesextra.NewReadWriteSeeker(b[:HeaderSize]), binary.LittleEndian, &t.Header); err != nil {
		return nil, err
	}
	b = b[:t.Header.Length]
	off := t.Header.NodeOffset
	if off < HeaderSize {
		return nil, fmt.Errorf("%w: node offset %#x inside the header", acpi.ErrSchemaViolation, off)
	}
	for i := uint32(0); i < t.Header.NumNodes; i++ {
		if uint64(off)+NodeHeaderSize > uint64(len(b)) {
			return nil, fmt.Errorf("%w: node %d at %#x is outside of the table", acpi.ErrSchemaViolation, i, off)
		}
		var nh NodeHeader
		if err := read(b[off:], &nh); err != nil {
			return nil, err
		}
		if nh.Length < NodeHeaderSize || uint64(off)+uint64(nh.Length) > uint64(len(b)) {
			return nil, fmt.Errorf("%w: %s node at %#x has length %d", acpi.ErrSchemaViolation, nh.Type, off, nh.Length)
		}
		data := b[off : off+uint32(nh.Length)]
		if err := t.decodeNode(nh, off, data); err != nil {
			return nil, fmt.Errorf("%s node at %#x: %w", nh.Type, off, err)
		}
		off += uint32(nh.Length)
	}
	return &t, nil
}

func (t *Table) decodeNode(nh NodeHeader, off uint32, data []byte) error {
	switch nh.Type {
	case TypeISA:
		var h isaNodeHeader
		if err := read(data, &h); err != nil {
			return err
		}
		if ISAHeaderSize+int(h.ISALength) > len(data) {
			return fmt.Errorf("%w: ISA length %d", acpi.ErrSchemaViolation, h.ISALength)
		}
		str := data[ISAHeaderSize : ISAHeaderSize+int(h.ISALength)]
		if i := bytes.IndexByte(str, 0); i >= 0 {
			str = str[:i]
		}
		t.ISA = append(t.ISA, ISANode{NodeHeader: nh, Offset: off, ISALength: h.ISALength, ISA: string(str)})
	case TypeCMO:
		var n CMONode
		if err := read(data, &n); err != nil {
			return err
		}
		t.CMO = append(t.CMO, DecodedCMONode{CMONode: n, Offset: off})
	case TypeHartInfo:
		var h hartInfoHeader
		if err := read(data, &h); err != nil {
			return err
		}
		need := NodeHeaderSize + 6 + 4*int(h.NumOffsets)
		if need > len(data) {
			return fmt.Errorf("%w: %d offsets do not fit %d bytes", acpi.ErrSchemaViolation, h.NumOffsets, len(data))
		}
		offsets := make([]uint32, h.NumOffsets)
		if err := read(data[NodeHeaderSize+6:], offsets); err != nil {
			return err
		}
		t.HartInfo = append(t.HartInfo, HartInfoNode{
			NodeHeader:       nh,
			Offset:           off,
			ACPIProcessorUID: h.ACPIProcessorUID,
			Offsets:          offsets,
		})
	default:
		t.Unknown = append(t.Unknown, nh.Type)
	}
	return nil
}

func read(data []byte, v interface{}) error {
	size := binary.Size(v)
	if size < 0 || len(data) < size {
		return fmt.Errorf("%w: %d bytes, want %d", acpi.ErrSchemaViolation, len(data), size)
	}
	return binary.Read(bytesextra.NewReadWriteSeeker(data[:size]), binary.LittleEndian, v)
}
