// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhct

import (
	"fmt"

	"github.com/linuxboot/rvacpi/pkg/acpi"
)

// Revision is the RHCT revision.
const Revision = 1

// NodeType is the type of an RHCT node.
type NodeType uint16

// RHCT node types.
const (
	TypeISA      NodeType = 0
	TypeCMO      NodeType = 1
	TypeMMU      NodeType = 2
	TypeHartInfo NodeType = 0xFFFF
)

func (t NodeType) String() string {
	switch t {
	case TypeISA:
		return "ISA"
	case TypeCMO:
		return "CMO"
	case TypeMMU:
		return "MMU"
	case TypeHartInfo:
		return "HartInfo"
	}
	return fmt.Sprintf("NodeType(%#04x)", uint16(t))
}

// Node revisions.
const (
	ISARevision      = 1
	CMORevision      = 1
	HartInfoRevision = 1
)

// Sizes of the fixed parts of the table and nodes.
const (
	HeaderSize     = acpi.HeaderSize + 20
	NodeHeaderSize = 6
	ISAHeaderSize  = NodeHeaderSize + 2
	CMOSize        = NodeHeaderSize + 4
	// HartInfoSize is the size of a hart info node referencing the ISA and
	// CMO nodes.
	HartInfoSize = NodeHeaderSize + 6 + 2*4

	// MaxISALength bounds the ISA string, NUL terminator included.
	MaxISALength = 1024
)

// Offset of the NumNodes field, which is patched once every node is placed.
const numNodesOffset = acpi.HeaderSize + 12

// FlagTimerCannotWake is set when the timer cannot wake up a hart from a
// suspended state.
const FlagTimerCannotWake = 1

// Header is the RHCT header.
type Header struct {
	acpi.Header
	Flags          uint32
	TimerFrequency uint64
	NumNodes       uint32
	NodeOffset     uint32
}

// NodeHeader starts every node.
type NodeHeader struct {
	Type     NodeType
	Length   uint16
	Revision uint16
}

type isaNodeHeader struct {
	NodeHeader
	ISALength uint16
}

// CMONode describes the cache management operation block sizes, as log2 of
// bytes.
type CMONode struct {
	NodeHeader
	Reserved      uint8
	CBOMBlockSize uint8
	CBOPBlockSize uint8
	CBOZBlockSize uint8
}

type hartInfoHeader struct {
	NodeHeader
	NumOffsets       uint16
	ACPIProcessorUID uint32
}

type nodeTail struct {
	NumNodes   uint32
	NodeOffset uint32
}
