// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pptt

import (
	"fmt"
)

// Revision is the PPTT revision.
const Revision = 3

// StructureType is the type of a PPTT structure.
type StructureType uint8

// PPTT structure types.
const (
	TypeProcessor StructureType = 0
	TypeCache     StructureType = 1
	TypeID        StructureType = 2
)

func (t StructureType) String() string {
	switch t {
	case TypeProcessor:
		return "Processor"
	case TypeCache:
		return "Cache"
	case TypeID:
		return "ID"
	}
	return fmt.Sprintf("StructureType(%#02x)", uint8(t))
}

// Structure sizes.
const (
	ProcessorSize = 20
	CacheSize     = 28
	// LeafSize is the size of a core node holding its L1I and L1D caches.
	LeafSize = ProcessorSize + 2*4
)

// ProcessorFlags are the flags of a processor hierarchy node.
type ProcessorFlags uint32

// Processor hierarchy node flags.
const (
	ProcessorPhysicalPackage ProcessorFlags = 1 << iota
	ProcessorIDValid
	ProcessorIsThread
	ProcessorIsLeaf
	ProcessorIdentical
)

// Flags of the generated nodes.
const (
	ClusterFlags = ProcessorIdentical
	CoreFlags    = ProcessorIDValid | ProcessorIsLeaf | ProcessorIdentical
)

// CacheFlags tell which fields of a cache node are valid.
type CacheFlags uint32

// Cache node flags.
const (
	CacheSizeValid CacheFlags = 1 << iota
	CacheSetsValid
	CacheAssociativityValid
	CacheAllocationTypeValid
	CacheTypeValid
	CacheWritePolicyValid
	CacheLineSizeValid
	CacheIDValid

	CacheAllValid = CacheSizeValid | CacheSetsValid | CacheAssociativityValid |
		CacheAllocationTypeValid | CacheTypeValid | CacheWritePolicyValid |
		CacheLineSizeValid | CacheIDValid
)

// CacheAttributes pack the allocation type, cache type and write policy.
type CacheAttributes uint8

// Allocation types, bits 1:0.
const (
	AllocationRead      CacheAttributes = 0
	AllocationWrite     CacheAttributes = 1
	AllocationReadWrite CacheAttributes = 2
)

// Cache types, bits 3:2.
const (
	CacheData        CacheAttributes = 0 << 2
	CacheInstruction CacheAttributes = 1 << 2
	CacheUnified     CacheAttributes = 2 << 2
)

// Write policies, bit 4.
const (
	WriteBack    CacheAttributes = 0 << 4
	WriteThrough CacheAttributes = 1 << 4
)

// Attributes of the generated caches.
const (
	AttributesL1I     = AllocationRead | CacheInstruction
	AttributesL1D     = AllocationReadWrite | CacheData | WriteBack
	AttributesUnified = AllocationReadWrite | CacheUnified | WriteBack
)

// Type returns the cache type bits.
func (a CacheAttributes) Type() CacheAttributes {
	return a & (3 << 2)
}

func (a CacheAttributes) String() string {
	var typ string
	switch a.Type() {
	case CacheData:
		typ = "data"
	case CacheInstruction:
		typ = "instruction"
	default:
		typ = "unified"
	}
	alloc := [...]string{"read", "write", "read/write", "read/write"}[a&3]
	policy := "write-back"
	if a&WriteThrough != 0 {
		policy = "write-through"
	}
	return fmt.Sprintf("%s %s %s", typ, alloc, policy)
}

// Processor is the fixed part of a processor hierarchy node. It is followed
// by NumPrivateResources offsets.
type Processor struct {
	Type                StructureType
	Length              uint8
	Reserved            uint16
	Flags               ProcessorFlags
	Parent              uint32
	ACPIProcessorID     uint32
	NumPrivateResources uint32
}

// Cache is a cache type structure.
type Cache struct {
	Type             StructureType
	Length           uint8
	Reserved         uint16
	Flags            CacheFlags
	NextLevelOfCache uint32
	Size             uint32
	NumberOfSets     uint32
	Associativity    uint8
	Attributes       CacheAttributes
	LineSize         uint16
	CacheID          uint32
}
