// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rhct generates and decodes the RISC-V Hart Capabilities Table.
//
// The table holds a single ISA string node and a single CMO node shared by
// all harts, followed by one hart info node per enabled hart referencing
// both by their table-relative offsets.
package rhct

import (
	"fmt"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/topology"
)

// MaxSize returns the size of the largest RHCT describing maxHarts harts.
func MaxSize(maxHarts int) uint32 {
	return uint32(HeaderSize + ISAHeaderSize + MaxISALength + CMOSize + HartInfoSize*maxHarts)
}

// Generate reads the harts of t and builds the RHCT describing them.
func Generate(t *fdt.Tree, cfg acpi.Config) ([]byte, error) {
	info, err := topology.CPUs(t)
	if err != nil {
		return nil, err
	}
	return Build(info, cfg)
}

// Build serializes the RHCT of the enabled harts of info.
func Build(info *topology.CPUInfo, cfg acpi.Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	harts := info.EnabledHarts()
	if len(harts) == 0 {
		return nil, fmt.Errorf("%w: no enabled hart", acpi.ErrNotFound)
	}
	if info.ISA == "" {
		return nil, fmt.Errorf("%w: empty ISA string", acpi.ErrNotFound)
	}

	buf := acpi.NewBuffer(MaxSize(cfg.MaxHarts))
	if _, err := buf.Write(Header{
		Header:         acpi.NewHeader(acpi.SignatureRHCT, Revision, cfg.OEM),
		TimerFrequency: info.TimebaseFrequency,
	}); err != nil {
		return nil, err
	}

	isaOffset, err := writeISA(buf, info.ISA)
	if err != nil {
		return nil, fmt.Errorf("ISA node: %w", err)
	}
	cmoOffset, err := buf.Write(CMONode{
		NodeHeader:    NodeHeader{Type: TypeCMO, Length: CMOSize, Revision: CMORevision},
		CBOMBlockSize: info.CBOMBlockSizeLog2,
		CBOPBlockSize: info.CBOPBlockSizeLog2,
		CBOZBlockSize: info.CBOZBlockSizeLog2,
	})
	if err != nil {
		return nil, fmt.Errorf("CMO node: %w", err)
	}
	for _, h := range harts {
		if _, err := buf.Write(hartInfoHeader{
			NodeHeader:       NodeHeader{Type: TypeHartInfo, Length: HartInfoSize, Revision: HartInfoRevision},
			NumOffsets:       2,
			ACPIProcessorUID: h.UID,
		}); err != nil {
			return nil, fmt.Errorf("hart info of hart %d: %w", h.ID, err)
		}
		if _, err := buf.Write([2]uint32{isaOffset, cmoOffset}); err != nil {
			return nil, fmt.Errorf("hart info of hart %d: %w", h.ID, err)
		}
	}

	if err := buf.Patch(numNodesOffset, nodeTail{
		NumNodes:   uint32(2 + len(harts)),
		NodeOffset: isaOffset,
	}); err != nil {
		return nil, err
	}
	return buf.Finalize()
}

// writeISA writes the ISA string node. The string keeps its NUL terminator
// and the node is padded to an even length.
func writeISA(buf *acpi.Buffer, isa string) (uint32, error) {
	str := []byte(isa + "\x00")
	if len(str) > MaxISALength {
		return 0, &acpi.ErrBufferOverflow{Capacity: MaxISALength, Need: uint32(len(str))}
	}
	padded := len(str) + len(str)%2
	off, err := buf.Write(isaNodeHeader{
		NodeHeader: NodeHeader{Type: TypeISA, Length: uint16(ISAHeaderSize + padded), Revision: ISARevision},
		ISALength:  uint16(len(str)),
	})
	if err != nil {
		return 0, err
	}
	if _, err := buf.WriteBytes(str); err != nil {
		return 0, err
	}
	return off, buf.Align(2)
}
