// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"github.com/linuxboot/rvacpi/pkg/bytes"
	"github.com/linuxboot/rvacpi/pkg/fdt"
)

// CompatibleIMSIC is the compatible string of IMSIC nodes.
const CompatibleIMSIC = "riscv,imsics"

// Interrupt numbers used in the IMSIC "interrupts-extended" pairs.
const (
	IRQSupervisorExternal = 9
	IRQMachineExternal    = 11
)

// DefaultGroupIndexShift is "riscv,group-index-shift" when absent.
const DefaultGroupIndexShift = 2 * PageShift

// InterruptFile is the IMSIC interrupt file of one hart.
type InterruptFile struct {
	Hart
	Base uint64
	Size uint32
}

// IMSIC is the supervisor IMSIC topology.
type IMSIC struct {
	Path string

	NumIDs      uint32
	NumGuestIDs uint32

	GuestIndexBits  uint8
	HartIndexBits   uint8
	GroupIndexBits  uint8
	GroupIndexShift uint8

	// Groups are the "reg" ranges, one per IMSIC group.
	Groups []fdt.Region

	// Files lists one entry per "interrupts-extended" pair which fits into
	// the groups, in order.
	Files []InterruptFile
}

// FindIMSIC locates the supervisor IMSIC and resolves the hart of each of
// its interrupt files. Disabled IMSIC nodes are ignored. When several are
// enabled, only those delivering supervisor external interrupts are
// considered and exactly one must remain.
func FindIMSIC(t *fdt.Tree, opts Options) (*IMSIC, error) {
	var candidates []*fdt.Node
	for _, n := range t.Compatible(CompatibleIMSIC) {
		if !n.Disabled() {
			candidates = append(candidates, n)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, notFound("no enabled %q node", CompatibleIMSIC)
	case 1:
	default:
		var supervisor []*fdt.Node
		for _, n := range candidates {
			if deliversOnly(n, IRQSupervisorExternal) {
				supervisor = append(supervisor, n)
			}
		}
		if len(supervisor) != 1 {
			return nil, unsupported("%d enabled %q nodes, %d of them supervisor level",
				len(candidates), CompatibleIMSIC, len(supervisor))
		}
		candidates = supervisor
	}
	return readIMSIC(t, candidates[0], opts)
}

func deliversOnly(n *fdt.Node, irq uint32) bool {
	cells, err := n.U32Array("interrupts-extended", 2)
	if err != nil {
		return false
	}
	for i := 1; i < len(cells); i += 2 {
		if cells[i] != irq {
			return false
		}
	}
	return true
}

func readIMSIC(t *fdt.Tree, n *fdt.Node, opts Options) (*IMSIC, error) {
	m := &IMSIC{Path: n.Path()}
	var err error
	if m.NumIDs, err = n.U32("riscv,num-ids"); err != nil {
		return nil, classify(err)
	}
	if m.NumGuestIDs, err = n.OptionalU32("riscv,num-guest-ids", m.NumIDs); err != nil {
		return nil, classify(err)
	}
	if m.GuestIndexBits, err = u8Prop(n, "riscv,guest-index-bits", 0); err != nil {
		return nil, err
	}
	if m.GroupIndexBits, err = u8Prop(n, "riscv,group-index-bits", 0); err != nil {
		return nil, err
	}
	if m.GroupIndexShift, err = u8Prop(n, "riscv,group-index-shift", DefaultGroupIndexShift); err != nil {
		return nil, err
	}
	if m.Groups, err = n.Regions("reg"); err != nil {
		return nil, classify(err)
	}
	groups := make(bytes.Ranges, 0, len(m.Groups))
	for _, g := range m.Groups {
		groups = append(groups, g.Range())
	}
	if i, j, ok := groups.Overlap(); ok {
		return nil, schema("%s: reg ranges %s and %s overlap", m.Path, groups[i], groups[j])
	}
	ext, err := n.U32Array("interrupts-extended", 2)
	if err != nil {
		return nil, classify(err)
	}
	parents := len(ext) / 2
	if m.HartIndexBits, err = u8Prop(n, "riscv,hart-index-bits", ceilLog2(parents)); err != nil {
		return nil, err
	}
	if int(m.GuestIndexBits)+PageShift >= 64 || int(m.HartIndexBits)+PageShift >= 32 {
		return nil, schema("%s: index bits out of range (guest %d, hart %d)", m.Path, m.GuestIndexBits, m.HartIndexBits)
	}

	filePages := (uint64(1) << m.GuestIndexBits) * PageSize
	stride := (uint64(1) << m.HartIndexBits) * PageSize
	next := 0
	for _, g := range m.Groups {
		limit := g.Size / filePages
		for i := uint64(0); i < limit && next < parents; i, next = i+1, next+1 {
			h, err := hartOfIntc(t, n, ext[2*next])
			if err != nil {
				return nil, err
			}
			h.UID = uint32(len(m.Files))
			m.Files = append(m.Files, InterruptFile{
				Hart: h,
				Base: g.Base + i*stride,
				Size: uint32(stride),
			})
		}
	}
	if next < parents {
		opts.logger().Warnf("%s: %d of %d interrupts-extended entries do not fit into reg and are ignored",
			m.Path, parents-next, parents)
	}
	enabled := 0
	for _, f := range m.Files {
		if f.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return nil, notFound("%s: no interrupt file of an enabled hart", m.Path)
	}
	return m, nil
}

// hartOfIntc resolves a hart local interrupt controller phandle to the hart
// owning it.
func hartOfIntc(t *fdt.Tree, imsic *fdt.Node, ph uint32) (Hart, error) {
	intc, ok := t.ByPHandle(ph)
	if !ok {
		return Hart{}, classify(&fdt.PHandleError{Node: imsic.Path(), Property: "interrupts-extended", PHandle: ph})
	}
	cpu := intc.Parent()
	if cpu == nil {
		return Hart{}, notFound("%s has no parent cpu node", intc.Path())
	}
	id, err := cpu.U64("reg")
	if err != nil {
		return Hart{}, classify(err)
	}
	return Hart{ID: id, Enabled: cpu.Enabled(), Path: cpu.Path()}, nil
}

// ceilLog2 returns the number of bits needed to index n entries.
func ceilLog2(n int) uint8 {
	var bits uint8
	for 1<<bits < n {
		bits++
	}
	return bits
}
