// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"github.com/hashicorp/go-multierror"

	"github.com/linuxboot/rvacpi/pkg/fdt"
)

// CompatibleHart is the compatible string every RISC-V cpu node lists.
const CompatibleHart = "riscv"

// CPUInfo is what the harts advertise: their ISA string and cache block
// management capabilities, which must be identical on every enabled hart.
type CPUInfo struct {
	ISA string

	// Block sizes of the cache management operations, as log2 of bytes.
	// Zero when the hart does not report the property.
	CBOMBlockSizeLog2 uint8
	CBOPBlockSizeLog2 uint8
	CBOZBlockSizeLog2 uint8

	// TimebaseFrequency is the /cpus "timebase-frequency", zero if absent.
	TimebaseFrequency uint64

	Harts []Hart
}

// EnabledHarts returns the enabled harts in device tree order.
func (c *CPUInfo) EnabledHarts() []Hart {
	var out []Hart
	for _, h := range c.Harts {
		if h.Enabled {
			out = append(out, h)
		}
	}
	return out
}

// Harts lists the "riscv" compatible children of /cpus. At least one of
// them must be enabled.
func Harts(t *fdt.Tree) ([]Hart, error) {
	cpus, err := t.MustPathNode("/cpus")
	if err != nil {
		return nil, classify(err)
	}
	var (
		harts   []Hart
		enabled int
	)
	for _, n := range cpus.Children() {
		if !n.IsCompatible(CompatibleHart) {
			continue
		}
		id, err := n.U64("reg")
		if err != nil {
			return nil, classify(err)
		}
		h := Hart{ID: id, UID: uint32(len(harts)), Enabled: n.Enabled(), Path: n.Path()}
		if h.Enabled {
			enabled++
		}
		harts = append(harts, h)
	}
	if enabled == 0 {
		return nil, notFound("no enabled %q cpu under /cpus", CompatibleHart)
	}
	return harts, nil
}

type hartCaps struct {
	isa              string
	cbom, cbop, cboz uint8
}

func readHartCaps(n *fdt.Node) (hartCaps, error) {
	var c hartCaps
	isa, err := n.StringValue("riscv,isa")
	if err != nil {
		return c, classify(err)
	}
	c.isa = isa
	for _, p := range []struct {
		name string
		dst  *uint8
	}{
		{"riscv,cbom-block-size", &c.cbom},
		{"riscv,cbop-block-size", &c.cbop},
		{"riscv,cboz-block-size", &c.cboz},
	} {
		size, err := n.OptionalU32(p.name, 0)
		if err != nil {
			return c, classify(err)
		}
		*p.dst = log2(size)
	}
	return c, nil
}

// log2 returns the number of times v can be halved before reaching 1.
func log2(v uint32) uint8 {
	var r uint8
	for ; v > 1; v >>= 1 {
		r++
	}
	return r
}

// CPUs reads the harts and the capabilities shared by them. The ISA string
// is required. Enabled harts disagreeing on the ISA string or on the block
// sizes are rejected.
func CPUs(t *fdt.Tree) (*CPUInfo, error) {
	harts, err := Harts(t)
	if err != nil {
		return nil, err
	}
	cpus, _ := t.PathNode("/cpus")
	info := &CPUInfo{Harts: harts}
	if cpus.Has("timebase-frequency") {
		if info.TimebaseFrequency, err = cpus.U64("timebase-frequency"); err != nil {
			return nil, classify(err)
		}
	}

	var (
		first  *hartCaps
		result *multierror.Error
	)
	for _, h := range harts {
		if !h.Enabled {
			continue
		}
		n, _ := t.PathNode(h.Path)
		caps, err := readHartCaps(n)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = &caps
			continue
		}
		if caps.isa != first.isa {
			result = multierror.Append(result, unsupported("%s: ISA %q differs from %q", h.Path, caps.isa, first.isa))
		}
		if caps.cbom != first.cbom || caps.cbop != first.cbop || caps.cboz != first.cboz {
			result = multierror.Append(result, unsupported("%s: cache block sizes differ from the first hart", h.Path))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	info.ISA = first.isa
	info.CBOMBlockSizeLog2 = first.cbom
	info.CBOPBlockSizeLog2 = first.cbop
	info.CBOZBlockSizeLog2 = first.cboz
	return info, nil
}
