// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"github.com/linuxboot/rvacpi/pkg/fdt"
)

// CompatibleAPLIC is the compatible string of APLIC nodes.
const CompatibleAPLIC = "riscv,aplic"

// APLIC is the supervisor interrupt domain of the APLIC.
type APLIC struct {
	Path string
	Base uint64
	Size uint64

	// NumSources counts source 0, which is reserved, so it is one more than
	// "riscv,num-sources".
	NumSources uint16

	// NumIDCs is the number of interrupt delivery controls. It is zero when
	// the domain forwards interrupts as MSIs.
	NumIDCs uint16

	// GSIBase is the first global system interrupt of the domain.
	GSIBase uint32
}

// FindAPLIC returns the enabled APLIC domain, or nil when the platform has
// none. A machine level root domain delegating to children
// ("riscv,children") is skipped when another domain is enabled.
func FindAPLIC(t *fdt.Tree) (*APLIC, error) {
	var candidates []*fdt.Node
	for _, n := range t.Compatible(CompatibleAPLIC) {
		if !n.Disabled() {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(candidates) > 1 {
		var leaves []*fdt.Node
		for _, n := range candidates {
			if !n.Has("riscv,children") {
				leaves = append(leaves, n)
			}
		}
		if len(leaves) != 1 {
			return nil, unsupported("%d enabled %q nodes, %d of them without children domains",
				len(candidates), CompatibleAPLIC, len(leaves))
		}
		candidates = leaves
	}
	return readAPLIC(candidates[0])
}

func readAPLIC(n *fdt.Node) (*APLIC, error) {
	a := &APLIC{Path: n.Path()}
	regs, err := n.Regions("reg")
	if err != nil {
		return nil, classify(err)
	}
	a.Base, a.Size = regs[0].Base, regs[0].Size

	sources, err := n.U32("riscv,num-sources")
	if err != nil {
		return nil, classify(err)
	}
	if sources >= 0xffff {
		return nil, schema("%s: %d sources do not fit 16 bits", a.Path, sources)
	}
	a.NumSources = uint16(sources + 1)

	if n.Has("interrupts-extended") {
		ext, err := n.U32Array("interrupts-extended", 2)
		if err != nil {
			return nil, classify(err)
		}
		if len(ext)/2 > 0xffff {
			return nil, schema("%s: too many interrupt delivery controls", a.Path)
		}
		a.NumIDCs = uint16(len(ext) / 2)
	}
	return a, nil
}
