// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fdttest

import (
	"fmt"
	"testing"

	"github.com/u-root/u-root/pkg/dt"
)

// Phandles assigned by SoC.Root.
const (
	PHandleIntcBase  = 0x100
	PHandleL2Base    = 0x200
	PHandleCPUBase   = 0x300
	PHandleL3        = 0x400
	PHandleIMSIC     = 0x401
	PHandleAPLIC     = 0x402
	PHandleAPLICMSI  = 0x403
	DefaultISA       = "rv64imafdch_zicbom_zicboz"
	DefaultTimebase  = 10000000
	SupervisorIRQ    = 9
	MachineIRQ       = 11
	defaultNumIDs    = 255
	defaultNumSource = 96
)

// Cache describes the cache properties of a cpu or cache node. Zero fields
// are not emitted.
type Cache struct {
	Size     uint32
	LineSize uint32
	Sets     uint32
	// Generic emits "cache-*" properties instead of "d-cache-*" on cache
	// controller nodes.
	Generic bool
}

// Hart describes one /cpus/cpu@N node.
type Hart struct {
	ID     uint32
	Status string
	// ISA defaults to DefaultISA. Set NoISA to drop the property.
	ISA   string
	NoISA bool
	// NotRISCV drops "riscv" from the compatible list.
	NotRISCV bool

	CBOM, CBOZ, CBOP uint32

	ICache, DCache *Cache
	// L2 is the private cache the hart points to with next-level-cache.
	L2 *Cache
	// L3PHandle overrides the next-level-cache of the hart's L2 node.
	L3PHandle uint32
}

// IMSIC describes the "riscv,imsics" node.
type IMSIC struct {
	Regs   [][2]uint64
	NumIDs uint32
	// Harts lists the indices into SoC.Harts referenced by
	// interrupts-extended. nil references every hart in order.
	Harts []int
	// Flag is the interrupt number paired with each phandle, SupervisorIRQ
	// when zero.
	Flag   uint32
	Status string
	Extra  []dt.Property
}

// APLIC describes the "riscv,aplic" node.
type APLIC struct {
	Base, Size uint64
	NumSources uint32
	Status     string
	// Direct wires the APLIC to the hart interrupt controllers with
	// interrupts-extended instead of msi-parent.
	Direct bool
	Extra  []dt.Property
}

// SoC describes a RISC-V device tree with the nodes the ACPI generators read.
type SoC struct {
	Harts             []Hart
	TimebaseFrequency uint32
	L3                *Cache
	IMSIC             *IMSIC
	APLIC             *APLIC
	// Clusters is the number of cpu-map clusters, harts are spread evenly.
	// Zero omits cpu-map.
	Clusters int
	// Extra nodes appended to the root.
	Extra []*dt.Node
}

// Root returns the root node describing s.
func (s *SoC) Root() *dt.Node {
	var cpus []*dt.Node
	var l2s []*dt.Node
	for i, h := range s.Harts {
		cpus = append(cpus, s.cpuNode(i, h))
		if h.L2 != nil {
			props := append([]dt.Property{
				Str("compatible", "cache"),
				U32("cache-level", 2),
				U32("phandle", PHandleL2Base+uint32(i)),
			}, cacheProps(*h.L2, !h.L2.Generic, "d-cache")...)
			switch {
			case h.L3PHandle != 0:
				props = append(props, U32("next-level-cache", h.L3PHandle))
			case s.L3 != nil:
				props = append(props, U32("next-level-cache", PHandleL3))
			}
			l2s = append(l2s, Node(fmt.Sprintf("l2-cache%d", i), props))
		}
	}
	if s.Clusters > 0 {
		cpus = append(cpus, s.cpuMap())
	}

	tb := s.TimebaseFrequency
	if tb == 0 {
		tb = DefaultTimebase
	}
	root := Node("", []dt.Property{
		U32("#address-cells", 2),
		U32("#size-cells", 2),
		Str("compatible", "ventana,test"),
		Str("model", "test"),
	}, Node("cpus", []dt.Property{
		U32("#address-cells", 1),
		U32("#size-cells", 0),
		U32("timebase-frequency", tb),
	}, cpus...))
	root.Children = append(root.Children, l2s...)
	if s.L3 != nil {
		root.Children = append(root.Children, Node("l3-cache", append([]dt.Property{
			Str("compatible", "cache"),
			U32("cache-level", 3),
			Str("cache-unified"),
			U32("phandle", PHandleL3),
		}, cacheProps(*s.L3, false, "")...)))
	}

	var soc []*dt.Node
	if s.IMSIC != nil {
		soc = append(soc, s.imsicNode())
	}
	if s.APLIC != nil {
		soc = append(soc, s.aplicNode())
	}
	if soc != nil {
		root.Children = append(root.Children, Node("soc", []dt.Property{
			U32("#address-cells", 2),
			U32("#size-cells", 2),
			Str("compatible", "simple-bus"),
			Raw("ranges", nil),
		}, soc...))
	}
	root.Children = append(root.Children, s.Extra...)
	return root
}

func (s *SoC) cpuNode(i int, h Hart) *dt.Node {
	compat := []string{"ventana,veyron-v1", "riscv"}
	if h.NotRISCV {
		compat = compat[:1]
	}
	props := []dt.Property{
		Str("device_type", "cpu"),
		U32("reg", h.ID),
		Str("compatible", compat...),
		U32("phandle", PHandleCPUBase+uint32(i)),
	}
	if !h.NoISA {
		isa := h.ISA
		if isa == "" {
			isa = DefaultISA
		}
		props = append(props, Str("riscv,isa", isa))
	}
	if h.Status != "" {
		props = append(props, Str("status", h.Status))
	}
	for _, p := range []struct {
		name string
		v    uint32
	}{
		{"riscv,cbom-block-size", h.CBOM},
		{"riscv,cboz-block-size", h.CBOZ},
		{"riscv,cbop-block-size", h.CBOP},
	} {
		if p.v != 0 {
			props = append(props, U32(p.name, p.v))
		}
	}
	if h.ICache != nil {
		props = append(props, cacheProps(*h.ICache, true, "i-cache")...)
	}
	if h.DCache != nil {
		props = append(props, cacheProps(*h.DCache, true, "d-cache")...)
	}
	if h.L2 != nil {
		props = append(props, U32("next-level-cache", PHandleL2Base+uint32(i)))
	}
	intc := Node("interrupt-controller", []dt.Property{
		U32("#interrupt-cells", 1),
		Str("compatible", "riscv,cpu-intc"),
		Raw("interrupt-controller", nil),
		U32("phandle", PHandleIntcBase+uint32(i)),
	})
	return Node(fmt.Sprintf("cpu@%x", h.ID), props, intc)
}

func (s *SoC) cpuMap() *dt.Node {
	perCluster := (len(s.Harts) + s.Clusters - 1) / s.Clusters
	m := Node("cpu-map", nil)
	for c := 0; c < s.Clusters; c++ {
		cluster := Node(fmt.Sprintf("cluster%d", c), nil)
		for i := c * perCluster; i < (c+1)*perCluster && i < len(s.Harts); i++ {
			cluster.Children = append(cluster.Children, Node(fmt.Sprintf("core%d", i-c*perCluster),
				[]dt.Property{U32("cpu", PHandleCPUBase+uint32(i))}))
		}
		m.Children = append(m.Children, cluster)
	}
	return m
}

func cacheProps(c Cache, prefixed bool, prefix string) []dt.Property {
	p := "cache"
	if prefixed && prefix != "" {
		p = prefix
	}
	var props []dt.Property
	if c.Size != 0 {
		props = append(props, U32(p+"-size", c.Size))
	}
	if c.LineSize != 0 {
		props = append(props, U32(p+"-line-size", c.LineSize))
	}
	if c.Sets != 0 {
		props = append(props, U32(p+"-sets", c.Sets))
	}
	return props
}

func (s *SoC) imsicNode() *dt.Node {
	m := s.IMSIC
	harts := m.Harts
	if harts == nil {
		for i := range s.Harts {
			harts = append(harts, i)
		}
	}
	flag := m.Flag
	if flag == 0 {
		flag = SupervisorIRQ
	}
	var ext []uint32
	for _, i := range harts {
		ext = append(ext, PHandleIntcBase+uint32(i), flag)
	}
	var reg []uint64
	for _, r := range m.Regs {
		reg = append(reg, r[0], r[1])
	}
	numIDs := m.NumIDs
	if numIDs == 0 {
		numIDs = defaultNumIDs
	}
	props := []dt.Property{
		Str("compatible", "riscv,imsics"),
		U64("reg", reg...),
		U32("interrupts-extended", ext...),
		U32("riscv,num-ids", numIDs),
		Raw("interrupt-controller", nil),
		Raw("msi-controller", nil),
		U32("#interrupt-cells", 0),
		U32("phandle", PHandleIMSIC),
	}
	if m.Status != "" {
		props = append(props, Str("status", m.Status))
	}
	props = append(props, m.Extra...)
	addr := uint64(0)
	if len(m.Regs) > 0 {
		addr = m.Regs[0][0]
	}
	return Node(fmt.Sprintf("interrupt-controller@%x", addr), props)
}

func (s *SoC) aplicNode() *dt.Node {
	a := s.APLIC
	n := a.NumSources
	if n == 0 {
		n = defaultNumSource
	}
	props := []dt.Property{
		Str("compatible", "riscv,aplic"),
		U64("reg", a.Base, a.Size),
		U32("riscv,num-sources", n),
		Raw("interrupt-controller", nil),
		U32("#interrupt-cells", 2),
		U32("phandle", PHandleAPLIC),
	}
	if a.Direct {
		var ext []uint32
		for i := range s.Harts {
			ext = append(ext, PHandleIntcBase+uint32(i), SupervisorIRQ)
		}
		props = append(props, U32("interrupts-extended", ext...))
	} else {
		props = append(props, U32("msi-parent", PHandleIMSIC))
	}
	if a.Status != "" {
		props = append(props, Str("status", a.Status))
	}
	props = append(props, a.Extra...)
	return Node(fmt.Sprintf("interrupt-controller@%x", a.Base), props)
}

// Blob serializes the SoC, failing tb on error.
func (s *SoC) Blob(tb testing.TB) []byte {
	tb.Helper()
	b, err := Blob(s.Root())
	if err != nil {
		tb.Fatalf("unable to serialize device tree: %v", err)
	}
	return b
}

// TwoHarts is the reference platform: harts 0 and 1 with hart 1 disabled,
// one 64 KiB IMSIC group with 64 identities, an APLIC, private L2 caches and
// a shared L3.
func TwoHarts() *SoC {
	l1 := &Cache{Size: 0x10000, LineSize: 64, Sets: 128}
	return &SoC{
		Harts: []Hart{
			{ID: 0, CBOM: 64, CBOZ: 64, ICache: l1, DCache: l1, L2: &Cache{Size: 0x100000, LineSize: 64, Sets: 1024}},
			{ID: 1, Status: "disabled", CBOM: 64, CBOZ: 64, ICache: l1, DCache: l1, L2: &Cache{Size: 0x100000, LineSize: 64, Sets: 1024}},
		},
		L3: &Cache{Size: 0x1000000, LineSize: 64, Sets: 16384},
		IMSIC: &IMSIC{
			Regs:   [][2]uint64{{0x28000000, 0x10000}},
			NumIDs: 64,
		},
		APLIC: &APLIC{Base: 0xd000000, Size: 0x8000, NumSources: 96},
	}
}

// Uniform returns a SoC of n enabled harts with identical caches, one IMSIC
// group large enough for all of them and an APLIC.
func Uniform(n int) *SoC {
	s := TwoHarts()
	s.Harts = nil
	for i := 0; i < n; i++ {
		s.Harts = append(s.Harts, Hart{
			ID:     uint32(i),
			CBOM:   64,
			CBOZ:   64,
			ICache: &Cache{Size: 0x10000, LineSize: 64, Sets: 128},
			DCache: &Cache{Size: 0x10000, LineSize: 64, Sets: 128},
			L2:     &Cache{Size: 0x100000, LineSize: 64, Sets: 1024},
		})
	}
	s.IMSIC.Regs = [][2]uint64{{0x28000000, uint64(n) * 0x1000}}
	return s
}
