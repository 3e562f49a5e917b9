// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pptt generates and decodes the Processor Properties Topology
// Table of a single cluster RISC-V platform.
//
// The generated table starts with the shared L3 cache and the cluster node.
// Every core then gets its private L2, L1 instruction and L1 data caches
// followed by its leaf node, which lists both L1 caches as private
// resources. Caches chain L1 to L2 to L3, and the L3 terminates the chain.
package pptt

import (
	"fmt"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/topology"
)

// Cache IDs are unique in the table: the L3 has FirstCacheID and every core
// takes the next cachesPerCore IDs for its L2, L1I and L1D, in that order.
const (
	FirstCacheID  = 1
	cachesPerCore = 3
)

// MaxSize returns the size of the largest PPTT describing maxHarts cores.
func MaxSize(maxHarts int) uint32 {
	return uint32(acpi.HeaderSize + CacheSize + ProcessorSize + maxHarts*(cachesPerCore*CacheSize+LeafSize))
}

// Generate reads the cache hierarchy of t and builds the PPTT describing it.
func Generate(t *fdt.Tree, cfg acpi.Config, opts topology.Options) ([]byte, error) {
	caches, err := topology.Caches(t, opts)
	if err != nil {
		return nil, err
	}
	return Build(caches, cfg)
}

func cacheNode(c topology.Cache, attrs CacheAttributes, next, id uint32) Cache {
	return Cache{
		Type:             TypeCache,
		Length:           CacheSize,
		Flags:            CacheAllValid,
		NextLevelOfCache: next,
		Size:             c.Size,
		NumberOfSets:     c.Sets,
		Associativity:    c.Associativity,
		Attributes:       attrs,
		LineSize:         c.LineSize,
		CacheID:          id,
	}
}

// Build serializes the PPTT of topo. Every core is described, disabled ones
// included, and its ACPI processor ID is its position under /cpus so that it
// matches the RINTC UID of the MADT.
func Build(topo *topology.CacheTopology, cfg acpi.Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if topo == nil || len(topo.Cores) == 0 {
		return nil, fmt.Errorf("%w: no core", acpi.ErrNotFound)
	}

	buf := acpi.NewBuffer(MaxSize(cfg.MaxHarts))
	if _, err := buf.Write(acpi.NewHeader(acpi.SignaturePPTT, Revision, cfg.OEM)); err != nil {
		return nil, err
	}
	l3, err := buf.Write(cacheNode(topo.L3, AttributesUnified, 0, FirstCacheID))
	if err != nil {
		return nil, fmt.Errorf("L3 cache: %w", err)
	}
	cluster, err := buf.Write(Processor{
		Type:   TypeProcessor,
		Length: ProcessorSize,
		Flags:  ClusterFlags,
	})
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}

	for _, core := range topo.Cores {
		if err := writeCore(buf, core, l3, cluster); err != nil {
			return nil, fmt.Errorf("core %d (%s): %w", core.Index, core.Path, err)
		}
	}
	return buf.Finalize()
}

func writeCore(buf *acpi.Buffer, core topology.CoreCaches, l3, cluster uint32) error {
	id := uint32(FirstCacheID + 1 + core.Index*cachesPerCore)
	l2, err := buf.Write(cacheNode(core.L2, AttributesUnified, l3, id))
	if err != nil {
		return err
	}
	l1i, err := buf.Write(cacheNode(core.L1I, AttributesL1I, l2, id+1))
	if err != nil {
		return err
	}
	l1d, err := buf.Write(cacheNode(core.L1D, AttributesL1D, l2, id+2))
	if err != nil {
		return err
	}
	if _, err := buf.Write(Processor{
		Type:                TypeProcessor,
		Length:              LeafSize,
		Flags:               CoreFlags,
		Parent:              cluster,
		ACPIProcessorID:     uint32(core.Index),
		NumPrivateResources: 2,
	}); err != nil {
		return err
	}
	_, err = buf.Write([2]uint32{l1i, l1d})
	return err
}
