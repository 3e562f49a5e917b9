// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pptt

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/fdt/fdttest"
	"github.com/linuxboot/rvacpi/pkg/topology"
)

func testConfig(t *testing.T, maxHarts int) acpi.Config {
	oem, err := acpi.NewOEM("VNTANA", "VENTANA", 1, "VNTN", 1)
	require.NoError(t, err)
	return acpi.Config{OEM: oem, MaxHarts: maxHarts}
}

func generate(t *testing.T, s *fdttest.SoC, maxHarts int, opts topology.Options) ([]byte, error) {
	tree, err := fdt.Load(s.Blob(t))
	require.NoError(t, err)
	return Generate(tree, testConfig(t, maxHarts), opts)
}

func TestStructureSizes(t *testing.T) {
	assert.Equal(t, ProcessorSize, binary.Size(Processor{}))
	assert.Equal(t, CacheSize, binary.Size(Cache{}))
	assert.Equal(t, CoreFlags, ProcessorFlags(0x1a))
	assert.Equal(t, ClusterFlags, ProcessorFlags(0x10))
	assert.Equal(t, CacheAllValid, CacheFlags(0xff))
	assert.Equal(t, AttributesUnified, CacheAttributes(0x0a))
}

func TestGenerateTwoCores(t *testing.T) {
	s := fdttest.TwoHarts()
	b, err := generate(t, s, 2, topology.Options{Strict: true})
	require.NoError(t, err)
	assert.Len(t, b, int(MaxSize(2)))
	assert.Equal(t, uint8(0), acpi.Checksum(b))

	table, err := Parse(b)
	require.NoError(t, err)
	require.NoError(t, table.Validate())
	assert.Equal(t, acpi.SignaturePPTT, table.Header.Signature)
	assert.Equal(t, uint8(Revision), table.Header.Revision)
	assert.Empty(t, table.Unknown)

	// One L3, then three caches per core.
	require.Len(t, table.Caches, 1+2*3)
	l3 := table.Caches[0]
	assert.Equal(t, uint32(acpi.HeaderSize), l3.Offset)
	assert.Zero(t, l3.NextLevelOfCache)
	assert.Equal(t, uint32(0x1000000), l3.Size)
	assert.Equal(t, uint8(16), l3.Associativity)
	assert.Equal(t, AttributesUnified, l3.Attributes)

	require.Len(t, table.Processors, 1+2)
	cluster := table.Processors[0]
	assert.Equal(t, l3.Offset+CacheSize, cluster.Offset)
	assert.Equal(t, ClusterFlags, cluster.Flags)
	assert.Zero(t, cluster.Parent)
	assert.Empty(t, cluster.PrivateResources)

	leaves := table.Leaves()
	require.Len(t, leaves, 2)
	seen := map[uint32]bool{}
	for i, leaf := range leaves {
		assert.Equal(t, uint32(i), leaf.ACPIProcessorID)
		assert.Equal(t, CoreFlags, leaf.Flags)
		assert.Equal(t, cluster.Offset, leaf.Parent)
		assert.Equal(t, uint8(LeafSize), leaf.Length)
		require.Len(t, leaf.PrivateResources, 2)

		// The core's own caches directly precede its leaf node.
		l1i, l1d := leaf.PrivateResources[0], leaf.PrivateResources[1]
		assert.Equal(t, leaf.Offset-CacheSize, l1d)
		assert.Equal(t, leaf.Offset-2*CacheSize, l1i)
		assert.False(t, seen[l1i] || seen[l1d])
		seen[l1i], seen[l1d] = true, true

		for _, r := range []struct {
			off   uint32
			attrs CacheAttributes
		}{{l1i, AttributesL1I}, {l1d, AttributesL1D}} {
			chain, err := table.CacheChain(r.off)
			require.NoError(t, err)
			require.Len(t, chain, 3)
			assert.Equal(t, r.attrs, chain[0].Attributes)
			assert.Equal(t, uint32(0x10000), chain[0].Size)
			assert.Equal(t, uint8(8), chain[0].Associativity)
			assert.Equal(t, leaf.Offset-3*CacheSize, chain[1].Offset)
			assert.Equal(t, uint32(0x100000), chain[1].Size)
			assert.Equal(t, uint8(16), chain[1].Associativity)
			assert.Equal(t, l3.Offset, chain[2].Offset)
		}
	}
}

func TestCacheIDsUnique(t *testing.T) {
	b, err := generate(t, fdttest.Uniform(4), 4, topology.Options{})
	require.NoError(t, err)
	table, err := Parse(b)
	require.NoError(t, err)
	ids := map[uint32]bool{}
	for _, c := range table.Caches {
		assert.Equal(t, CacheAllValid, c.Flags)
		assert.False(t, ids[c.CacheID], "duplicate cache ID %d", c.CacheID)
		ids[c.CacheID] = true
	}
	assert.Len(t, ids, 1+4*3)
	assert.True(t, ids[FirstCacheID])
}

func TestGenerateDefaults(t *testing.T) {
	s := fdttest.TwoHarts()
	s.L3 = nil
	for i := range s.Harts {
		s.Harts[i].ICache = nil
		s.Harts[i].L2 = nil
	}
	b, err := generate(t, s, 2, topology.Options{})
	require.NoError(t, err)
	table, err := Parse(b)
	require.NoError(t, err)

	def := topology.DefaultL3()
	assert.Equal(t, def.Size, table.Caches[0].Size)
	assert.Equal(t, def.Associativity, table.Caches[0].Associativity)
	leaf := table.Leaves()[0]
	chain, err := table.CacheChain(leaf.PrivateResources[0])
	require.NoError(t, err)
	assert.Equal(t, topology.DefaultL1I().Size, chain[0].Size)
	assert.Equal(t, topology.DefaultL2().Sets, chain[1].NumberOfSets)

	_, err = generate(t, s, 2, topology.Options{Strict: true})
	assert.True(t, errors.Is(err, acpi.ErrNotFound), err)
}

func TestGenerateIdempotent(t *testing.T) {
	first, err := generate(t, fdttest.Uniform(3), 4, topology.Options{})
	require.NoError(t, err)
	second, err := generate(t, fdttest.Uniform(3), 4, topology.Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateErrors(t *testing.T) {
	_, err := generate(t, fdttest.Uniform(3), 2, topology.Options{})
	assert.True(t, errors.Is(err, acpi.ErrOutOfResources), err)

	s := fdttest.TwoHarts()
	s.Harts[0].Status = "disabled"
	_, err = generate(t, s, 2, topology.Options{})
	assert.True(t, errors.Is(err, acpi.ErrNotFound), err)

	s = fdttest.Uniform(4)
	s.Clusters = 2
	_, err = generate(t, s, 4, topology.Options{})
	assert.True(t, errors.Is(err, acpi.ErrUnsupportedTopology), err)

	_, err = Build(&topology.CacheTopology{}, testConfig(t, 1))
	assert.True(t, errors.Is(err, acpi.ErrNotFound), err)
}

func TestValidate(t *testing.T) {
	b, err := generate(t, fdttest.TwoHarts(), 2, topology.Options{})
	require.NoError(t, err)

	// Point the L3 at the cluster node.
	broken := append([]byte{}, b...)
	binary.LittleEndian.PutUint32(broken[acpi.HeaderSize+8:], acpi.HeaderSize+CacheSize)
	acpi.Finalize(broken)
	table, err := Parse(broken)
	require.NoError(t, err)
	err = table.Validate()
	assert.True(t, errors.Is(err, acpi.ErrSchemaViolation), err)

	// Make a leaf reference its own cluster as a private resource.
	broken = append([]byte{}, b...)
	leaf := len(broken) - 2*4
	binary.LittleEndian.PutUint32(broken[leaf:], acpi.HeaderSize+CacheSize)
	acpi.Finalize(broken)
	table, err = Parse(broken)
	require.NoError(t, err)
	assert.Error(t, table.Validate())
}

func TestParseErrors(t *testing.T) {
	b, err := generate(t, fdttest.TwoHarts(), 2, topology.Options{})
	require.NoError(t, err)

	broken := append([]byte{}, b...)
	broken[acpi.HeaderSize+1] = 0
	acpi.Finalize(broken)
	_, err = Parse(broken)
	assert.True(t, errors.Is(err, acpi.ErrSchemaViolation), err)

	// Claim more private resources than the leaf holds.
	broken = append([]byte{}, b...)
	binary.LittleEndian.PutUint32(broken[len(broken)-LeafSize+16:], 3)
	acpi.Finalize(broken)
	_, err = Parse(broken)
	assert.True(t, errors.Is(err, acpi.ErrSchemaViolation), err)

	_, err = Parse(b[:len(b)-4])
	assert.Error(t, err)
}
