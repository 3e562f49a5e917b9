// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhct

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/fdt/fdttest"
	"github.com/linuxboot/rvacpi/pkg/topology"
)

func testConfig(t *testing.T, maxHarts int) acpi.Config {
	oem, err := acpi.NewOEM("VETANA", "ORBITER", 1, "VNTN", 1)
	require.NoError(t, err)
	return acpi.Config{OEM: oem, MaxHarts: maxHarts}
}

func generate(t *testing.T, s *fdttest.SoC, maxHarts int) ([]byte, error) {
	tree, err := fdt.Load(s.Blob(t))
	require.NoError(t, err)
	return Generate(tree, testConfig(t, maxHarts))
}

func TestStructureSizes(t *testing.T) {
	assert.Equal(t, HeaderSize, binary.Size(Header{}))
	assert.Equal(t, ISAHeaderSize, binary.Size(isaNodeHeader{}))
	assert.Equal(t, CMOSize, binary.Size(CMONode{}))
	assert.Equal(t, HartInfoSize, binary.Size(hartInfoHeader{})+8)
	assert.Equal(t, numNodesOffset, HeaderSize-binary.Size(nodeTail{}))
}

func TestGenerate(t *testing.T) {
	s := fdttest.Uniform(3)
	s.Harts[1].Status = "disabled"
	for i := range s.Harts {
		s.Harts[i].CBOP = 64
	}
	s.TimebaseFrequency = 1000000

	b, err := generate(t, s, 4)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), acpi.Checksum(b))

	table, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, acpi.SignatureRHCT, table.Header.Signature)
	assert.Equal(t, uint64(1000000), table.Header.TimerFrequency)
	assert.Equal(t, uint32(2+2), table.Header.NumNodes)
	assert.Equal(t, uint32(HeaderSize), table.Header.NodeOffset)

	require.Len(t, table.ISA, 1)
	isa := table.ISA[0]
	assert.Equal(t, table.Header.NodeOffset, isa.Offset)
	assert.Equal(t, fdttest.DefaultISA, isa.ISA)
	assert.Equal(t, uint16(len(fdttest.DefaultISA)+1), isa.ISALength)
	assert.Zero(t, isa.Length%2)

	require.Len(t, table.CMO, 1)
	cmo := table.CMO[0]
	assert.Equal(t, uint32(HeaderSize)+uint32(isa.Length), cmo.Offset)
	assert.Equal(t, uint8(6), cmo.CBOMBlockSize)
	assert.Equal(t, uint8(6), cmo.CBOPBlockSize)
	assert.Equal(t, uint8(6), cmo.CBOZBlockSize)

	require.Len(t, table.HartInfo, 2)
	for _, h := range table.HartInfo {
		assert.Equal(t, []uint32{isa.Offset, cmo.Offset}, h.Offsets)
		assert.Equal(t, uint16(HartInfoSize), h.Length)
	}
	// UIDs match the MADT: the disabled hart keeps its slot.
	assert.Equal(t, uint32(0), table.HartInfo[0].ACPIProcessorUID)
	assert.Equal(t, uint32(2), table.HartInfo[1].ACPIProcessorUID)
	assert.Len(t, b, HeaderSize+int(isa.Length)+CMOSize+2*HartInfoSize)
}

func TestISAPadding(t *testing.T) {
	for _, isa := range []string{"rv64i", "rv64im"} {
		info := &topology.CPUInfo{ISA: isa, Harts: []topology.Hart{{Enabled: true}}}
		b, err := Build(info, testConfig(t, 1))
		require.NoError(t, err)
		table, err := Parse(b)
		require.NoError(t, err)
		n := table.ISA[0]
		assert.Equal(t, isa, n.ISA)
		assert.Equal(t, uint16(len(isa)+1), n.ISALength)
		assert.Equal(t, uint16(ISAHeaderSize+len(isa)+1+(len(isa)+1)%2), n.Length)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	first, err := generate(t, fdttest.TwoHarts(), 2)
	require.NoError(t, err)
	second, err := generate(t, fdttest.TwoHarts(), 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateErrors(t *testing.T) {
	s := fdttest.TwoHarts()
	s.Harts[0].Status = "disabled"
	_, err := generate(t, s, 2)
	assert.True(t, errors.Is(err, acpi.ErrNotFound), err)

	s = fdttest.TwoHarts()
	s.Harts[0].NoISA = true
	_, err = generate(t, s, 2)
	assert.True(t, errors.Is(err, acpi.ErrNotFound), err)

	_, err = generate(t, fdttest.Uniform(3), 2)
	assert.True(t, errors.Is(err, acpi.ErrOutOfResources), err)

	s = fdttest.Uniform(2)
	s.Harts[1].ISA = "rv64imac"
	_, err = generate(t, s, 2)
	assert.True(t, errors.Is(err, acpi.ErrUnsupportedTopology), err)

	info := &topology.CPUInfo{ISA: strings.Repeat("x", MaxISALength), Harts: []topology.Hart{{Enabled: true}}}
	_, err = Build(info, testConfig(t, 1))
	assert.True(t, errors.Is(err, acpi.ErrOutOfResources), err)
}

func TestParseErrors(t *testing.T) {
	b, err := generate(t, fdttest.TwoHarts(), 2)
	require.NoError(t, err)

	broken := append([]byte{}, b...)
	binary.LittleEndian.PutUint32(broken[numNodesOffset:], 9)
	acpi.Finalize(broken)
	_, err = Parse(broken)
	assert.True(t, errors.Is(err, acpi.ErrSchemaViolation), err)

	broken = append([]byte{}, b...)
	binary.LittleEndian.PutUint32(broken[numNodesOffset+4:], 4)
	acpi.Finalize(broken)
	_, err = Parse(broken)
	assert.True(t, errors.Is(err, acpi.ErrSchemaViolation), err)

	_, err = Parse(b[:len(b)-1])
	assert.Error(t, err)
}
