// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package madt

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
	return acpi.Config{OEM: oem, MaxHarts: maxHarts, APLICHardwareID: acpi.DefaultAPLICHardwareID}
}

func generate(t *testing.T, s *fdttest.SoC, maxHarts int) ([]byte, error) {
	tree, err := fdt.Load(s.Blob(t))
	require.NoError(t, err)
	return Generate(tree, testConfig(t, maxHarts), topology.Options{})
}

func TestStructureSizes(t *testing.T) {
	assert.Equal(t, HeaderSize, binary.Size(Header{}))
	assert.Equal(t, RINTCSize, binary.Size(RINTC{}))
	assert.Equal(t, IMSICSize, binary.Size(IMSIC{}))
	assert.Equal(t, APLICSize, binary.Size(APLIC{}))
}

func TestGenerateTwoHarts(t *testing.T) {
	b, err := generate(t, fdttest.TwoHarts(), 2)
	require.NoError(t, err)
	assert.Len(t, b, HeaderSize+2*RINTCSize+IMSICSize+APLICSize)
	assert.Equal(t, uint8(0), acpi.Checksum(b))

	table, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, acpi.SignatureMADT, table.Header.Signature)
	assert.Equal(t, uint8(Revision), table.Header.Revision)
	assert.Equal(t, uint32(len(b)), table.Header.Length)
	assert.Equal(t, "VNTANA", string(table.Header.OEMID[:]))

	require.Len(t, table.RINTC, 2)
	assert.Equal(t, RINTC{
		Type: TypeRINTC, Length: RINTCSize, Version: RINTCVersion,
		Flags: RINTCFlagEnabled, HartID: 0, ACPIProcessorUID: 0,
		IMSICBaseAddress: 0x28000000, IMSICSize: 0x2000,
	}, table.RINTC[0])
	assert.False(t, table.RINTC[1].Enabled())
	assert.Equal(t, uint64(1), table.RINTC[1].HartID)
	assert.Equal(t, uint32(1), table.RINTC[1].ACPIProcessorUID)
	assert.Equal(t, uint64(0x28002000), table.RINTC[1].IMSICBaseAddress)

	require.Len(t, table.IMSIC, 1)
	assert.Equal(t, IMSIC{
		Type: TypeIMSIC, Length: IMSICSize, Version: IMSICVersion,
		NumIdentities: 64, NumGuestIdentities: 64,
		HartIndexBits: 1, GroupIndexShift: 24,
	}, table.IMSIC[0])

	require.Len(t, table.APLIC, 1)
	assert.Equal(t, APLIC{
		Type: TypeAPLIC, Length: APLICSize, Version: APLICVersion,
		HardwareID: acpi.DefaultAPLICHardwareID, NumSources: 97,
		BaseAddress: 0xd000000, Size: 0x8000,
	}, table.APLIC[0])
	assert.Equal(t, "VNTN0001", acpi.HardwareIDString(table.APLIC[0].HardwareID))
}

func TestGenerateAllEnabled(t *testing.T) {
	for _, n := range []int{1, 2, 5, 16} {
		b, err := generate(t, fdttest.Uniform(n), 16)
		require.NoError(t, err, n)
		table, err := Parse(b)
		require.NoError(t, err)
		require.Len(t, table.RINTC, n)
		for i, r := range table.RINTC {
			assert.True(t, r.Enabled())
			assert.Equal(t, uint32(i), r.ACPIProcessorUID)
		}
		assert.Len(t, table.IMSIC, 1)
		assert.LessOrEqual(t, len(table.APLIC), 1)
	}
}

func TestGenerateWithoutAPLIC(t *testing.T) {
	s := fdttest.TwoHarts()
	s.APLIC = nil
	b, err := generate(t, s, 2)
	require.NoError(t, err)
	table, err := Parse(b)
	require.NoError(t, err)
	assert.Empty(t, table.APLIC)
	assert.Len(t, b, HeaderSize+2*RINTCSize+IMSICSize)
}

func TestGenerateIdempotent(t *testing.T) {
	s := fdttest.TwoHarts()
	first, err := generate(t, s, 4)
	require.NoError(t, err)
	second, err := generate(t, s, 4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateErrors(t *testing.T) {
	s := fdttest.Uniform(4)
	_, err := generate(t, s, 2)
	assert.True(t, errors.Is(err, acpi.ErrOutOfResources), err)

	s = fdttest.TwoHarts()
	s.Harts[0].Status = "disabled"
	_, err = generate(t, s, 2)
	assert.True(t, errors.Is(err, acpi.ErrNotFound), err)

	s = fdttest.TwoHarts()
	s.IMSIC = nil
	_, err = generate(t, s, 2)
	assert.True(t, errors.Is(err, acpi.ErrNotFound), err)

	_, err = Build(&topology.IMSIC{NumIDs: 0x10000, Files: []topology.InterruptFile{{}}}, nil, testConfig(t, 1))
	assert.True(t, errors.Is(err, acpi.ErrSchemaViolation), err)

	_, err = Build(&topology.IMSIC{Files: []topology.InterruptFile{{}}}, nil, acpi.Config{})
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	b, err := generate(t, fdttest.TwoHarts(), 2)
	require.NoError(t, err)

	broken := append([]byte{}, b...)
	broken[HeaderSize+1] = 1
	acpi.Finalize(broken)
	_, err = Parse(broken)
	assert.True(t, errors.Is(err, acpi.ErrSchemaViolation), err)

	broken = append([]byte{}, b...)
	broken[len(broken)-1] ^= 0xff
	_, err = Parse(broken)
	assert.True(t, errors.Is(err, acpi.ErrSchemaViolation), err)

	// Length covers the common ACPI header but not the MADT fields.
	short := append([]byte{}, b[:HeaderSize]...)
	acpi.Finalize(short[:HeaderSize-4])
	assert.NotPanics(t, func() {
		_, err = Parse(short)
	})
	assert.True(t, errors.Is(err, acpi.ErrSchemaViolation), err)

	unknown := append(append([]byte{}, b...), 0x7f, 4, 0, 0)
	acpi.Finalize(unknown)
	table, err := Parse(unknown)
	require.NoError(t, err)
	assert.Equal(t, []StructureType{0x7f}, table.Unknown)
}
