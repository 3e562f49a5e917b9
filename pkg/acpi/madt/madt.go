// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package madt generates and decodes the Multiple APIC Description Table of
// RISC-V platforms: one RINTC per hart interrupt file, the IMSIC and the
// optional APLIC.
package madt

import (
	"fmt"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/topology"
)

// MaxSize returns the size of the largest MADT describing maxHarts harts.
func MaxSize(maxHarts int) uint32 {
	return uint32(HeaderSize + RINTCSize*maxHarts + IMSICSize + APLICSize)
}

// Generate extracts the interrupt controller topology of t and builds the
// MADT describing it.
func Generate(t *fdt.Tree, cfg acpi.Config, opts topology.Options) ([]byte, error) {
	if _, err := topology.Harts(t); err != nil {
		return nil, err
	}
	imsic, err := topology.FindIMSIC(t, opts)
	if err != nil {
		return nil, fmt.Errorf("IMSIC: %w", err)
	}
	aplic, err := topology.FindAPLIC(t)
	if err != nil {
		return nil, fmt.Errorf("APLIC: %w", err)
	}
	return Build(imsic, aplic, cfg)
}

// Build serializes the MADT: a RINTC for every IMSIC interrupt file, in
// order, followed by the IMSIC structure and, when aplic is not nil, the
// APLIC structure.
func Build(imsic *topology.IMSIC, aplic *topology.APLIC, cfg acpi.Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if imsic == nil || len(imsic.Files) == 0 {
		return nil, fmt.Errorf("%w: no IMSIC interrupt file", acpi.ErrNotFound)
	}
	if imsic.NumIDs > 0xffff || imsic.NumGuestIDs > 0xffff {
		return nil, fmt.Errorf("%w: IMSIC identities %d/%d do not fit 16 bits",
			acpi.ErrSchemaViolation, imsic.NumIDs, imsic.NumGuestIDs)
	}

	buf := acpi.NewBuffer(MaxSize(cfg.MaxHarts))
	if _, err := buf.Write(Header{Header: acpi.NewHeader(acpi.SignatureMADT, Revision, cfg.OEM)}); err != nil {
		return nil, err
	}
	for _, f := range imsic.Files {
		rintc := RINTC{
			Type:             TypeRINTC,
			Length:           RINTCSize,
			Version:          RINTCVersion,
			HartID:           f.ID,
			ACPIProcessorUID: f.UID,
			IMSICBaseAddress: f.Base,
			IMSICSize:        f.Size,
		}
		if f.Enabled {
			rintc.Flags |= RINTCFlagEnabled
		}
		if _, err := buf.Write(rintc); err != nil {
			return nil, fmt.Errorf("RINTC of hart %d: %w", f.ID, err)
		}
	}
	if _, err := buf.Write(IMSIC{
		Type:               TypeIMSIC,
		Length:             IMSICSize,
		Version:            IMSICVersion,
		NumIdentities:      uint16(imsic.NumIDs),
		NumGuestIdentities: uint16(imsic.NumGuestIDs),
		GuestIndexBits:     imsic.GuestIndexBits,
		HartIndexBits:      imsic.HartIndexBits,
		GroupIndexBits:     imsic.GroupIndexBits,
		GroupIndexShift:    imsic.GroupIndexShift,
	}); err != nil {
		return nil, fmt.Errorf("IMSIC: %w", err)
	}
	if aplic != nil {
		if aplic.Size > 0xffffffff {
			return nil, fmt.Errorf("%w: APLIC size %#x does not fit 32 bits", acpi.ErrSchemaViolation, aplic.Size)
		}
		if _, err := buf.Write(APLIC{
			Type:        TypeAPLIC,
			Length:      APLICSize,
			Version:     APLICVersion,
			HardwareID:  cfg.APLICHardwareID,
			NumIDCs:     aplic.NumIDCs,
			NumSources:  aplic.NumSources,
			GSIBase:     aplic.GSIBase,
			BaseAddress: aplic.Base,
			Size:        uint32(aplic.Size),
		}); err != nil {
			return nil, fmt.Errorf("APLIC: %w", err)
		}
	}
	return buf.Finalize()
}
