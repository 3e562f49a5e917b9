// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package madt

import (
	"fmt"

	"github.com/linuxboot/rvacpi/pkg/acpi"
)

// Revision is the MADT revision of ACPI 6.5.
const Revision = 6

// StructureType is the type of an interrupt controller structure.
type StructureType uint8

// RISC-V interrupt controller structure types.
const (
	TypeRINTC StructureType = 0x18
	TypeIMSIC StructureType = 0x19
	TypeAPLIC StructureType = 0x1A
)

func (t StructureType) String() string {
	switch t {
	case TypeRINTC:
		return "RINTC"
	case TypeIMSIC:
		return "IMSIC"
	case TypeAPLIC:
		return "APLIC"
	}
	return fmt.Sprintf("StructureType(%#02x)", uint8(t))
}

// Structure versions.
const (
	RINTCVersion = 1
	IMSICVersion = 1
	APLICVersion = 1
)

// Structure sizes.
const (
	HeaderSize = acpi.HeaderSize + 8
	RINTCSize  = 36
	IMSICSize  = 16
	APLICSize  = 36
)

// RINTCFlagEnabled marks a usable hart.
const RINTCFlagEnabled = 1

// Header is the MADT header. The two x86 specific fields stay zero.
type Header struct {
	acpi.Header
	LocalInterruptControllerAddress uint32
	Flags                           uint32
}

// RINTC is the RISC-V Interrupt Controller structure of one hart.
type RINTC struct {
	Type                    StructureType
	Length                  uint8
	Version                 uint8
	Reserved                uint8
	Flags                   uint32
	HartID                  uint64
	ACPIProcessorUID        uint32
	ExternalInterruptCtrlID uint32
	IMSICBaseAddress        uint64
	IMSICSize               uint32
}

// Enabled reports whether RINTCFlagEnabled is set.
func (r RINTC) Enabled() bool {
	return r.Flags&RINTCFlagEnabled != 0
}

// IMSIC is the structure describing the IMSIC layout shared by all harts.
type IMSIC struct {
	Type               StructureType
	Length             uint8
	Version            uint8
	Reserved           uint8
	Flags              uint32
	NumIdentities      uint16
	NumGuestIdentities uint16
	GuestIndexBits     uint8
	HartIndexBits      uint8
	GroupIndexBits     uint8
	GroupIndexShift    uint8
}

// APLIC is the structure describing one APLIC domain.
type APLIC struct {
	Type        StructureType
	Length      uint8
	Version     uint8
	ID          uint8
	Flags       uint32
	HardwareID  uint64
	NumIDCs     uint16
	NumSources  uint16
	GSIBase     uint32
	BaseAddress uint64
	Size        uint32
}
