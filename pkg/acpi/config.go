// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acpi

import (
	"encoding/binary"
	"fmt"
)

// DefaultAPLICHardwareID is the APLIC _HID, "VNTN0001" packed little-endian.
const DefaultAPLICHardwareID uint64 = 0x313030304E544E56

// Config is the platform identity shared by the table generators.
type Config struct {
	OEM OEM

	// MaxHarts is the number of harts the table buffers are sized for.
	// Tables describing more harts fail with ErrOutOfResources.
	MaxHarts int

	// APLICHardwareID is the hardware ID advertised in the MADT APLIC
	// structure.
	APLICHardwareID uint64
}

// Validate checks the configuration can size a table.
func (cfg Config) Validate() error {
	if cfg.MaxHarts <= 0 {
		return fmt.Errorf("maximum hart count must be positive, got %d", cfg.MaxHarts)
	}
	return nil
}

// HardwareIDString returns the APLIC hardware ID as its ASCII form.
func (cfg Config) HardwareIDString() string {
	return HardwareIDString(cfg.APLICHardwareID)
}

// HardwareIDString unpacks a little-endian packed ASCII hardware ID.
func HardwareIDString(id uint64) string {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return string(b[:])
}

// ParseHardwareID packs an ASCII hardware ID of at most 8 characters.
func ParseHardwareID(s string) (uint64, error) {
	if len(s) > 8 {
		return 0, fmt.Errorf("hardware ID %q is longer than 8 characters", s)
	}
	var b [8]byte
	copy(b[:], s)
	return binary.LittleEndian.Uint64(b[:]), nil
}
