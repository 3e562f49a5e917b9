// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guid handles the EFI GUIDs found in firmware hand-off data: the
// name of the HOB carrying the device tree and the HOB list and ACPI/SMBIOS
// configuration table GUIDs.
//
// A GUID is kept in its in-memory byte order, where the first three groups
// are little-endian, and printed in the usual registry format. Names maps
// the well known GUIDs to their EDK2 names and the transformer rewrites the
// GUIDs of dtinfo's HOB listing with those names.
package guid

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/linuxboot/rvacpi/pkg/log"
)

const (
	// Size is the length of a GUID in bytes.
	Size = 16
	// Example is the registry format Parse accepts. The hyphens are optional.
	Example = "01234567-89AB-CDEF-0123-456789ABCDEF"
)

// GUID is an EFI GUID in memory layout.
type GUID [Size]byte

// Parse decodes a GUID in registry format into its memory layout.
func Parse(s string) (*GUID, error) {
	raw, err := hex.DecodeString(strings.ReplaceAll(s, "-", ""))
	if err != nil {
		return nil, fmt.Errorf("GUID %q is not hexadecimal, expected the format %s", s, Example)
	}
	if len(raw) != Size {
		return nil, fmt.Errorf("GUID %q is %d bytes long, expected the format %s", s, len(raw), Example)
	}

	var g GUID
	binary.LittleEndian.PutUint32(g[0:], binary.BigEndian.Uint32(raw[0:]))
	binary.LittleEndian.PutUint16(g[4:], binary.BigEndian.Uint16(raw[4:]))
	binary.LittleEndian.PutUint16(g[6:], binary.BigEndian.Uint16(raw[6:]))
	copy(g[8:], raw[8:])
	return &g, nil
}

// MustParse is Parse for the GUID constants of the firmware interfaces. It
// exits on error.
func MustParse(s string) *GUID {
	g, err := Parse(s)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return g
}

// String returns g in registry format.
func (g GUID) String() string {
	return fmt.Sprintf("%08X-%04X-%04X-%X-%X",
		binary.LittleEndian.Uint32(g[0:]),
		binary.LittleEndian.Uint16(g[4:]),
		binary.LittleEndian.Uint16(g[6:]),
		g[8:10], g[10:])
}

// MarshalText implements encoding.TextMarshaler, so that GUIDs are written
// as strings in JSON and YAML documents.
func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GUID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}
