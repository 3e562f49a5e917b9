// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hob walks a PI hand-off block list, as left in memory by the boot
// phases preceding DXE, to find the records the table generators need.
package hob

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/xaionaro-go/bytesextra"

	"github.com/linuxboot/rvacpi/pkg/guid"
)

// Type is the type of a HOB.
type Type uint16

// HOB types.
const (
	TypeHandoff            Type = 0x0001
	TypeMemoryAllocation   Type = 0x0002
	TypeResourceDescriptor Type = 0x0003
	TypeGUIDExtension      Type = 0x0004
	TypeFirmwareVolume     Type = 0x0005
	TypeCPU                Type = 0x0006
	TypeMemoryPool         Type = 0x0007
	TypeFirmwareVolume2    Type = 0x0009
	TypeUEFICapsule        Type = 0x000B
	TypeFirmwareVolume3    Type = 0x000C
	TypeUnused             Type = 0xFFFE
	TypeEndOfList          Type = 0xFFFF
)

var typeNames = map[Type]string{
	TypeHandoff:            "Handoff",
	TypeMemoryAllocation:   "MemoryAllocation",
	TypeResourceDescriptor: "ResourceDescriptor",
	TypeGUIDExtension:      "GUIDExtension",
	TypeFirmwareVolume:     "FirmwareVolume",
	TypeCPU:                "CPU",
	TypeMemoryPool:         "MemoryPool",
	TypeFirmwareVolume2:    "FirmwareVolume2",
	TypeUEFICapsule:        "UEFICapsule",
	TypeFirmwareVolume3:    "FirmwareVolume3",
	TypeUnused:             "Unused",
	TypeEndOfList:          "EndOfList",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%#04x)", uint16(t))
}

// HeaderSize is the size of the header starting every HOB.
const HeaderSize = 8

// GUIDHeaderSize is the size of a GUID extension HOB without its data.
const GUIDHeaderSize = HeaderSize + guid.Size

// FDTGUID names the GUID extension HOB holding the 64-bit physical address
// of the flattened device tree.
var FDTGUID = *guid.MustParse("16958446-19B7-480B-B047-7485AD3F716D")

// Errors returned by the walker.
var (
	ErrNotFound  = errors.New("HOB not found")
	ErrMalformed = errors.New("malformed HOB list")
)

// Header starts every HOB.
type Header struct {
	Type     Type
	Length   uint16
	Reserved uint32
}

// HOB is one record of the list.
type HOB struct {
	Header
	// Offset of the HOB in the list.
	Offset int
	// Data follows the header, it is Length-HeaderSize bytes long.
	Data []byte
}

// GUID returns the name of a GUID extension HOB.
func (h HOB) GUID() (guid.GUID, bool) {
	var g guid.GUID
	if h.Type != TypeGUIDExtension || len(h.Data) < guid.Size {
		return g, false
	}
	copy(g[:], h.Data)
	return g, true
}

// GUIDData returns the data of a GUID extension HOB, after its name.
func (h HOB) GUIDData() []byte {
	if h.Type != TypeGUIDExtension || len(h.Data) < guid.Size {
		return nil
	}
	return h.Data[guid.Size:]
}

// Parse walks the list in b up to the end of list HOB, which is required.
func Parse(b []byte) ([]HOB, error) {
	var hobs []HOB
	for off := 0; ; {
		if len(b)-off < HeaderSize {
			return nil, fmt.Errorf("%w: no end of list HOB before offset %#x", ErrMalformed, off)
		}
		var h Header
		if err := binary.Read(bytesextra.NewReadWriteSeeker(b[off:off+HeaderSize]), binary.LittleEndian, &h); err != nil {
			return nil, err
		}
		if h.Type == TypeEndOfList {
			return hobs, nil
		}
		if h.Length < HeaderSize || h.Length%8 != 0 || off+int(h.Length) > len(b) {
			return nil, fmt.Errorf("%w: %s HOB at %#x has length %d", ErrMalformed, h.Type, off, h.Length)
		}
		hobs = append(hobs, HOB{Header: h, Offset: off, Data: b[off+HeaderSize : off+int(h.Length)]})
		off += int(h.Length)
	}
}

// FindGUID returns the first GUID extension HOB named g.
func FindGUID(hobs []HOB, g guid.GUID) (*HOB, error) {
	for i := range hobs {
		if name, ok := hobs[i].GUID(); ok && name == g {
			return &hobs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no GUID extension %v", ErrNotFound, g)
}

// FDTAddress returns the device tree address held by the FDT HOB of the
// list in b. The HOB data must be exactly one 64-bit address.
func FDTAddress(b []byte) (uint64, error) {
	hobs, err := Parse(b)
	if err != nil {
		return 0, err
	}
	h, err := FindGUID(hobs, FDTGUID)
	if err != nil {
		return 0, err
	}
	data := h.GUIDData()
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: FDT HOB at %#x carries %d bytes, want 8", ErrMalformed, h.Offset, len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}
