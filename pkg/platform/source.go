// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"fmt"
	"os"

	pkgbytes "github.com/linuxboot/rvacpi/pkg/bytes"
	"github.com/linuxboot/rvacpi/pkg/compression"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/hob"
	"github.com/linuxboot/rvacpi/pkg/log"
)

// Source provides the flattened device tree blob. Every table installation
// reads it again, so a source must return the same blob on every call for
// the tables to agree.
type Source interface {
	DeviceTree() ([]byte, error)
	String() string
}

// BlobSource is a device tree already in memory, raw or compressed.
type BlobSource []byte

// DeviceTree implements Source.
func (s BlobSource) DeviceTree() ([]byte, error) {
	b, _, err := compression.Decompress(s)
	return b, err
}

func (s BlobSource) String() string {
	return fmt.Sprintf("blob of %d bytes", len(s))
}

// FileSource reads a .dtb file, which may be compressed with any of the
// formats of package compression.
type FileSource string

// DeviceTree implements Source.
func (s FileSource) DeviceTree() ([]byte, error) {
	b, err := os.ReadFile(string(s))
	if err != nil {
		return nil, err
	}
	out, c, err := compression.Decompress(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	if c != nil {
		log.Debugf("%s: %s compressed device tree, %d bytes decoded", s, c.Name(), len(out))
	}
	return out, nil
}

func (s FileSource) String() string {
	return string(s)
}

// Memory is an image of physical memory starting at Base.
type Memory struct {
	Base uint64
	Data []byte
}

// Range returns the physical addresses the image covers.
func (m Memory) Range() pkgbytes.Range {
	return pkgbytes.Range{Offset: m.Base, Length: uint64(len(m.Data))}
}

// From returns the memory from addr to the end of the image.
func (m Memory) From(addr uint64) ([]byte, error) {
	if !m.Range().Contains(addr) {
		return nil, fmt.Errorf("address %#x is outside of memory %s", addr, m.Range())
	}
	return m.Data[addr-m.Base:], nil
}

// HOBSource finds the device tree the way the firmware does: through the
// FDT GUID extension HOB of the hand-off block list, which holds the
// physical address of the blob within Memory.
type HOBSource struct {
	HOBList []byte
	Memory  Memory
}

// DeviceTree implements Source.
func (s HOBSource) DeviceTree() ([]byte, error) {
	addr, err := hob.FDTAddress(s.HOBList)
	if err != nil {
		return nil, err
	}
	b, err := s.Memory.From(addr)
	if err != nil {
		return nil, fmt.Errorf("FDT HOB: %w", err)
	}
	h, err := fdt.ReadHeader(b)
	if err != nil {
		if pkgbytes.IsZeroFilled(b[:min(len(b), fdt.HeaderSize)]) {
			return nil, fmt.Errorf("no DTB found @ %#x, memory is zero filled: %w", addr, err)
		}
		return nil, fmt.Errorf("no DTB found @ %#x: %w", addr, err)
	}
	return b[:h.TotalSize], nil
}

func (s HOBSource) String() string {
	return fmt.Sprintf("HOB list of %d bytes, memory at %#x", len(s.HOBList), s.Memory.Base)
}
