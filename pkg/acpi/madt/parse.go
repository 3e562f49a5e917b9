// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package madt

import (
	"encoding/binary"
	"fmt"

	"github.com/xaionaro-go/bytesextra"

	"github.com/linuxboot/rvacpi/pkg/acpi"
)

// Table is a decoded MADT.
type Table struct {
	Header Header
	RINTC  []RINTC
	IMSIC  []IMSIC
	APLIC  []APLIC

	// Unknown lists the types of the structures which were skipped.
	Unknown []StructureType
}

// Parse decodes a complete MADT, checking its signature, length and
// checksum.
func Parse(b []byte) (*Table, error) {
	if _, _, err := acpi.ReadTable(b, acpi.SignatureMADT); err != nil {
		return nil, err
	}
	var t Table
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: MADT header truncated", acpi.ErrSchemaViolation)
	}
	if err := binary.Read(bytesextra.NewReadWriteSeeker(b[:HeaderSize]), binary.LittleEndian, &t.Header); err != nil {
		return nil, err
	}
	if t.Header.Length < HeaderSize {
		return nil, fmt.Errorf("%w: MADT length %d is shorter than its %d byte header",
			acpi.ErrSchemaViolation, t.Header.Length, HeaderSize)
	}
	b = b[HeaderSize:t.Header.Length]
	for off := 0; off < len(b); {
		if len(b)-off < 2 {
			return nil, fmt.Errorf("%w: truncated structure at %#x", acpi.ErrSchemaViolation, HeaderSize+off)
		}
		typ, length := StructureType(b[off]), int(b[off+1])
		if length < 2 || off+length > len(b) {
			return nil, fmt.Errorf("%w: %s at %#x has length %d", acpi.ErrSchemaViolation, typ, HeaderSize+off, length)
		}
		data := b[off : off+length]
		var err error
		switch typ {
		case TypeRINTC:
			var v RINTC
			err = decode(data, RINTCSize, &v)
			t.RINTC = append(t.RINTC, v)
		case TypeIMSIC:
			var v IMSIC
			err = decode(data, IMSICSize, &v)
			t.IMSIC = append(t.IMSIC, v)
		case TypeAPLIC:
			var v APLIC
			err = decode(data, APLICSize, &v)
			t.APLIC = append(t.APLIC, v)
		default:
			t.Unknown = append(t.Unknown, typ)
		}
		if err != nil {
			return nil, fmt.Errorf("%s at %#x: %w", typ, HeaderSize+off, err)
		}
		off += length
	}
	return &t, nil
}

func decode(data []byte, size int, v interface{}) error {
	if len(data) < size {
		return fmt.Errorf("%w: length %d, want %d", acpi.ErrSchemaViolation, len(data), size)
	}
	return binary.Read(bytesextra.NewReadWriteSeeker(data[:size]), binary.LittleEndian, v)
}
