// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package acpi holds what the RISC-V table generators share: the system
// description header, the fixed capacity table buffer, checksums and the
// error taxonomy.
package acpi

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/xaionaro-go/bytesextra"
)

// HeaderSize is the size of the system description table header.
const HeaderSize = 36

// Offsets of the header fields patched when a table is finalized.
const (
	lengthOffset   = 4
	checksumOffset = 9
)

// Signature is the four character table identifier.
type Signature [4]byte

func (s Signature) String() string {
	return string(s[:])
}

// Table signatures produced or recognized by the generators.
var (
	SignatureMADT = Signature{'A', 'P', 'I', 'C'}
	SignatureRHCT = Signature{'R', 'H', 'C', 'T'}
	SignaturePPTT = Signature{'P', 'P', 'T', 'T'}
)

// ParseSignature converts a four character string into a Signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	if len(s) != len(sig) {
		return sig, fmt.Errorf("signature %q is not %d characters long", s, len(sig))
	}
	copy(sig[:], s)
	return sig, nil
}

// OEM identifies the platform in every table header.
type OEM struct {
	ID              [6]byte
	TableID         [8]byte
	Revision        uint32
	CreatorID       [4]byte
	CreatorRevision uint32
}

// NewOEM builds an OEM from strings, padding the identifiers with spaces.
func NewOEM(id, tableID string, revision uint32, creatorID string, creatorRevision uint32) (OEM, error) {
	oem := OEM{Revision: revision, CreatorRevision: creatorRevision}
	for _, f := range []struct {
		name string
		dst  []byte
		src  string
	}{
		{"OEM ID", oem.ID[:], id},
		{"OEM table ID", oem.TableID[:], tableID},
		{"creator ID", oem.CreatorID[:], creatorID},
	} {
		if len(f.src) > len(f.dst) {
			return OEM{}, fmt.Errorf("%s %q is longer than %d characters", f.name, f.src, len(f.dst))
		}
		copy(f.dst, f.src+strings.Repeat(" ", len(f.dst)-len(f.src)))
	}
	return oem, nil
}

// Header is the system description table header which starts every table.
type Header struct {
	Signature       Signature
	Length          uint32
	Revision        uint8
	Checksum        uint8
	OEMID           [6]byte
	OEMTableID      [8]byte
	OEMRevision     uint32
	CreatorID       [4]byte
	CreatorRevision uint32
}

// NewHeader returns the header of a table with the given identity. Length
// and Checksum are filled by Finalize.
func NewHeader(sig Signature, revision uint8, oem OEM) Header {
	return Header{
		Signature:       sig,
		Revision:        revision,
		OEMID:           oem.ID,
		OEMTableID:      oem.TableID,
		OEMRevision:     oem.Revision,
		CreatorID:       oem.CreatorID,
		CreatorRevision: oem.CreatorRevision,
	}
}

// OEM returns the identity fields of the header.
func (h Header) OEM() OEM {
	return OEM{
		ID:              h.OEMID,
		TableID:         h.OEMTableID,
		Revision:        h.OEMRevision,
		CreatorID:       h.CreatorID,
		CreatorRevision: h.CreatorRevision,
	}
}

// Summary prints a multi-line summary of the header's content.
func (h Header) Summary() string {
	s := fmt.Sprintf("Signature        : %s\n", h.Signature)
	s += fmt.Sprintf("Length           : %#x %d\n", h.Length, h.Length)
	s += fmt.Sprintf("Revision         : %d\n", h.Revision)
	s += fmt.Sprintf("Checksum         : %#02x\n", h.Checksum)
	s += fmt.Sprintf("OEM ID           : %q\n", string(h.OEMID[:]))
	s += fmt.Sprintf("OEM Table ID     : %q\n", string(h.OEMTableID[:]))
	s += fmt.Sprintf("OEM Revision     : %#x\n", h.OEMRevision)
	s += fmt.Sprintf("Creator ID       : %q\n", string(h.CreatorID[:]))
	s += fmt.Sprintf("Creator Revision : %#x\n", h.CreatorRevision)
	return s
}

// ParseHeader decodes the header at the start of b and checks that the
// length it reports fits into b.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, &ErrTableLength{Length: HeaderSize, Have: len(b)}
	}
	var h Header
	if err := binary.Read(bytesextra.NewReadWriteSeeker(b[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("unable to decode the table header: %w", err)
	}
	if h.Length < HeaderSize || int(h.Length) > len(b) {
		return nil, &ErrTableLength{Signature: h.Signature, Length: h.Length, Have: len(b)}
	}
	return &h, nil
}

// ReadTable validates a complete table with the expected signature and
// returns its header and the bytes following the header.
func ReadTable(b []byte, sig Signature) (*Header, []byte, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, nil, err
	}
	if h.Signature != sig {
		return nil, nil, &ErrUnexpectedSignature{Expected: sig, Actual: h.Signature}
	}
	b = b[:h.Length]
	if err := VerifyChecksum(b); err != nil {
		return nil, nil, err
	}
	return h, b[HeaderSize:], nil
}
