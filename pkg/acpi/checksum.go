// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acpi

import (
	"encoding/binary"
)

// Checksum returns the 8-bit sum of every byte of b.
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return sum
}

// Finalize stores len(b) into the header Length field and then sets the
// checksum byte so that all the bytes of b sum to zero.
func Finalize(b []byte) {
	if len(b) < HeaderSize {
		return
	}
	binary.LittleEndian.PutUint32(b[lengthOffset:], uint32(len(b)))
	b[checksumOffset] = 0
	b[checksumOffset] = -Checksum(b)
}

// VerifyChecksum checks that the bytes of a complete table sum to zero.
func VerifyChecksum(b []byte) error {
	if sum := Checksum(b); sum != 0 {
		var sig Signature
		copy(sig[:], b)
		return &ErrChecksum{Signature: sig, Sum: sum}
	}
	return nil
}
