// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acpi

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// Buffer is a table under construction. Its capacity is fixed when it is
// created from the worst case size of the table, and every write reports the
// table-relative offset it landed at, so that sub-structures can reference
// each other without any pointer arithmetic.
type Buffer struct {
	data []byte
	rws  io.ReadWriteSeeker
	size uint32
}

// NewBuffer allocates a zeroed buffer able to hold capacity bytes.
func NewBuffer(capacity uint32) *Buffer {
	data := make([]byte, capacity)
	return &Buffer{
		data: data,
		rws:  bytesextra.NewReadWriteSeeker(data),
	}
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() uint32 {
	return uint32(len(b.data))
}

// Len returns the number of bytes written so far, which is also the offset
// of the next write.
func (b *Buffer) Len() uint32 {
	return b.size
}

func (b *Buffer) reserve(n int) (uint32, error) {
	if n < 0 {
		return 0, fmt.Errorf("value has no fixed binary size")
	}
	need := uint64(b.size) + uint64(n)
	if need > uint64(len(b.data)) {
		return 0, &ErrBufferOverflow{Capacity: b.Cap(), Need: uint32(need)}
	}
	return b.size, nil
}

// Write appends the little-endian encoding of v, which must have a fixed
// size as defined by encoding/binary, and returns the offset it was written
// at.
func (b *Buffer) Write(v interface{}) (uint32, error) {
	off, err := b.reserve(binary.Size(v))
	if err != nil {
		return 0, err
	}
	if err := b.writeAt(off, v); err != nil {
		return 0, err
	}
	b.size += uint32(binary.Size(v))
	return off, nil
}

// WriteBytes appends p and returns the offset it was written at.
func (b *Buffer) WriteBytes(p []byte) (uint32, error) {
	off, err := b.reserve(len(p))
	if err != nil {
		return 0, err
	}
	b.size += uint32(copy(b.data[off:], p))
	return off, nil
}

// Align appends zero bytes until the length is a multiple of n.
func (b *Buffer) Align(n uint32) error {
	if n == 0 || b.size%n == 0 {
		return nil
	}
	_, err := b.WriteBytes(make([]byte, n-b.size%n))
	return err
}

// Patch overwrites already written bytes at off with the encoding of v. It
// is used for fields which are only known once later structures are placed.
func (b *Buffer) Patch(off uint32, v interface{}) error {
	n := binary.Size(v)
	if n < 0 || uint64(off)+uint64(n) > uint64(b.size) {
		return fmt.Errorf("patch of %d bytes at %#x is outside of the %d written bytes", n, off, b.size)
	}
	return b.writeAt(off, v)
}

func (b *Buffer) writeAt(off uint32, v interface{}) error {
	if _, err := b.rws.Seek(int64(off), io.SeekStart); err != nil {
		return err
	}
	return binary.Write(b.rws, binary.LittleEndian, v)
}

// Bytes returns the written part of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.size]
}

// Finalize fills the header Length and Checksum of the table held by the
// buffer and returns it. The buffer must start with a Header.
func (b *Buffer) Finalize() ([]byte, error) {
	if b.size < HeaderSize {
		return nil, &ErrTableLength{Length: HeaderSize, Have: int(b.size)}
	}
	table := b.Bytes()
	Finalize(table)
	return table, nil
}
