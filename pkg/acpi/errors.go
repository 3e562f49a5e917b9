// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acpi

import (
	"errors"
	"fmt"
)

// Status taxonomy shared by every table generator. A generator returning an
// error never returns a table.
var (
	// ErrNotFound means the device tree, or a node or property required by
	// the table, is absent or unusable.
	ErrNotFound = errors.New("not found")

	// ErrOutOfResources means the table does not fit the buffer allocated
	// for it.
	ErrOutOfResources = errors.New("out of resources")

	// ErrSchemaViolation means a property is present but has an unexpected
	// length or value.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrUnsupportedTopology means the platform is outside of what the
	// generators can describe (several clusters, IMSIC nodes or APLICs).
	ErrUnsupportedTopology = errors.New("unsupported topology")

	// ErrInstall means the table was generated but the installer rejected it.
	ErrInstall = errors.New("install failed")
)

// ErrBufferOverflow means a write would exceed the table buffer capacity.
type ErrBufferOverflow struct {
	Capacity uint32
	Need     uint32
}

func (err *ErrBufferOverflow) Error() string {
	return fmt.Sprintf("table needs %d bytes, buffer holds %d", err.Need, err.Capacity)
}

// Unwrap returns ErrOutOfResources.
func (err *ErrBufferOverflow) Unwrap() error {
	return ErrOutOfResources
}

// ErrChecksum means the bytes of a table do not sum to zero.
type ErrChecksum struct {
	Signature Signature
	Sum       uint8
}

func (err *ErrChecksum) Error() string {
	return fmt.Sprintf("table %s: bytes sum to %#02x, want 0", err.Signature, err.Sum)
}

// Unwrap returns ErrSchemaViolation.
func (err *ErrChecksum) Unwrap() error {
	return ErrSchemaViolation
}

// ErrTableLength means a table header reports a length which does not match
// the data.
type ErrTableLength struct {
	Signature Signature
	Length    uint32
	Have      int
}

func (err *ErrTableLength) Error() string {
	return fmt.Sprintf("table %s: header length %d, have %d bytes", err.Signature, err.Length, err.Have)
}

// Unwrap returns ErrSchemaViolation.
func (err *ErrTableLength) Unwrap() error {
	return ErrSchemaViolation
}

// ErrUnexpectedSignature means a table decoder was given another table.
type ErrUnexpectedSignature struct {
	Expected Signature
	Actual   Signature
}

func (err *ErrUnexpectedSignature) Error() string {
	return fmt.Sprintf("unexpected table signature %q, want %q", err.Actual, err.Expected)
}

// Unwrap returns ErrSchemaViolation.
func (err *ErrUnexpectedSignature) Unwrap() error {
	return ErrSchemaViolation
}
