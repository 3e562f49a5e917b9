// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fdt

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched (errors.Is) by every lookup failure: missing
	// nodes, missing properties and dangling phandles.
	ErrNotFound = errors.New("not found in device tree")

	// ErrMalformed is matched by errors about properties or blobs which are
	// present but cannot be decoded.
	ErrMalformed = errors.New("malformed device tree")
)

// HeaderError means the blob does not start with a valid FDT header.
type HeaderError struct {
	Reason string
}

func (err *HeaderError) Error() string {
	return fmt.Sprintf("invalid FDT header: %s", err.Reason)
}

// Unwrap returns ErrNotFound: a blob with a broken header is handled as if
// there was no device tree at all.
func (err *HeaderError) Unwrap() error {
	return ErrNotFound
}

// NodeError means a node could not be located.
type NodeError struct {
	What string
}

func (err *NodeError) Error() string {
	return fmt.Sprintf("node %s not found", err.What)
}

// Unwrap returns ErrNotFound.
func (err *NodeError) Unwrap() error {
	return ErrNotFound
}

// PropertyMissingError means a required property is absent.
type PropertyMissingError struct {
	Node     string
	Property string
}

func (err *PropertyMissingError) Error() string {
	return fmt.Sprintf("%s: missing property %q", err.Node, err.Property)
}

// Unwrap returns ErrNotFound.
func (err *PropertyMissingError) Unwrap() error {
	return ErrNotFound
}

// PropertyLengthError means a property has a length which is not a multiple
// of the expected element size, or is too short.
type PropertyLengthError struct {
	Node     string
	Property string
	Length   int
	Multiple int
}

func (err *PropertyLengthError) Error() string {
	return fmt.Sprintf("%s: property %q has length %d, want a non-zero multiple of %d",
		err.Node, err.Property, err.Length, err.Multiple)
}

// Unwrap returns ErrMalformed.
func (err *PropertyLengthError) Unwrap() error {
	return ErrMalformed
}

// PHandleError means a phandle reference does not resolve to any node.
type PHandleError struct {
	Node     string
	Property string
	PHandle  uint32
}

func (err *PHandleError) Error() string {
	return fmt.Sprintf("%s: property %q references unknown phandle %#x", err.Node, err.Property, err.PHandle)
}

// Unwrap returns ErrNotFound.
func (err *PHandleError) Unwrap() error {
	return ErrNotFound
}
