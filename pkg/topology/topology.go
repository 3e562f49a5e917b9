// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package topology extracts from a RISC-V device tree what the ACPI table
// generators describe: harts, their ISA and cache management capabilities,
// the IMSIC and APLIC interrupt controllers and the cache hierarchy.
//
// Only single socket, single cluster platforms with one supervisor IMSIC
// and at most one supervisor APLIC are supported. Anything else is rejected
// with acpi.ErrUnsupportedTopology rather than partially described.
package topology

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/log"
)

// PageShift is the log2 of the IMSIC MMIO page size.
const PageShift = 12

// PageSize is the IMSIC MMIO page size.
const PageSize = 1 << PageShift

// Options tunes the extraction.
type Options struct {
	// Strict makes a missing or unusable cache property an error. By default
	// the default cache geometry is used and a warning is logged.
	Strict bool

	// Logger receives the diagnostics, log.DefaultLogger when nil.
	Logger log.Logger
}

func (opts Options) logger() log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return log.DefaultLogger
}

// Hart is one RISC-V hardware thread.
type Hart struct {
	// ID is the hart ID, the "reg" of the cpu node.
	ID uint64
	// UID is the ACPI processor UID. UIDs are dense and follow the device
	// tree order, disabled harts included.
	UID uint32
	// Enabled is true when the cpu node status is absent, "okay" or "ok".
	Enabled bool
	// Path is the cpu node path.
	Path string
}

// Topology is everything the generators read from one device tree.
type Topology struct {
	CPU    *CPUInfo
	IMSIC  *IMSIC
	APLIC  *APLIC
	Caches *CacheTopology
}

// Extract runs every extractor over t. The errors of all the extractors are
// returned together.
func Extract(t *fdt.Tree, opts Options) (*Topology, error) {
	var (
		topo   Topology
		result *multierror.Error
		err    error
	)
	if topo.CPU, err = CPUs(t); err != nil {
		result = multierror.Append(result, fmt.Errorf("cpus: %w", err))
	}
	if topo.IMSIC, err = FindIMSIC(t, opts); err != nil {
		result = multierror.Append(result, fmt.Errorf("imsic: %w", err))
	}
	if topo.APLIC, err = FindAPLIC(t); err != nil {
		result = multierror.Append(result, fmt.Errorf("aplic: %w", err))
	}
	if topo.Caches, err = Caches(t, opts); err != nil {
		result = multierror.Append(result, fmt.Errorf("caches: %w", err))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &topo, nil
}

// classify maps device tree errors onto the ACPI status taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, acpi.ErrNotFound), errors.Is(err, acpi.ErrSchemaViolation),
		errors.Is(err, acpi.ErrUnsupportedTopology):
		return err
	case errors.Is(err, fdt.ErrMalformed):
		return fmt.Errorf("%w: %w", acpi.ErrSchemaViolation, err)
	case errors.Is(err, fdt.ErrNotFound):
		return fmt.Errorf("%w: %w", acpi.ErrNotFound, err)
	}
	return err
}

func notFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", acpi.ErrNotFound, fmt.Sprintf(format, args...))
}

func unsupported(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", acpi.ErrUnsupportedTopology, fmt.Sprintf(format, args...))
}

func schema(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", acpi.ErrSchemaViolation, fmt.Sprintf(format, args...))
}

// u8Prop reads a single cell property which must fit a byte.
func u8Prop(n *fdt.Node, name string, def uint8) (uint8, error) {
	v, err := n.OptionalU32(name, uint32(def))
	if err != nil {
		return 0, classify(err)
	}
	if v > 0xff {
		return 0, schema("%s: %q is %d, which does not fit 8 bits", n.Path(), name, v)
	}
	return uint8(v), nil
}
