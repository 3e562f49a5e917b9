// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platform ties the table generators to a board: its profile, the
// source of its device tree and the installer receiving the tables.
//
// Each Install method is independent. It reads the device tree again,
// builds one table and installs it, so that a failure of one table leaves
// the others unaffected.
package platform

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/acpi/madt"
	"github.com/linuxboot/rvacpi/pkg/acpi/pptt"
	"github.com/linuxboot/rvacpi/pkg/acpi/rhct"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/log"
	"github.com/linuxboot/rvacpi/pkg/topology"
)

// Platform is a board ready to have its tables installed.
type Platform struct {
	Profile   Profile
	Source    Source
	Installer Installer

	// Logger receives the diagnostics, log.DefaultLogger when nil.
	Logger log.Logger
}

func (p *Platform) logger() log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.DefaultLogger
}

func (p *Platform) options() topology.Options {
	return topology.Options{Strict: p.Profile.StrictCaches, Logger: p.logger()}
}

// Tree loads and indexes the device tree of the platform. A missing or
// unreadable blob is reported as acpi.ErrNotFound.
func (p *Platform) Tree() (*fdt.Tree, error) {
	if p.Source == nil {
		return nil, fmt.Errorf("%w: no device tree source", acpi.ErrNotFound)
	}
	blob, err := p.Source.DeviceTree()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", acpi.ErrNotFound, p.Source, err)
	}
	t, err := fdt.Load(blob)
	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, fdt.ErrMalformed):
		return nil, fmt.Errorf("%w: %s: %v", acpi.ErrSchemaViolation, p.Source, err)
	default:
		return nil, fmt.Errorf("%w: %s: %v", acpi.ErrNotFound, p.Source, err)
	}
}

type generator func(t *fdt.Tree, cfg acpi.Config, opts topology.Options) ([]byte, error)

func (p *Platform) install(sig acpi.Signature, generate generator) error {
	err := p.installTable(sig, generate)
	if err != nil {
		p.logger().Errorf("%s not installed: %v", sig, err)
	}
	return err
}

func (p *Platform) installTable(sig acpi.Signature, generate generator) error {
	if p.Installer == nil {
		return fmt.Errorf("%w: no installer", acpi.ErrInstall)
	}
	cfg, err := p.Profile.Config()
	if err != nil {
		return err
	}
	t, err := p.Tree()
	if err != nil {
		return err
	}
	table, err := generate(t, cfg, p.options())
	if err != nil {
		return fmt.Errorf("%s: %w", sig, err)
	}
	key, err := p.Installer.InstallTable(sig, table)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", acpi.ErrInstall, sig, err)
	}
	p.logger().Infof("%s installed, %d bytes, key %d", sig, len(table), key)
	return nil
}

// InstallMadtTable builds and installs the MADT.
func (p *Platform) InstallMadtTable() error {
	return p.install(acpi.SignatureMADT, madt.Generate)
}

// InstallRhctTable builds and installs the RHCT.
func (p *Platform) InstallRhctTable() error {
	return p.install(acpi.SignatureRHCT, func(t *fdt.Tree, cfg acpi.Config, _ topology.Options) ([]byte, error) {
		return rhct.Generate(t, cfg)
	})
}

// InstallPpttTable builds and installs the PPTT.
func (p *Platform) InstallPpttTable() error {
	return p.install(acpi.SignaturePPTT, pptt.Generate)
}

// InstallAll installs the MADT, the RHCT and the PPTT. Every table is
// attempted, and the errors of those which failed are returned together.
func (p *Platform) InstallAll() error {
	var result *multierror.Error
	for _, install := range []func() error{p.InstallMadtTable, p.InstallRhctTable, p.InstallPpttTable} {
		if err := install(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
