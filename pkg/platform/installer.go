// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/compression"
)

// Installer publishes finished tables, like the ACPI table protocol of the
// firmware. The returned key identifies the installed table.
type Installer interface {
	InstallTable(sig acpi.Signature, table []byte) (key int, err error)
}

// DirInstaller writes every table to Dir as <SIG>.aml. When Compressor is
// set the file is compressed and gets the compressor name as an extra
// extension.
type DirInstaller struct {
	Dir        string
	Compressor compression.Compressor

	mu   sync.Mutex
	keys int
}

// Path returns the file a table with signature sig is written to.
func (d *DirInstaller) Path(sig acpi.Signature) string {
	name := sig.String() + ".aml"
	if d.Compressor != nil {
		name += "." + strings.ToLower(d.Compressor.Name())
	}
	return filepath.Join(d.Dir, name)
}

// InstallTable implements Installer.
func (d *DirInstaller) InstallTable(sig acpi.Signature, table []byte) (int, error) {
	data := table
	if d.Compressor != nil {
		var err error
		if data, err = d.Compressor.Encode(table); err != nil {
			return 0, fmt.Errorf("%s: %w", d.Compressor.Name(), err)
		}
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(d.Path(sig), data, 0o644); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys++
	return d.keys, nil
}

// MemInstaller keeps the installed tables in memory. Installing a table
// again replaces the previous one.
type MemInstaller struct {
	mu     sync.Mutex
	tables map[acpi.Signature][]byte
	keys   int
}

// InstallTable implements Installer.
func (m *MemInstaller) InstallTable(sig acpi.Signature, table []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables == nil {
		m.tables = map[acpi.Signature][]byte{}
	}
	m.tables[sig] = append([]byte{}, table...)
	m.keys++
	return m.keys, nil
}

// Table returns the installed table with signature sig.
func (m *MemInstaller) Table(sig acpi.Signature) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.tables[sig]
	return b, ok
}

// Signatures lists the installed tables, sorted.
func (m *MemInstaller) Signatures() []acpi.Signature {
	m.mu.Lock()
	defer m.mu.Unlock()
	sigs := make([]acpi.Signature, 0, len(m.tables))
	for sig := range m.tables {
		sigs = append(sigs, sig)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].String() < sigs[j].String() })
	return sigs
}
