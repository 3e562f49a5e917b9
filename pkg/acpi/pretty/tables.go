// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pretty

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/acpi/madt"
	"github.com/linuxboot/rvacpi/pkg/acpi/pptt"
	"github.com/linuxboot/rvacpi/pkg/acpi/rhct"
)

func newTable(w io.Writer, title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(header)
	return t
}

func hex(v interface{}) string {
	return fmt.Sprintf("%#x", v)
}

// Dump decodes the table b according to its signature and renders it to w.
func Dump(w io.Writer, b []byte) error {
	hdr, err := acpi.ParseHeader(b)
	if err != nil {
		return err
	}
	switch hdr.Signature {
	case acpi.SignatureMADT:
		t, err := madt.Parse(b)
		if err != nil {
			return err
		}
		MADT(w, t)
	case acpi.SignatureRHCT:
		t, err := rhct.Parse(b)
		if err != nil {
			return err
		}
		RHCT(w, t)
	case acpi.SignaturePPTT:
		t, err := pptt.Parse(b)
		if err != nil {
			return err
		}
		PPTT(w, t)
	default:
		return fmt.Errorf("%w: no decoder for table %s", acpi.ErrNotFound, hdr.Signature)
	}
	return nil
}

// MADT renders a decoded MADT.
func MADT(w io.Writer, t *madt.Table) {
	fmt.Fprint(w, Struct(0, "MADT", t.Header))

	rintc := newTable(w, "RINTC", table.Row{"UID", "Hart ID", "Enabled", "IMSIC Base", "IMSIC Size", "Ext Intc ID"})
	for _, r := range t.RINTC {
		rintc.AppendRow(table.Row{r.ACPIProcessorUID, hex(r.HartID), r.Enabled(),
			hex(r.IMSICBaseAddress), Size(uint64(r.IMSICSize)), hex(r.ExternalInterruptCtrlID)})
	}
	rintc.Render()

	for _, m := range t.IMSIC {
		fmt.Fprint(w, Struct(1, "IMSIC", m))
	}
	for _, a := range t.APLIC {
		fmt.Fprint(w, Struct(1, "APLIC", a))
		fmt.Fprintln(w, SubValue(2, "Hardware ID String", acpi.HardwareIDString(a.HardwareID), nil))
	}
	if len(t.Unknown) > 0 {
		fmt.Fprintln(w, SubValue(1, "Unknown Structures", fmt.Sprint(t.Unknown), nil))
	}
}

// RHCT renders a decoded RHCT.
func RHCT(w io.Writer, t *rhct.Table) {
	fmt.Fprint(w, Struct(0, "RHCT", t.Header))

	nodes := newTable(w, "Nodes", table.Row{"Offset", "Type", "Length", "Revision", "Content"})
	for _, n := range t.ISA {
		nodes.AppendRow(table.Row{hex(n.Offset), n.Type, n.Length, n.Revision, n.ISA})
	}
	for _, n := range t.CMO {
		nodes.AppendRow(table.Row{hex(n.Offset), n.Type, n.Length, n.Revision,
			fmt.Sprintf("CBOM %d CBOP %d CBOZ %d", blockSize(n.CBOMBlockSize), blockSize(n.CBOPBlockSize), blockSize(n.CBOZBlockSize))})
	}
	for _, n := range t.HartInfo {
		offsets := make([]string, 0, len(n.Offsets))
		for _, off := range n.Offsets {
			offsets = append(offsets, hex(off))
		}
		nodes.AppendRow(table.Row{hex(n.Offset), n.Type, n.Length, n.Revision,
			fmt.Sprintf("UID %d -> %v", n.ACPIProcessorUID, offsets)})
	}
	nodes.Render()
}

func blockSize(log2 uint8) uint64 {
	if log2 == 0 {
		return 0
	}
	return 1 << log2
}

// PPTT renders a decoded PPTT.
func PPTT(w io.Writer, t *pptt.Table) {
	fmt.Fprint(w, Struct(0, "PPTT", t.Header))

	procs := newTable(w, "Processors", table.Row{"Offset", "Flags", "Parent", "ACPI ID", "Private Resources"})
	for _, p := range t.Processors {
		res := make([]string, 0, len(p.PrivateResources))
		for _, r := range p.PrivateResources {
			res = append(res, hex(r))
		}
		procs.AppendRow(table.Row{hex(p.Offset), hex(uint32(p.Flags)), hex(p.Parent), p.ACPIProcessorID, res})
	}
	procs.Render()

	caches := newTable(w, "Caches", table.Row{"Offset", "ID", "Attributes", "Size", "Sets", "Ways", "Line", "Next Level"})
	for _, c := range t.Caches {
		caches.AppendRow(table.Row{hex(c.Offset), c.CacheID, c.Attributes, Size(uint64(c.Size)),
			c.NumberOfSets, c.Associativity, c.LineSize, hex(c.NextLevelOfCache)})
	}
	caches.Render()
}
