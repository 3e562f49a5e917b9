// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands"
	"github.com/linuxboot/rvacpi/pkg/acpi/pretty"
	"github.com/linuxboot/rvacpi/pkg/topology"
)

var _ commands.Command = (*Command)(nil)

// Command prints the extracted topology.
type Command struct {
	commands.PlatformOptions

	Format string `long:"format" description:"output format [text, json]" default:"text"`
}

type Format int

const (
	FormatUndefined = Format(iota)
	FormatText
	FormatJSON
)

func ParseFormat(s string) Format {
	switch strings.Trim(strings.ToLower(s), " ") {
	case "text":
		return FormatText
	case "json":
		return FormatJSON
	}
	return FormatUndefined
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "prints the harts, interrupt controllers and caches of a device tree"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return ""
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}
	format := ParseFormat(cmd.Format)
	if format == FormatUndefined {
		return commands.ErrArgs{Err: fmt.Errorf("unknown format '%s'", cmd.Format)}
	}

	t, p, err := cmd.Tree()
	if err != nil {
		return err
	}
	topo, err := topology.Extract(t, topology.Options{Strict: p.Profile.StrictCaches})
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(topo, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", b)
	case FormatText:
		Print(os.Stdout, topo)
	}
	return nil
}

// Print renders topo as text.
func Print(w io.Writer, topo *topology.Topology) {
	cpu := topo.CPU
	fmt.Fprintln(w, pretty.Header(0, "CPUs", nil))
	fmt.Fprintln(w, pretty.SubValue(1, "ISA", "", cpu.ISA))
	fmt.Fprintln(w, pretty.SubValue(1, "Timebase Frequency", "", cpu.TimebaseFrequency))
	fmt.Fprintf(w, "  CBO block sizes: M %d P %d Z %d\n",
		blockSize(cpu.CBOMBlockSizeLog2), blockSize(cpu.CBOPBlockSizeLog2), blockSize(cpu.CBOZBlockSizeLog2))

	harts := table.NewWriter()
	harts.SetOutputMirror(w)
	harts.SetTitle("Harts")
	harts.AppendHeader(table.Row{"UID", "Hart ID", "Enabled", "Path"})
	for _, h := range cpu.Harts {
		harts.AppendRow(table.Row{h.UID, h.ID, h.Enabled, h.Path})
	}
	harts.Render()

	if m := topo.IMSIC; m != nil {
		fmt.Fprint(w, pretty.Struct(1, "IMSIC "+m.Path, struct {
			NumIDs, NumGuestIDs                                            uint32
			GuestIndexBits, HartIndexBits, GroupIndexBits, GroupIndexShift uint8
		}{m.NumIDs, m.NumGuestIDs, m.GuestIndexBits, m.HartIndexBits, m.GroupIndexBits, m.GroupIndexShift}))
		files := table.NewWriter()
		files.SetOutputMirror(w)
		files.SetTitle("Interrupt Files")
		files.AppendHeader(table.Row{"UID", "Hart ID", "Base", "Size"})
		for _, f := range m.Files {
			files.AppendRow(table.Row{f.UID, f.ID, fmt.Sprintf("%#x", f.Base), pretty.Size(uint64(f.Size))})
		}
		files.Render()
	}
	if a := topo.APLIC; a != nil {
		fmt.Fprint(w, pretty.Struct(1, "APLIC "+a.Path, *a))
	}

	caches := table.NewWriter()
	caches.SetOutputMirror(w)
	caches.SetTitle("Caches")
	caches.AppendHeader(table.Row{"Core", "Level", "Size", "Sets", "Ways", "Line", "From"})
	addCache := func(core, level string, c topology.Cache) {
		from := c.Path
		if from == "" {
			from = "(default)"
		}
		caches.AppendRow(table.Row{core, level, pretty.Size(uint64(c.Size)), c.Sets, c.Associativity, c.LineSize, from})
	}
	addCache("*", "L3", topo.Caches.L3)
	for _, core := range topo.Caches.Cores {
		id := fmt.Sprint(core.Index)
		addCache(id, "L1I", core.L1I)
		addCache(id, "L1D", core.L1D)
		addCache(id, "L2", core.L2)
	}
	caches.Render()
}

func blockSize(log2 uint8) uint64 {
	if log2 == 0 {
		return 0
	}
	return 1 << log2
}
