// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands"
	"github.com/linuxboot/rvacpi/pkg/compression"
	"github.com/linuxboot/rvacpi/pkg/log"
	"github.com/linuxboot/rvacpi/pkg/platform"
)

var _ commands.Command = (*Command)(nil)

// Command generates the tables into a directory.
type Command struct {
	commands.PlatformOptions

	Output   string   `short:"o" long:"out" description:"output directory" default:"."`
	Compress string   `long:"compress" description:"compress the written tables [xz, lz4, zstd, gzip, zlib]"`
	XZPath   string   `long:"xz-path" description:"use this xz binary instead of the built-in xz encoder"`
	Tables   []string `short:"t" long:"table" description:"table to generate, repeatable [madt, rhct, pptt]; all by default"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "generates MADT, RHCT and PPTT from a device tree"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return `Every table is generated independently: a table which cannot be
built is reported and the others are still written.`
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	inst := &platform.DirInstaller{Dir: cmd.Output}
	if cmd.Compress != "" {
		c, err := compression.ByName(cmd.Compress, cmd.XZPath)
		if err != nil {
			return commands.ErrArgs{Err: err}
		}
		inst.Compressor = c
	}

	p, err := cmd.Platform(inst)
	if err != nil {
		return err
	}

	installers, err := selectTables(p, cmd.Tables)
	if err != nil {
		return commands.ErrArgs{Err: err}
	}
	var result *multierror.Error
	for _, name := range sortedNames(installers) {
		if err := installers[name](); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
			continue
		}
		log.Infof("%s written", name)
	}
	return result.ErrorOrNil()
}

func allTables(p *platform.Platform) map[string]func() error {
	return map[string]func() error{
		"madt": p.InstallMadtTable,
		"rhct": p.InstallRhctTable,
		"pptt": p.InstallPpttTable,
	}
}

func selectTables(p *platform.Platform, names []string) (map[string]func() error, error) {
	all := allTables(p)
	if len(names) == 0 {
		return all, nil
	}
	selected := map[string]func() error{}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		install, ok := all[name]
		if !ok {
			return nil, fmt.Errorf("unknown table '%s'", name)
		}
		selected[name] = install
	}
	return selected, nil
}

// sortedNames keeps the output stable: MADT first, the order firmware
// installs them in.
func sortedNames(m map[string]func() error) []string {
	var out []string
	for _, name := range []string{"madt", "rhct", "pptt"} {
		if _, ok := m[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
