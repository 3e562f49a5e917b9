// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify

import (
	"fmt"
	"os"

	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands"
	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/compression"
	"github.com/linuxboot/rvacpi/pkg/log"
	"github.com/linuxboot/rvacpi/pkg/platform"
)

var _ commands.Command = (*Command)(nil)

// Command checks tables, either given as files or generated in memory.
type Command struct {
	commands.PlatformOptions
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "checks table files or freshly generated tables"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return `Without arguments the tables are generated in memory from the device
tree selected by --dtb or --hob-list. Each table must carry a valid
checksum and decode cleanly, the PPTT references must land on structures
of the right type, and the three tables must agree on the processor UIDs.`
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if err := cmd.Setup(); err != nil {
		return err
	}

	var tables []named
	if len(args) == 0 {
		mem := &platform.MemInstaller{}
		p, err := cmd.Platform(mem)
		if err != nil {
			return err
		}
		if err := p.InstallAll(); err != nil {
			return err
		}
		for _, sig := range mem.Signatures() {
			b, _ := mem.Table(sig)
			tables = append(tables, named{sig.String(), b})
		}
	} else {
		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			b, _, err := compression.Decompress(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			tables = append(tables, named{path, b})
		}
	}
	return check(tables)
}

type named struct {
	name string
	data []byte
}

// check checks every table on its own and then all of them together.
func check(tables []named) error {
	var (
		ts     platform.Tables
		failed []string
	)
	for _, t := range tables {
		if err := acpi.VerifyChecksum(t.data); err != nil {
			log.Errorf("%s: %v", t.name, err)
			failed = append(failed, t.name)
			continue
		}
		sig, err := ts.Decode(t.data)
		if err != nil {
			log.Errorf("%s: %v", t.name, err)
			failed = append(failed, t.name)
			continue
		}
		log.Infof("%s: %s OK", t.name, sig)
	}
	if err := ts.CrossCheck(); err != nil {
		log.Errorf("cross check: %v", err)
		failed = append(failed, "cross check")
	}
	if len(failed) > 0 {
		return commands.ErrVerification{Failed: failed}
	}
	return nil
}
