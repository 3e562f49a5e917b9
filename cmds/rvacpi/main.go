// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// rvacpi generates the RISC-V ACPI processor tables (MADT, RHCT and PPTT)
// from a flattened device tree.
//
// Synopsis:
//     rvacpi build -d DTB [-b BOARD|-p PROFILE] [-o DIR] [options]
//     rvacpi dump TABLE...
//     rvacpi verify [-d DTB|TABLE...] [options]
//     rvacpi topology -d DTB [--format=json]
//
// An example:
//     rvacpi build -d board.dtb.xz -b orbiter -o out --compress zstd
//     rvacpi dump out/APIC.aml.zstd
//     rvacpi build --hob-list hobs.bin --memory dram.bin --memory-base $((16#80000000))
//
// Description:
//     build:    Generates the tables and writes them as <SIG>.aml files
//     dump:     Decodes and prints table files
//     verify:   Checks the checksum, layout and cross references of tables
//     topology: Prints what the generators read from the device tree
package main

import (
	"log"

	"github.com/jessevdk/go-flags"

	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands"
	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands/build"
	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands/dump"
	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands/topology"
	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands/verify"
)

var (
	knownCommands = map[string]commands.Command{
		"build":    &build.Command{},
		"dump":     &dump.Command{},
		"verify":   &verify.Command{},
		"topology": &topology.Command{},
	}
)

func main() {
	flagsParser := flags.NewParser(nil, flags.Default)
	for commandName, command := range knownCommands {
		_, err := flagsParser.AddCommand(commandName, command.ShortDescription(), command.LongDescription(), command)
		if err != nil {
			panic(err)
		}
	}

	if _, err := flagsParser.Parse(); err != nil {
		log.Fatal(err)
	}
}
