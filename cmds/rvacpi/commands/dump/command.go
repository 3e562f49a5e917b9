// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dump

import (
	"fmt"
	"io"
	"os"

	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands"
	"github.com/linuxboot/rvacpi/pkg/acpi/pretty"
	"github.com/linuxboot/rvacpi/pkg/compression"
	"github.com/linuxboot/rvacpi/pkg/log"
)

var _ commands.Command = (*Command)(nil)

// Command prints table files.
type Command struct {
	Output string `short:"o" long:"out" description:"write to this file instead of stdout"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "decodes and prints MADT, RHCT and PPTT files"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "The files may be compressed with any of: " + fmt.Sprint(compression.Names())
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) == 0 {
		return commands.ErrArgs{Err: fmt.Errorf("no table files given")}
	}

	var w io.Writer = os.Stdout
	if cmd.Output != "" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	for _, path := range args {
		if err := File(w, path); err != nil {
			return err
		}
	}
	return nil
}

// File prints the table stored in path.
func File(w io.Writer, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	b, c, err := compression.Decompress(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if c != nil {
		log.Debugf("%s is %s compressed", path, c.Name())
	}
	if err := pretty.Dump(w, b); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
