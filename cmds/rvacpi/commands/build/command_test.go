// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands"
	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/compression"
	"github.com/linuxboot/rvacpi/pkg/fdt/fdttest"
)

func newCommand(t *testing.T) *Command {
	dir := t.TempDir()
	dtb := filepath.Join(dir, "board.dtb")
	require.NoError(t, os.WriteFile(dtb, fdttest.TwoHarts().Blob(t), 0o644))
	return &Command{
		PlatformOptions: commands.PlatformOptions{Board: "thunderhill", DTB: dtb, LogLevel: "error"},
		Output:          filepath.Join(dir, "out"),
	}
}

func TestExecute(t *testing.T) {
	cmd := newCommand(t)
	require.NoError(t, cmd.Execute(nil))
	for _, sig := range []acpi.Signature{acpi.SignatureMADT, acpi.SignatureRHCT, acpi.SignaturePPTT} {
		b, err := os.ReadFile(filepath.Join(cmd.Output, sig.String()+".aml"))
		require.NoError(t, err)
		require.NoError(t, acpi.VerifyChecksum(b))
		hdr, err := acpi.ParseHeader(b)
		require.NoError(t, err)
		assert.Equal(t, sig, hdr.Signature)
	}
}

func TestExecuteCompressedSubset(t *testing.T) {
	cmd := newCommand(t)
	cmd.Compress = "lz4"
	cmd.Tables = []string{"PPTT"}
	require.NoError(t, cmd.Execute(nil))

	entries, err := os.ReadDir(cmd.Output)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "PPTT.aml.lz4", entries[0].Name())

	raw, err := os.ReadFile(filepath.Join(cmd.Output, entries[0].Name()))
	require.NoError(t, err)
	b, c, err := compression.Decompress(raw)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NoError(t, acpi.VerifyChecksum(b))
}

func TestExecuteArgs(t *testing.T) {
	var errArgs commands.ErrArgs

	cmd := newCommand(t)
	assert.True(t, errors.As(cmd.Execute([]string{"extra"}), &errArgs))

	cmd = newCommand(t)
	cmd.Tables = []string{"fadt"}
	assert.True(t, errors.As(cmd.Execute(nil), &errArgs))

	cmd = newCommand(t)
	cmd.Compress = "brotli"
	assert.True(t, errors.As(cmd.Execute(nil), &errArgs))

	cmd = newCommand(t)
	cmd.DTB = ""
	assert.True(t, errors.As(cmd.Execute(nil), &errArgs))
}

func TestExecuteReportsFailedTables(t *testing.T) {
	s := fdttest.TwoHarts()
	s.IMSIC = nil
	cmd := newCommand(t)
	require.NoError(t, os.WriteFile(cmd.DTB, s.Blob(t), 0o644))

	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, acpi.ErrNotFound), err)
	assert.Contains(t, err.Error(), "madt")

	// The tables not needing an IMSIC are still written.
	_, err = os.Stat(filepath.Join(cmd.Output, "RHCT.aml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cmd.Output, "PPTT.aml"))
	assert.NoError(t, err)
}
