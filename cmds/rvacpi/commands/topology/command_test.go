// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/rvacpi/cmds/rvacpi/commands"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/fdt/fdttest"
	"github.com/linuxboot/rvacpi/pkg/topology"
)

func extract(t *testing.T) *topology.Topology {
	tree, err := fdt.Load(fdttest.TwoHarts().Blob(t))
	require.NoError(t, err)
	topo, err := topology.Extract(tree, topology.Options{})
	require.NoError(t, err)
	return topo
}

func options(t *testing.T) commands.PlatformOptions {
	dtb := filepath.Join(t.TempDir(), "board.dtb")
	require.NoError(t, os.WriteFile(dtb, fdttest.TwoHarts().Blob(t), 0o644))
	return commands.PlatformOptions{Board: "thunderhill", DTB: dtb, LogLevel: "error"}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatJSON, ParseFormat(" JSON "))
	assert.Equal(t, FormatUndefined, ParseFormat("xml"))
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	Print(&out, extract(t))
	s := out.String()

	assert.Contains(t, s, fdttest.DefaultISA)
	assert.Contains(t, s, "CBO block sizes: M 64 P 0 Z 64")
	assert.Contains(t, strings.ToLower(s), "harts")
	assert.Contains(t, s, "/cpus/cpu@0")
	assert.Contains(t, s, "/cpus/cpu@1")
	assert.Contains(t, strings.ToLower(s), "interrupt files")
	assert.Contains(t, s, "0x28000000")
	assert.Contains(t, s, "0x28002000")
	assert.Contains(t, s, "APLIC")
	assert.Contains(t, strings.ToLower(s), "caches")
	assert.Contains(t, s, "16 MiB")
	assert.Contains(t, s, "64 KiB")

	// One L3 row plus L1I, L1D and L2 rows for each of the two cores.
	var rows int
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, "L1I") || strings.Contains(line, "L1D") ||
			strings.Contains(line, "L2") || strings.Contains(line, "L3") {
			rows++
		}
	}
	assert.Equal(t, 7, rows)
}

func TestPrintDefaultCaches(t *testing.T) {
	s := fdttest.TwoHarts()
	s.L3 = nil
	tree, err := fdt.Load(s.Blob(t))
	require.NoError(t, err)
	topo, err := topology.Extract(tree, topology.Options{})
	require.NoError(t, err)

	var out bytes.Buffer
	Print(&out, topo)
	assert.Contains(t, out.String(), "(default)")
}

func TestJSON(t *testing.T) {
	topo := extract(t)
	b, err := json.MarshalIndent(topo, "", "  ")
	require.NoError(t, err)

	var decoded topology.Topology
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, topo.CPU.Harts, decoded.CPU.Harts)
	assert.Equal(t, topo.IMSIC.Files, decoded.IMSIC.Files)
	assert.Equal(t, *topo.APLIC, *decoded.APLIC)
	assert.Equal(t, topo.Caches.L3, decoded.Caches.L3)
}

func TestExecute(t *testing.T) {
	for _, format := range []string{"text", "json"} {
		t.Run(format, func(t *testing.T) {
			cmd := &Command{PlatformOptions: options(t), Format: format}
			assert.NoError(t, cmd.Execute(nil))
		})
	}
}

func TestExecuteErrors(t *testing.T) {
	var errArgs commands.ErrArgs

	cmd := &Command{PlatformOptions: options(t), Format: "xml"}
	err := cmd.Execute(nil)
	require.True(t, errors.As(err, &errArgs), err)
	assert.Contains(t, err.Error(), "unknown format 'xml'")

	cmd.Format = "text"
	err = cmd.Execute([]string{"extra"})
	assert.True(t, errors.As(err, &errArgs), err)
}
