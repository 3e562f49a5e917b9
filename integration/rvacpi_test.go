// Copyright 2018-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package integration_test

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linuxboot/rvacpi/pkg/platform"
)

// buildTool compiles cmds/rvacpi into dir.
func buildTool(t *testing.T, dir string) string {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not found")
	}
	bin := filepath.Join(dir, "rvacpi")
	cmd := exec.Command(goBin, "build", "-o", bin, "../cmds/rvacpi")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build: %v\n%s", err, out)
	}
	return bin
}

func run(t *testing.T, bin string, args ...string) string {
	out, err := exec.Command(bin, args...).CombinedOutput()
	if err != nil {
		t.Fatalf("rvacpi %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

// TestBuildVerifyDump runs, for every board and profile:
//
// 1. rvacpi build -d board.dtb.xz -b profile -o out --compress zstd
// 2. rvacpi verify out/*
// 3. rvacpi dump out/*
//
// The dump must show the OEM table ID of the profile in every table.
func TestBuildVerifyDump(t *testing.T) {
	tmpDir := t.TempDir()
	bin := buildTool(t, tmpDir)

	for board, soc := range boards() {
		dtb := writeDTB(t, tmpDir, board, soc, true)
		for _, profile := range platform.ProfileNames() {
			p, err := platform.LookupProfile(profile)
			if err != nil {
				t.Fatal(err)
			}
			if p.MaxHarts < len(soc.Harts) {
				continue
			}
			t.Run(board+"/"+profile, func(t *testing.T) {
				out := filepath.Join(tmpDir, board, profile)
				run(t, bin, "build", "-d", dtb, "-b", profile, "-o", out, "--compress", "zstd")

				files, err := filepath.Glob(filepath.Join(out, "*.aml.zstd"))
				if err != nil {
					t.Fatal(err)
				}
				if len(files) != 3 {
					t.Fatalf("got tables %v, want MADT, RHCT and PPTT", files)
				}

				run(t, bin, append([]string{"verify"}, files...)...)
				dump := run(t, bin, append([]string{"dump"}, files...)...)
				if got := strings.Count(dump, p.OEMTableID); got < len(files) {
					t.Errorf("OEM table ID %q found %d times, want at least %d", p.OEMTableID, got, len(files))
				}
			})
		}
	}
}

// TestHOBList builds the tables the way the firmware finds the device tree:
// through the FDT HOB pointing into memory.
func TestHOBList(t *testing.T) {
	tmpDir := t.TempDir()
	bin := buildTool(t, tmpDir)

	const base = 0x80000000
	hobs, mem := writeHOBImage(t, tmpDir, boards()["two-harts"], base)
	run(t, bin, "verify", "--hob-list", hobs, "--memory", mem, "--memory-base", fmt.Sprint(base))

	// A wrong base moves the FDT HOB address out of the memory image.
	cmd := exec.Command(bin, "verify", "--hob-list", hobs, "--memory", mem, "--memory-base", "0")
	if err := cmd.Run(); err == nil {
		t.Error("verify succeeded with the wrong memory base")
	}
}
