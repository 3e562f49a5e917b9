// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package integration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/u-root/u-root/pkg/dt"

	"github.com/linuxboot/rvacpi/pkg/compression"
	"github.com/linuxboot/rvacpi/pkg/fdt/fdttest"
	"github.com/linuxboot/rvacpi/pkg/hob"
)

// boards are the device trees every profile is run against.
func boards() map[string]*fdttest.SoC {
	guests := fdttest.Uniform(2)
	guests.IMSIC.Regs = [][2]uint64{{0x28000000, 0x4000}}
	guests.IMSIC.Extra = []dt.Property{fdttest.U32("riscv,guest-index-bits", 1)}
	return map[string]*fdttest.SoC{
		"two-harts": fdttest.TwoHarts(),
		"uniform-2": fdttest.Uniform(2),
		"guests":    guests,
	}
}

// writeDTB stores the blob of s in dir, xz compressed when xz is set.
func writeDTB(t *testing.T, dir, name string, s *fdttest.SoC, xz bool) string {
	b := s.Blob(t)
	path := filepath.Join(dir, name+".dtb")
	if xz {
		var err error
		if b, err = (&compression.XZ{}).Encode(b); err != nil {
			t.Fatal(err)
		}
		path += ".xz"
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeHOBImage stores a HOB list and a memory image holding the blob of s
// at base+0x1000. It returns both paths.
func writeHOBImage(t *testing.T, dir string, s *fdttest.SoC, base uint64) (string, string) {
	blob := s.Blob(t)
	mem := make([]byte, 0x1000+len(blob))
	copy(mem[0x1000:], blob)
	hobs := (&hob.Builder{}).AppendFDT(base + 0x1000).Bytes()

	hobPath, memPath := filepath.Join(dir, "hobs.bin"), filepath.Join(dir, "dram.bin")
	if err := os.WriteFile(hobPath, hobs, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(memPath, mem, 0o644); err != nil {
		t.Fatal(err)
	}
	return hobPath, memPath
}
