// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"bytes"
	"math/rand"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData() []byte {
	// Half random, half repetitive, like a device tree with its strings.
	r := rand.New(rand.NewSource(1))
	data := make([]byte, 16<<10)
	r.Read(data[:8<<10])
	copy(data[8<<10:], bytes.Repeat([]byte("riscv,isa\x00"), 1<<10))
	return data
}

var compressors = []Compressor{&XZ{}, &LZ4{}, &ZSTD{}, &GZIP{}, &ZLIB{}}

func TestEncodeDecode(t *testing.T) {
	want := testData()
	for _, c := range compressors {
		t.Run(c.Name(), func(t *testing.T) {
			encoded, err := c.Encode(want)
			require.NoError(t, err)
			got, err := c.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDetect(t *testing.T) {
	want := testData()
	for _, c := range compressors {
		t.Run(c.Name(), func(t *testing.T) {
			encoded, err := c.Encode(want)
			require.NoError(t, err)
			detected := Detect(encoded)
			require.NotNil(t, detected)
			assert.Equal(t, c.Name(), detected.Name())

			got, used, err := Decompress(encoded)
			require.NoError(t, err)
			assert.Equal(t, c.Name(), used.Name())
			assert.Equal(t, want, got)
		})
	}

	fdt := []byte{0xd0, 0x0d, 0xfe, 0xed, 0, 0, 0, 0x48}
	assert.Nil(t, Detect(fdt))
	got, used, err := Decompress(fdt)
	require.NoError(t, err)
	assert.Nil(t, used)
	assert.Equal(t, fdt, got)
}

func TestDecompressCorrupted(t *testing.T) {
	encoded, err := (&XZ{}).Encode(testData())
	require.NoError(t, err)
	_, _, err = Decompress(encoded[:len(encoded)/2])
	assert.Error(t, err)
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		c, err := ByName(name, "")
		require.NoError(t, err)
		assert.Equal(t, name, strings.ToLower(c.Name()))
	}
	c, err := ByName("XZ", "/usr/bin/xz")
	require.NoError(t, err)
	assert.IsType(t, &SystemXZ{}, c)

	_, err = ByName("brotli", "")
	assert.Error(t, err)
}

func TestSystemXZ(t *testing.T) {
	path, err := exec.LookPath("xz")
	if err != nil {
		t.Skip("xz is not installed")
	}
	want := testData()
	c := &SystemXZ{path}
	encoded, err := c.Encode(want)
	require.NoError(t, err)
	assert.IsType(t, &XZ{}, Detect(encoded))
	got, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
