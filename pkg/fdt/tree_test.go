// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fdt_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/u-root/u-root/pkg/dt"

	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/fdt/fdttest"
)

func loadTwoHarts(t *testing.T) *fdt.Tree {
	tree, err := fdt.Load(fdttest.TwoHarts().Blob(t))
	require.NoError(t, err)
	return tree
}

func TestLoad(t *testing.T) {
	tree := loadTwoHarts(t)
	require.NotNil(t, tree.Header)
	assert.Equal(t, fdt.Magic, tree.Header.Magic)
	assert.Equal(t, "/", tree.Root().Path())
	assert.Equal(t, tree.Root(), tree.Nodes()[0])
}

func TestLoadInvalid(t *testing.T) {
	blob := fdttest.TwoHarts().Blob(t)

	for name, b := range map[string][]byte{
		"empty": nil,
		"short": blob[:fdt.HeaderSize-1],
		"magic": func() []byte {
			c := append([]byte{}, blob...)
			binary.BigEndian.PutUint32(c, 0xfeedd00d)
			return c
		}(),
		"truncated": blob[:len(blob)/2],
		"version": func() []byte {
			c := append([]byte{}, blob...)
			binary.BigEndian.PutUint32(c[24:], 18)
			return c
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fdt.Load(b)
			require.Error(t, err)
			assert.True(t, errors.Is(err, fdt.ErrNotFound), err)
			var herr *fdt.HeaderError
			assert.True(t, errors.As(err, &herr))
		})
	}
}

func TestPathNode(t *testing.T) {
	tree := loadTwoHarts(t)

	cpus, ok := tree.PathNode("/cpus")
	require.True(t, ok)
	assert.Equal(t, "cpus", cpus.Name())
	assert.Equal(t, 1, cpus.Depth())

	cpu, ok := tree.PathNode("/cpus/cpu@1")
	require.True(t, ok)
	assert.Equal(t, "/cpus/cpu@1", cpu.Path())
	assert.Equal(t, cpus, cpu.Parent())

	first, ok := tree.PathNode("/cpus/cpu")
	require.True(t, ok)
	assert.Equal(t, "cpu@0", first.Name())
	assert.Equal(t, "cpu", first.BaseName())

	_, ok = tree.PathNode("/nope")
	assert.False(t, ok)
	_, ok = tree.PathNode("cpus")
	assert.False(t, ok)

	_, err := tree.MustPathNode("/cpus/cpu@7")
	assert.True(t, errors.Is(err, fdt.ErrNotFound))
}

func TestCompatibleAndPHandle(t *testing.T) {
	s := fdttest.TwoHarts()
	s.Extra = append(s.Extra, fdttest.Node("imsic-disabled", []dt.Property{
		fdttest.Str("compatible", "riscv,imsics"),
		fdttest.Str("status", "disabled"),
	}))
	tree, err := fdt.Load(s.Blob(t))
	require.NoError(t, err)

	all := tree.Compatible("riscv,imsics")
	require.Len(t, all, 2)
	first, ok := tree.FirstCompatible("riscv,imsics")
	require.True(t, ok)
	assert.Equal(t, all[0], first)
	assert.True(t, all[1].Disabled())
	assert.False(t, all[1].Enabled())

	n, ok := tree.ByPHandle(fdttest.PHandleIntcBase + 1)
	require.True(t, ok)
	assert.Equal(t, "/cpus/cpu@1/interrupt-controller", n.Path())

	cpu, _ := tree.PathNode("/cpus/cpu@0")
	l2, err := tree.Ref(cpu, "next-level-cache")
	require.NoError(t, err)
	assert.Equal(t, "l2-cache0", l2.Name())
	l3, err := tree.Ref(l2, "next-level-cache")
	require.NoError(t, err)
	assert.Equal(t, "l3-cache", l3.Name())
	_, err = tree.Ref(l3, "next-level-cache")
	var missing *fdt.PropertyMissingError
	assert.True(t, errors.As(err, &missing))
}

func TestDuplicatePHandle(t *testing.T) {
	root := fdttest.Node("", nil,
		fdttest.Node("a", []dt.Property{fdttest.U32("phandle", 1)}),
		fdttest.Node("b", []dt.Property{fdttest.U32("phandle", 1)}),
	)
	_, err := fdt.New(root)
	assert.True(t, errors.Is(err, fdt.ErrMalformed))
}

func TestDanglingRef(t *testing.T) {
	root := fdttest.Node("", nil,
		fdttest.Node("a", []dt.Property{fdttest.U32("next-level-cache", 0x77)}),
	)
	tree, err := fdt.New(root)
	require.NoError(t, err)
	a, _ := tree.PathNode("/a")
	_, err = tree.Ref(a, "next-level-cache")
	var perr *fdt.PHandleError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, uint32(0x77), perr.PHandle)
	assert.True(t, errors.Is(err, fdt.ErrNotFound))
}

func TestNextDepthDelta(t *testing.T) {
	root := fdttest.Node("", nil,
		fdttest.Node("a", nil,
			fdttest.Node("a1", nil,
				fdttest.Node("a1x", nil),
			),
		),
		fdttest.Node("b", nil),
	)
	tree, err := fdt.New(root)
	require.NoError(t, err)

	type step struct {
		name  string
		delta int
	}
	var got []step
	var cur *fdt.Node
	for {
		next, delta, ok := tree.Next(cur)
		if !ok {
			break
		}
		got = append(got, step{next.Name(), delta})
		cur = next
	}
	assert.Equal(t, []step{{"", 0}, {"a", 1}, {"a1", 1}, {"a1x", 1}, {"b", -2}}, got)
}

func TestBranchScoping(t *testing.T) {
	s := fdttest.Uniform(3)
	s.Clusters = 1
	tree, err := fdt.Load(s.Blob(t))
	require.NoError(t, err)

	cpus, _ := tree.PathNode("/cpus")
	assert.Equal(t, 3, tree.CountInBranch(cpus, fdt.Named("cpu")))
	assert.Equal(t, 1, tree.CountInBranch(cpus, fdt.Named("cpu-map")))
	assert.Equal(t, 3, tree.CountInBranch(cpus, fdt.Named("interrupt-controller")))

	var names []string
	for n, ok := tree.NextInBranch(cpus, cpus, fdt.Named("cpu")); ok; n, ok = tree.NextInBranch(cpus, n, fdt.Named("cpu")) {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"cpu@0", "cpu@1", "cpu@2"}, names)

	// Searching never escapes the branch.
	l3, _ := tree.PathNode("/l3-cache")
	_, ok := tree.NextInBranch(cpus, cpus, fdt.Named("l3-cache"))
	assert.False(t, ok)
	_, ok = tree.NextInBranch(cpus, l3, nil)
	assert.False(t, ok)
}

func TestProperties(t *testing.T) {
	root := fdttest.Node("", nil, fdttest.Node("dev@1000", []dt.Property{
		fdttest.U32("one", 7),
		fdttest.U32("two", 1, 2),
		fdttest.U64("wide", 0x123456789a),
		fdttest.U64("reg", 0x1000, 0x100, 0x2000, 0x200),
		fdttest.Str("compatible", "vendor,dev", "generic"),
		fdttest.Raw("short", []byte{1, 2}),
		fdttest.Raw("odd", []byte{0, 0, 0, 1, 0, 0}),
		fdttest.Str("status", "okay"),
		fdttest.U32("linux,phandle", 9),
	}))
	tree, err := fdt.New(root)
	require.NoError(t, err)
	n, ok := tree.PathNode("/dev")
	require.True(t, ok)

	v, err := n.U32("one")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)

	v, err = n.U32("two")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)

	v, err = n.OptionalU32("absent", 42)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	_, err = n.U32("short")
	assert.True(t, errors.Is(err, fdt.ErrMalformed))
	_, err = n.U32("absent")
	assert.True(t, errors.Is(err, fdt.ErrNotFound))

	w, err := n.U64("wide")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x123456789a), w)
	w, err = n.U64("one")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), w)

	cells, err := n.U32Array("two", 2)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, cells)
	_, err = n.U32Array("odd", 1)
	var lerr *fdt.PropertyLengthError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, 6, lerr.Length)

	regs, err := n.Regions("reg")
	require.NoError(t, err)
	assert.Equal(t, []fdt.Region{{Base: 0x1000, Size: 0x100}, {Base: 0x2000, Size: 0x200}}, regs)
	_, err = n.Regions("two")
	assert.True(t, errors.Is(err, fdt.ErrMalformed))

	list, err := n.StringList("compatible")
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor,dev", "generic"}, list)
	assert.True(t, n.IsCompatible("generic"))
	assert.False(t, n.IsCompatible("vendor"))

	assert.True(t, n.Enabled())
	assert.Equal(t, fdt.StatusOkay, n.Status())

	ph, ok, err := n.PHandle()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(9), ph)
}
