// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fdt

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/u-root/u-root/pkg/dt"

	pkgbytes "github.com/linuxboot/rvacpi/pkg/bytes"
)

// Status values of the standard "status" property.
const (
	StatusOkay     = "okay"
	StatusOk       = "ok"
	StatusDisabled = "disabled"
)

// Node is one device tree node with its position in the Tree.
type Node struct {
	raw      *dt.Node
	parent   *Node
	children []*Node
	depth    int
	index    int
}

// Name returns the full node name, including the unit address.
func (n *Node) Name() string {
	return n.raw.Name
}

// BaseName returns the node name without the unit address.
func (n *Node) BaseName() string {
	name := n.raw.Name
	if i := strings.IndexByte(name, '@'); i >= 0 {
		return name[:i]
	}
	return name
}

// HasName reports whether the node is called name, either exactly or once the
// "@unit-address" suffix is removed.
func (n *Node) HasName(name string) bool {
	return n.raw.Name == name || n.BaseName() == name
}

// Path returns the absolute path of the node.
func (n *Node) Path() string {
	if n.parent == nil {
		return "/"
	}
	if n.parent.parent == nil {
		return "/" + n.raw.Name
	}
	return n.parent.Path() + "/" + n.raw.Name
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the direct children in tree order.
func (n *Node) Children() []*Node {
	return n.children
}

// Depth returns the number of edges between the root and n.
func (n *Node) Depth() int {
	return n.depth
}

// Within reports whether n is branch or one of its descendants.
func (n *Node) Within(branch *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == branch {
			return true
		}
	}
	return false
}

// Raw returns the underlying u-root node.
func (n *Node) Raw() *dt.Node {
	return n.raw
}

// Prop returns the raw value of a property.
func (n *Node) Prop(name string) ([]byte, bool) {
	for _, p := range n.raw.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// Has reports whether the property exists.
func (n *Node) Has(name string) bool {
	_, ok := n.Prop(name)
	return ok
}

func (n *Node) missing(name string) error {
	return &PropertyMissingError{Node: n.Path(), Property: name}
}

func (n *Node) badLength(name string, l, multiple int) error {
	return &PropertyLengthError{Node: n.Path(), Property: name, Length: l, Multiple: multiple}
}

// U32 decodes a required single-cell property. Longer values are accepted
// and only the first cell is used, as fdt32_to_cpu on the property does.
func (n *Node) U32(name string) (uint32, error) {
	v, ok := n.Prop(name)
	if !ok {
		return 0, n.missing(name)
	}
	if len(v) < 4 {
		return 0, n.badLength(name, len(v), 4)
	}
	return binary.BigEndian.Uint32(v), nil
}

// OptionalU32 is U32 returning def when the property is absent.
func (n *Node) OptionalU32(name string, def uint32) (uint32, error) {
	if !n.Has(name) {
		return def, nil
	}
	return n.U32(name)
}

// U64 decodes a required property holding either one or two cells.
func (n *Node) U64(name string) (uint64, error) {
	v, ok := n.Prop(name)
	if !ok {
		return 0, n.missing(name)
	}
	switch {
	case len(v) >= 8:
		return binary.BigEndian.Uint64(v), nil
	case len(v) >= 4:
		return uint64(binary.BigEndian.Uint32(v)), nil
	}
	return 0, n.badLength(name, len(v), 4)
}

// U32Array decodes a property as a list of cells. The length must be a
// non-zero multiple of 4*group bytes.
func (n *Node) U32Array(name string, group int) ([]uint32, error) {
	v, ok := n.Prop(name)
	if !ok {
		return nil, n.missing(name)
	}
	if group < 1 {
		group = 1
	}
	if len(v) == 0 || len(v)%(4*group) != 0 {
		return nil, n.badLength(name, len(v), 4*group)
	}
	out := make([]uint32, len(v)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(v[i*4:])
	}
	return out, nil
}

// Region is one (address, size) entry of a "reg" property.
type Region struct {
	Base uint64
	Size uint64
}

// Range returns the region as an address range.
func (r Region) Range() pkgbytes.Range {
	return pkgbytes.Range{Offset: r.Base, Length: r.Size}
}

// Regions decodes a property as (address, size) pairs of 64-bit values, that
// is #address-cells = #size-cells = 2.
func (n *Node) Regions(name string) ([]Region, error) {
	cells, err := n.U32Array(name, 4)
	if err != nil {
		return nil, err
	}
	out := make([]Region, 0, len(cells)/4)
	for i := 0; i < len(cells); i += 4 {
		out = append(out, Region{
			Base: uint64(cells[i])<<32 | uint64(cells[i+1]),
			Size: uint64(cells[i+2])<<32 | uint64(cells[i+3]),
		})
	}
	return out, nil
}

// StringList decodes a NUL separated string list.
func (n *Node) StringList(name string) ([]string, error) {
	v, ok := n.Prop(name)
	if !ok {
		return nil, n.missing(name)
	}
	v = bytes.TrimRight(v, "\x00")
	if len(v) == 0 {
		return nil, nil
	}
	return strings.Split(string(v), "\x00"), nil
}

// StringValue decodes a property holding a single NUL terminated string.
func (n *Node) StringValue(name string) (string, error) {
	v, ok := n.Prop(name)
	if !ok {
		return "", n.missing(name)
	}
	if i := bytes.IndexByte(v, 0); i >= 0 {
		v = v[:i]
	}
	return string(v), nil
}

// IsCompatible reports whether compat is one of the node's compatible strings.
func (n *Node) IsCompatible(compat string) bool {
	list, err := n.StringList("compatible")
	if err != nil {
		return false
	}
	for _, c := range list {
		if c == compat {
			return true
		}
	}
	return false
}

// Status returns the "status" property, or "" when it is absent.
func (n *Node) Status() string {
	s, err := n.StringValue("status")
	if err != nil {
		return ""
	}
	return s
}

// Disabled reports whether status is "disabled". Nodes with other non-okay
// statuses (e.g. "fail") are not considered disabled by this check.
func (n *Node) Disabled() bool {
	return n.Status() == StatusDisabled
}

// Enabled reports whether status is absent, "okay" or "ok".
func (n *Node) Enabled() bool {
	switch n.Status() {
	case "", StatusOkay, StatusOk:
		return true
	}
	return false
}

// PHandle returns the node's own phandle, from "phandle" or the legacy
// "linux,phandle" property.
func (n *Node) PHandle() (uint32, bool, error) {
	for _, name := range []string{"phandle", "linux,phandle"} {
		if n.Has(name) {
			ph, err := n.U32(name)
			if err != nil {
				return 0, false, err
			}
			return ph, true, nil
		}
	}
	return 0, false, nil
}
