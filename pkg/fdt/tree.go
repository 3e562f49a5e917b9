// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fdt is a read-only view over a flattened device tree.
//
// Parsing is done by u-root's dt package. This package adds what the table
// generators need on top of it: header validation, lookups by path,
// compatible string and phandle, parent links, and a depth-first cursor which
// reports depth changes explicitly instead of through negative offsets.
package fdt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/u-root/u-root/pkg/dt"
)

// Tree is an indexed device tree. It is never modified after Load.
type Tree struct {
	Header *Header

	root      *Node
	nodes     []*Node
	byPHandle map[uint32]*Node
}

// Load validates the FDT header of blob, parses it and indexes the result.
func Load(blob []byte) (*Tree, error) {
	h, err := ReadHeader(blob)
	if err != nil {
		return nil, err
	}
	f, err := dt.ReadFDT(bytes.NewReader(blob[:h.TotalSize]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	t, err := New(f.RootNode)
	if err != nil {
		return nil, err
	}
	t.Header = h
	return t, nil
}

// New indexes an already parsed tree.
func New(root *dt.Node) (*Tree, error) {
	if root == nil {
		return nil, &NodeError{What: "/"}
	}
	t := &Tree{byPHandle: map[uint32]*Node{}}
	t.root = t.add(root, nil)
	for _, n := range t.nodes {
		ph, ok, err := n.PHandle()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if other, dup := t.byPHandle[ph]; dup {
			return nil, fmt.Errorf("%w: phandle %#x used by both %s and %s", ErrMalformed, ph, other.Path(), n.Path())
		}
		t.byPHandle[ph] = n
	}
	return t, nil
}

func (t *Tree) add(raw *dt.Node, parent *Node) *Node {
	n := &Node{raw: raw, parent: parent, index: len(t.nodes)}
	if parent != nil {
		n.depth = parent.depth + 1
		parent.children = append(parent.children, n)
	}
	t.nodes = append(t.nodes, n)
	for _, c := range raw.Children {
		t.add(c, n)
	}
	return n
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Nodes returns every node in depth-first order, starting with the root.
func (t *Tree) Nodes() []*Node {
	return t.nodes
}

// PathNode looks a node up by its absolute path. A path component matches a
// node whose full name is equal to it, or whose name without the unit address
// is, so "/cpus/cpu" finds "cpu@0".
func (t *Tree) PathNode(path string) (*Node, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	n := t.root
	for _, comp := range strings.Split(strings.Trim(path, "/"), "/") {
		if comp == "" {
			continue
		}
		var next *Node
		for _, c := range n.children {
			if c.HasName(comp) {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		n = next
	}
	return n, true
}

// MustPathNode is PathNode returning an error wrapping ErrNotFound when the
// path does not exist.
func (t *Tree) MustPathNode(path string) (*Node, error) {
	n, ok := t.PathNode(path)
	if !ok {
		return nil, &NodeError{What: path}
	}
	return n, nil
}

// ByPHandle resolves a phandle.
func (t *Tree) ByPHandle(ph uint32) (*Node, bool) {
	n, ok := t.byPHandle[ph]
	return n, ok
}

// Compatible returns every node listing compat in its "compatible"
// property, in depth-first order.
func (t *Tree) Compatible(compat string) []*Node {
	var out []*Node
	for _, n := range t.nodes {
		if n.IsCompatible(compat) {
			out = append(out, n)
		}
	}
	return out
}

// FirstCompatible returns the first node, in depth-first order, which is
// compatible with compat and not disabled.
func (t *Tree) FirstCompatible(compat string) (*Node, bool) {
	for _, n := range t.Compatible(compat) {
		if !n.Disabled() {
			return n, true
		}
	}
	return nil, false
}

// Next returns the depth-first successor of n together with the depth
// difference between n and that successor (+1 for a child, 0 for a sibling,
// negative when climbing back up). Passing a nil n starts at the root with a
// delta of 0. ok is false once the traversal is over.
func (t *Tree) Next(n *Node) (next *Node, delta int, ok bool) {
	if n == nil {
		return t.root, 0, true
	}
	if n.index+1 >= len(t.nodes) {
		return nil, 0, false
	}
	next = t.nodes[n.index+1]
	return next, next.depth - n.depth, true
}

// NextInBranch returns the first node after from, in depth-first order, which
// lies strictly below branch and satisfies match. from must be branch itself
// or one of its descendants.
func (t *Tree) NextInBranch(branch, from *Node, match func(*Node) bool) (*Node, bool) {
	if !from.Within(branch) {
		return nil, false
	}
	for cur := from; ; {
		next, _, ok := t.Next(cur)
		if !ok || next.depth <= branch.depth {
			return nil, false
		}
		if match == nil || match(next) {
			return next, true
		}
		cur = next
	}
}

// CountInBranch counts the nodes strictly below branch satisfying match.
func (t *Tree) CountInBranch(branch *Node, match func(*Node) bool) int {
	count := 0
	for cur, ok := t.NextInBranch(branch, branch, match); ok; cur, ok = t.NextInBranch(branch, cur, match) {
		count++
	}
	return count
}

// Named returns a matcher for NextInBranch and CountInBranch selecting nodes
// by name, ignoring the unit address.
func Named(name string) func(*Node) bool {
	return func(n *Node) bool {
		return n.HasName(name)
	}
}

// Ref follows a single-phandle property of n, such as "next-level-cache".
func (t *Tree) Ref(n *Node, prop string) (*Node, error) {
	ph, err := n.U32(prop)
	if err != nil {
		return nil, err
	}
	target, ok := t.ByPHandle(ph)
	if !ok {
		return nil, &PHandleError{Node: n.Path(), Property: prop, PHandle: ph}
	}
	return target, nil
}
