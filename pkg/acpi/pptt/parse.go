// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pptt

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/bytesextra"

	"github.com/linuxboot/rvacpi/pkg/acpi"
)

// ProcessorNode is a decoded processor hierarchy node.
type ProcessorNode struct {
	Processor
	Offset           uint32
	PrivateResources []uint32
}

// CacheNode is a decoded cache structure.
type CacheNode struct {
	Cache
	Offset uint32
}

// Table is a decoded PPTT. Nodes are kept in table order.
type Table struct {
	Header     acpi.Header
	Processors []ProcessorNode
	Caches     []CacheNode
	Unknown    []StructureType
}

// Parse decodes a complete PPTT, checking its signature, length and
// checksum.
func Parse(b []byte) (*Table, error) {
	hdr, body, err := acpi.ReadTable(b, acpi.SignaturePPTT)
	if err != nil {
		return nil, err
	}
	t := Table{Header: *hdr}
	for off := 0; off < len(body); {
		abs := uint32(acpi.HeaderSize + off)
		if len(body)-off < 2 {
			return nil, fmt.Errorf("%w: truncated structure at %#x", acpi.ErrSchemaViolation, abs)
		}
		typ, length := StructureType(body[off]), int(body[off+1])
		if length < 2 || off+length > len(body) {
			return nil, fmt.Errorf("%w: %s at %#x has length %d", acpi.ErrSchemaViolation, typ, abs, length)
		}
		data := body[off : off+length]
		switch typ {
		case TypeProcessor:
			n := ProcessorNode{Offset: abs}
			if err := decode(data, &n.Processor); err != nil {
				return nil, fmt.Errorf("%s at %#x: %w", typ, abs, err)
			}
			if uint64(ProcessorSize)+4*uint64(n.NumPrivateResources) > uint64(length) {
				return nil, fmt.Errorf("%w: %s at %#x: %d private resources do not fit %d bytes",
					acpi.ErrSchemaViolation, typ, abs, n.NumPrivateResources, length)
			}
			n.PrivateResources = make([]uint32, n.NumPrivateResources)
			if err := decode(data[ProcessorSize:], n.PrivateResources); err != nil {
				return nil, fmt.Errorf("%s at %#x: %w", typ, abs, err)
			}
			t.Processors = append(t.Processors, n)
		case TypeCache:
			n := CacheNode{Offset: abs}
			if err := decode(data, &n.Cache); err != nil {
				return nil, fmt.Errorf("%s at %#x: %w", typ, abs, err)
			}
			t.Caches = append(t.Caches, n)
		default:
			t.Unknown = append(t.Unknown, typ)
		}
		off += length
	}
	return &t, nil
}

func decode(data []byte, v interface{}) error {
	size := binary.Size(v)
	if size < 0 || len(data) < size {
		return fmt.Errorf("%w: length %d, want %d", acpi.ErrSchemaViolation, len(data), size)
	}
	return binary.Read(bytesextra.NewReadWriteSeeker(data[:size]), binary.LittleEndian, v)
}

// CacheAt returns the cache structure at the table offset off.
func (t *Table) CacheAt(off uint32) (*CacheNode, bool) {
	for i := range t.Caches {
		if t.Caches[i].Offset == off {
			return &t.Caches[i], true
		}
	}
	return nil, false
}

// ProcessorAt returns the processor node at the table offset off.
func (t *Table) ProcessorAt(off uint32) (*ProcessorNode, bool) {
	for i := range t.Processors {
		if t.Processors[i].Offset == off {
			return &t.Processors[i], true
		}
	}
	return nil, false
}

// Leaves returns the processor nodes flagged as leaves.
func (t *Table) Leaves() []ProcessorNode {
	var out []ProcessorNode
	for _, p := range t.Processors {
		if p.Flags&ProcessorIsLeaf != 0 {
			out = append(out, p)
		}
	}
	return out
}

// CacheChain follows NextLevelOfCache from the cache at off and returns the
// visited caches, starting with the one at off.
func (t *Table) CacheChain(off uint32) ([]CacheNode, error) {
	var chain []CacheNode
	for off != 0 {
		c, ok := t.CacheAt(off)
		if !ok {
			return chain, fmt.Errorf("%w: no cache structure at %#x", acpi.ErrSchemaViolation, off)
		}
		if len(chain) > len(t.Caches) {
			return chain, fmt.Errorf("%w: cache chain from %#x loops", acpi.ErrSchemaViolation, chain[0].Offset)
		}
		chain = append(chain, *c)
		off = c.NextLevelOfCache
	}
	return chain, nil
}

// Validate checks that every reference of the table lands on a structure of
// the right type: processor parents on processor nodes, private resources
// and next level caches on cache structures. Cache IDs must be unique.
func (t *Table) Validate() error {
	var result *multierror.Error
	for _, p := range t.Processors {
		if p.Parent != 0 {
			if _, ok := t.ProcessorAt(p.Parent); !ok {
				result = multierror.Append(result, fmt.Errorf("%w: processor at %#x: parent %#x is not a processor node",
					acpi.ErrSchemaViolation, p.Offset, p.Parent))
			}
		}
		for _, r := range p.PrivateResources {
			if _, err := t.CacheChain(r); err != nil {
				result = multierror.Append(result, fmt.Errorf("processor at %#x: %w", p.Offset, err))
			}
		}
	}
	ids := map[uint32]uint32{}
	for _, c := range t.Caches {
		if c.NextLevelOfCache != 0 {
			if _, ok := t.CacheAt(c.NextLevelOfCache); !ok {
				result = multierror.Append(result, fmt.Errorf("%w: cache at %#x: next level %#x is not a cache structure",
					acpi.ErrSchemaViolation, c.Offset, c.NextLevelOfCache))
			}
		}
		if c.Flags&CacheIDValid == 0 {
			continue
		}
		if prev, ok := ids[c.CacheID]; ok {
			result = multierror.Append(result, fmt.Errorf("%w: caches at %#x and %#x share ID %d",
				acpi.ErrSchemaViolation, prev, c.Offset, c.CacheID))
		}
		ids[c.CacheID] = c.Offset
	}
	return result.ErrorOrNil()
}
