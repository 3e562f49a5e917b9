// Copyright 2019-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bytes has helpers for address ranges and raw memory images.
package bytes

import (
	"fmt"
	"sort"
	"strings"
)

// Range is a span of an address space: [Offset, Offset+Length).
type Range struct {
	Offset uint64
	Length uint64
}

func (r Range) String() string {
	return fmt.Sprintf("[%#x, %#x)", r.Offset, r.End())
}

// End returns the first address after the range. It saturates instead of
// wrapping around.
func (r Range) End() uint64 {
	end := r.Offset + r.Length
	if end < r.Offset {
		return ^uint64(0)
	}
	return end
}

// Contains reports whether index is inside the range.
func (r Range) Contains(index uint64) bool {
	return r.Offset <= index && index < r.End()
}

// Covers reports whether all of cmp is inside r.
func (r Range) Covers(cmp Range) bool {
	return r.Offset <= cmp.Offset && cmp.End() <= r.End()
}

// Intersect returns True if ranges "r" and "cmp" has at least
// one byte with the same offset.
func (r Range) Intersect(cmp Range) bool {
	if r.Length == 0 || cmp.Length == 0 {
		return false
	}
	return r.Offset < cmp.End() && cmp.Offset < r.End()
}

// Ranges is a helper to manipulate multiple `Range`-s at once
type Ranges []Range

func (s Ranges) String() string {
	r := make([]string, 0, len(s))
	for _, oneRange := range s {
		r = append(r, oneRange.String())
	}
	return `[` + strings.Join(r, `, `) + `]`
}

// Sort sorts the slice by field Offset
func (s Ranges) Sort() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Offset < s[j].Offset
	})
}

// IsIn returns if the index is covered by this ranges
func (s Ranges) IsIn(index uint64) bool {
	for _, r := range s {
		if r.Contains(index) {
			return true
		}
	}
	return false
}

// Overlap returns the indices of the first two ranges sharing a byte.
func (s Ranges) Overlap() (i, j int, ok bool) {
	for i := range s {
		for j := i + 1; j < len(s); j++ {
			if s[i].Intersect(s[j]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
