// Copyright 2019-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guid

import (
	"regexp"

	"golang.org/x/text/transform"
)

var guidRegex = regexp.MustCompile(
	"[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}",
)

// A GUID may be cut by the end of the source buffer.
var partialGUIDRegex = regexp.MustCompile(
	"[-a-fA-F0-9]{1,36}$",
)

// Mapper renders one GUID found in a text stream.
type Mapper func(g GUID) []byte

// WithName renders a GUID as "GUID (Name)" when its name is known.
func WithName(g GUID) []byte {
	name, ok := g.Name()
	if !ok {
		return []byte(g.String())
	}
	return []byte(g.String() + " (" + name + ")")
}

// Transformer rewrites the GUIDs of a text stream with a Mapper.
type Transformer struct {
	transform.NopResetter
	mapper Mapper
}

var _ transform.Transformer = (*Transformer)(nil)

// NewTransformer returns a Transformer using m.
func NewTransformer(m Mapper) *Transformer {
	return &Transformer{mapper: m}
}

func (t *Transformer) mapMatch(match []byte) []byte {
	g, err := Parse(string(match))
	if err != nil {
		return match
	}
	return t.mapper(*g)
}

// Transform implements transform.Transformer.
func (t *Transformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if atEOF {
		out := guidRegex.ReplaceAllFunc(src, t.mapMatch)
		if len(out) > len(dst) {
			d, s, err := t.Transform(dst, src, false)
			if err != transform.ErrShortSrc {
				return d, s, err
			}
			return d, s, transform.ErrShortDst
		}
		copy(dst, out)
		return len(out), len(src), nil
	}

	loc := guidRegex.FindIndex(src)
	if loc == nil {
		partial := partialGUIDRegex.FindIndex(src)
		if partial == nil {
			if len(src) > len(dst) {
				copy(dst, src[:len(dst)])
				return len(dst), len(dst), transform.ErrShortDst
			}
			copy(dst, src)
			return len(src), len(src), nil
		}
		if partial[0] > len(dst) {
			copy(dst, src[:len(dst)])
			return len(dst), len(dst), transform.ErrShortDst
		}
		copy(dst, src[:partial[0]])
		return partial[0], partial[0], transform.ErrShortSrc
	}

	mapped := t.mapMatch(src[loc[0]:loc[1]])
	if loc[0]+len(mapped) > len(dst) {
		n := loc[0]
		if n > len(dst) {
			n = len(dst)
		}
		copy(dst, src[:n])
		return n, n, transform.ErrShortDst
	}
	copy(dst, src[:loc[0]])
	copy(dst[loc[0]:], mapped)
	return loc[0] + len(mapped), loc[1], transform.ErrShortSrc
}
