// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/linuxboot/rvacpi/pkg/fdt"
)

// Cache is the geometry of one cache.
type Cache struct {
	Size          uint32
	Sets          uint32
	Associativity uint8
	LineSize      uint16

	// Path is the node the geometry was read from. It is empty when the
	// default geometry is used.
	Path string
}

// Default geometries, used for the caches the device tree does not describe.

// DefaultL1I returns the default L1 instruction cache geometry.
func DefaultL1I() Cache {
	return Cache{Size: 512 << 10, Sets: 1024, Associativity: 8, LineSize: 64}
}

// DefaultL1D returns the default L1 data cache geometry.
func DefaultL1D() Cache {
	return Cache{Size: 128 << 10, Sets: 256, Associativity: 8, LineSize: 64}
}

// DefaultL2 returns the default private L2 cache geometry.
func DefaultL2() Cache {
	return Cache{Size: 1 << 20, Sets: 2048, Associativity: 8, LineSize: 64}
}

// DefaultL3 returns the default shared L3 cache geometry.
func DefaultL3() Cache {
	return Cache{Size: 128 << 20, Sets: 0x20000, Associativity: 16, LineSize: 64}
}

// CoreCaches are the private caches of one core.
type CoreCaches struct {
	// Index is the position of the cpu node under /cpus.
	Index   int
	Path    string
	Enabled bool

	L1I Cache
	L1D Cache
	L2  Cache
}

// CacheTopology is a single cluster of cores with private L1 and L2 caches
// sharing one L3 cache.
type CacheTopology struct {
	L3    Cache
	Cores []CoreCaches
}

// Caches reads the cache hierarchy of every "cpu" node under /cpus. The L2
// cache is found through the "next-level-cache" phandle of the cpu node and
// the L3 cache through the one of the L2 node.
func Caches(t *fdt.Tree, opts Options) (*CacheTopology, error) {
	cpus, err := t.MustPathNode("/cpus")
	if err != nil {
		return nil, classify(err)
	}
	r := cacheReader{tree: t, opts: opts}
	topo := &CacheTopology{}
	var (
		l3      *fdt.Node
		enabled int
		result  *multierror.Error
	)
	isCPU := fdt.Named("cpu")
	for n, ok := t.NextInBranch(cpus, cpus, isCPU); ok; n, ok = t.NextInBranch(cpus, n, isCPU) {
		core := CoreCaches{Index: len(topo.Cores), Path: n.Path(), Enabled: n.Enabled()}
		if core.Enabled {
			enabled++
		}
		if core.L1I, err = r.geometry(n, DefaultL1I(), "i-cache"); err != nil {
			return nil, err
		}
		if core.L1D, err = r.geometry(n, DefaultL1D(), "d-cache"); err != nil {
			return nil, err
		}
		l2, err := r.next(n, "L2")
		if err != nil {
			return nil, err
		}
		core.L2 = DefaultL2()
		if l2 != nil {
			if core.L2, err = r.geometry(l2, DefaultL2(), "d-cache", "cache"); err != nil {
				return nil, err
			}
			node, err := r.next(l2, "L3")
			if err != nil {
				return nil, err
			}
			switch {
			case node == nil:
			case l3 == nil:
				l3 = node
			case l3 != node:
				result = multierror.Append(result, unsupported("%s uses L3 cache %s, %s is already shared by previous cores",
					n.Path(), node.Path(), l3.Path()))
			}
		}
		topo.Cores = append(topo.Cores, core)
	}
	if enabled == 0 {
		return nil, notFound("no enabled cpu under %s", cpus.Path())
	}

	topo.L3 = DefaultL3()
	if l3 != nil {
		if topo.L3, err = r.geometry(l3, DefaultL3(), "cache"); err != nil {
			return nil, err
		}
	}
	if err := checkSingleCluster(t); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return topo, nil
}

// checkSingleCluster rejects a cpu-map describing more than one socket or
// cluster.
func checkSingleCluster(t *fdt.Tree) error {
	cpuMap, ok := t.PathNode("/cpus/cpu-map")
	if !ok {
		return nil
	}
	var result *multierror.Error
	for _, kind := range []string{"socket", "cluster"} {
		count := t.CountInBranch(cpuMap, func(n *fdt.Node) bool {
			return strings.HasPrefix(n.Name(), kind)
		})
		if count > 1 {
			result = multierror.Append(result, unsupported("%s describes %d %ss", cpuMap.Path(), count, kind))
		}
	}
	return result.ErrorOrNil()
}

type cacheReader struct {
	tree *fdt.Tree
	opts Options
}

// next follows the "next-level-cache" phandle of n. A missing reference is
// only an error in strict mode, otherwise nil is returned.
func (r cacheReader) next(n *fdt.Node, level string) (*fdt.Node, error) {
	target, err := r.tree.Ref(n, "next-level-cache")
	if err == nil {
		return target, nil
	}
	if r.opts.Strict {
		return nil, classify(err)
	}
	r.opts.logger().Warnf("%s: %s cache not found (%v), using the default geometry", n.Path(), level, err)
	return nil, nil
}

// geometry reads "<prefix>-size", "<prefix>-sets" and "<prefix>-line-size"
// from n, trying each prefix in turn until one has a size. Values missing
// from the device tree keep the ones of def. The associativity is derived
// from the size whenever one is found.
func (r cacheReader) geometry(n *fdt.Node, def Cache, prefixes ...string) (Cache, error) {
	log := r.opts.logger()
	for _, prefix := range prefixes {
		if !n.Has(prefix + "-size") {
			continue
		}
		c := def
		c.Path = n.Path()
		var err error
		if c.Size, err = n.U32(prefix + "-size"); err != nil {
			return def, classify(err)
		}
		if c.Sets, err = r.optional(n, prefix+"-sets", c.Sets); err != nil {
			return def, err
		}
		line, err := r.optional(n, prefix+"-line-size", uint32(c.LineSize))
		if err != nil {
			return def, err
		}
		if line > 0xffff {
			return def, schema("%s: %s-line-size %d does not fit 16 bits", n.Path(), prefix, line)
		}
		c.LineSize = uint16(line)

		if c.Sets == 0 || c.LineSize == 0 {
			if r.opts.Strict {
				return def, schema("%s: %s has %d sets of %d byte lines", n.Path(), prefix, c.Sets, c.LineSize)
			}
			log.Warnf("%s: %s has %d sets of %d byte lines, keeping associativity %d",
				n.Path(), prefix, c.Sets, c.LineSize, c.Associativity)
			return c, nil
		}
		assoc := c.Size / c.Sets / uint32(c.LineSize)
		if assoc > 0xff {
			return def, schema("%s: %s associativity %d does not fit 8 bits", n.Path(), prefix, assoc)
		}
		c.Associativity = uint8(assoc)
		log.Debugf("%s: %s size %#x, %d sets, %d ways, %d byte lines",
			n.Path(), prefix, c.Size, c.Sets, c.Associativity, c.LineSize)
		return c, nil
	}
	if r.opts.Strict {
		return def, notFound("%s: no %s-size property", n.Path(), strings.Join(prefixes, "-size or "))
	}
	log.Warnf("%s: no %s-size property, using the default geometry", n.Path(), prefixes[0])
	return def, nil
}

func (r cacheReader) optional(n *fdt.Node, name string, def uint32) (uint32, error) {
	if n.Has(name) {
		v, err := n.U32(name)
		return v, classify(err)
	}
	if r.opts.Strict {
		return def, notFound("%s: missing property %q", n.Path(), name)
	}
	r.opts.logger().Warnf("%s: missing property %q, using %d", n.Path(), name, def)
	return def, nil
}
