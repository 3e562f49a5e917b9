// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// dtinfo lists the nodes of a flattened device tree, or the records of a
// HOB list.
//
// Synopsis:
//     dtinfo [-c COMPATIBLE] [--json] DTB
//     dtinfo --hob HOBLIST
package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/text/transform"

	"github.com/linuxboot/rvacpi/pkg/compression"
	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/guid"
	"github.com/linuxboot/rvacpi/pkg/hob"
)

var (
	compatible = flag.StringP("compatible", "c", "", "only list nodes compatible with this string")
	jsonOut    = flag.Bool("json", false, "print JSON")
	hobList    = flag.Bool("hob", false, "the file is a HOB list")
)

// Node is one listed device tree node.
type Node struct {
	Path       string
	Compatible []string `json:",omitempty"`
	Status     string   `json:",omitempty"`
	PHandle    uint32   `json:",omitempty"`
}

func nodes(t *fdt.Tree, compat string) ([]Node, error) {
	list := t.Nodes()
	if compat != "" {
		list = t.Compatible(compat)
	}
	out := make([]Node, 0, len(list))
	for _, n := range list {
		node := Node{Path: n.Path()}
		if n.Has("compatible") {
			c, err := n.StringList("compatible")
			if err != nil {
				return nil, err
			}
			node.Compatible = c
		}
		if n.Has("status") {
			node.Status = n.Status()
		}
		ph, _, err := n.PHandle()
		if err != nil {
			return nil, err
		}
		node.PHandle = ph
		out = append(out, node)
	}
	return out, nil
}

func printNodes(w io.Writer, list []Node) {
	for _, n := range list {
		fmt.Fprintf(w, "%s", n.Path)
		if n.PHandle != 0 {
			fmt.Fprintf(w, " phandle=%#x", n.PHandle)
		}
		if len(n.Compatible) > 0 {
			fmt.Fprintf(w, " compatible=%q", n.Compatible)
		}
		if n.Status != "" {
			fmt.Fprintf(w, " status=%s", n.Status)
		}
		fmt.Fprintln(w)
	}
}

func printHOBs(w io.Writer, hobs []hob.HOB) {
	for _, h := range hobs {
		fmt.Fprintf(w, "%#06x %-20s %d", h.Offset, h.Type, h.Length)
		if g, ok := h.GUID(); ok {
			fmt.Fprintf(w, " %s", g)
			if data := h.GUIDData(); g == hob.FDTGUID && len(data) == 8 {
				fmt.Fprintf(w, " fdt@%#x", binary.LittleEndian.Uint64(data))
			}
		}
		fmt.Fprintln(w)
	}
}

func main() {
	flag.Parse()

	a := flag.Args()
	if len(a) != 1 {
		log.Fatal("Usage: dtinfo [-c compatible] [--json] [--hob] <file>")
	}

	raw, err := os.ReadFile(a[0])
	if err != nil {
		log.Fatal(err)
	}
	b, _, err := compression.Decompress(raw)
	if err != nil {
		log.Fatal(err)
	}

	var v interface{}
	if *hobList {
		hobs, err := hob.Parse(b)
		if err != nil {
			log.Fatal(err)
		}
		if !*jsonOut {
			w := transform.NewWriter(os.Stdout, guid.NewTransformer(guid.WithName))
			printHOBs(w, hobs)
			if err := w.Close(); err != nil {
				log.Fatal(err)
			}
			return
		}
		v = hobs
	} else {
		t, err := fdt.Load(b)
		if err != nil {
			log.Fatal(err)
		}
		list, err := nodes(t, *compatible)
		if err != nil {
			log.Fatal(err)
		}
		if !*jsonOut {
			printNodes(os.Stdout, list)
			return
		}
		v = list
	}
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s\n", j)
}
