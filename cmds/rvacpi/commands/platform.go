// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"os"

	"github.com/linuxboot/rvacpi/pkg/fdt"
	"github.com/linuxboot/rvacpi/pkg/log"
	"github.com/linuxboot/rvacpi/pkg/platform"
)

// PlatformOptions select the board and where its device tree comes from.
// Commands embed it to share the flags.
type PlatformOptions struct {
	Board      string `short:"b" long:"board" description:"built-in board profile [orbiter, thunderhill, ventanasynth]" default:"thunderhill"`
	Profile    string `short:"p" long:"profile" description:"YAML board profile, takes precedence over --board"`
	DTB        string `short:"d" long:"dtb" description:"path to the device tree blob, optionally compressed"`
	HOBList    string `long:"hob-list" description:"path to a dump of the HOB list holding the FDT HOB"`
	Memory     string `long:"memory" description:"path to the memory image the FDT HOB points into"`
	MemoryBase uint64 `long:"memory-base" description:"physical address of the first byte of --memory" base:"0"`
	Strict     bool   `long:"strict" description:"fail instead of using default cache geometries"`
	LogLevel   string `long:"log-level" description:"[debug, info, warn, error]" default:"warn"`
}

// Setup applies the log level.
func (opts *PlatformOptions) Setup() error {
	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		return ErrArgs{Err: err}
	}
	log.DefaultLevel = level
	return nil
}

// LoadProfile returns the selected board profile.
func (opts *PlatformOptions) LoadProfile() (platform.Profile, error) {
	var (
		p   platform.Profile
		err error
	)
	if opts.Profile != "" {
		p, err = platform.LoadProfileFile(opts.Profile)
	} else {
		p, err = platform.LookupProfile(opts.Board)
	}
	if err != nil {
		return p, ErrArgs{Err: err}
	}
	if opts.Strict {
		p.StrictCaches = true
	}
	return p, nil
}

// Source returns the device tree source selected by the flags.
func (opts *PlatformOptions) Source() (platform.Source, error) {
	switch {
	case opts.DTB != "" && opts.HOBList != "":
		return nil, ErrArgs{Err: fmt.Errorf("--dtb and --hob-list are mutually exclusive")}
	case opts.DTB != "":
		return platform.FileSource(opts.DTB), nil
	case opts.HOBList != "":
		if opts.Memory == "" {
			return nil, ErrArgs{Err: fmt.Errorf("--hob-list needs --memory")}
		}
		hobs, err := os.ReadFile(opts.HOBList)
		if err != nil {
			return nil, err
		}
		mem, err := os.ReadFile(opts.Memory)
		if err != nil {
			return nil, err
		}
		return platform.HOBSource{HOBList: hobs, Memory: platform.Memory{Base: opts.MemoryBase, Data: mem}}, nil
	}
	return nil, ErrArgs{Err: fmt.Errorf("one of --dtb or --hob-list is required")}
}

// Platform assembles the platform described by the flags.
func (opts *PlatformOptions) Platform(inst platform.Installer) (*platform.Platform, error) {
	if err := opts.Setup(); err != nil {
		return nil, err
	}
	profile, err := opts.LoadProfile()
	if err != nil {
		return nil, err
	}
	src, err := opts.Source()
	if err != nil {
		return nil, err
	}
	return &platform.Platform{Profile: profile, Source: src, Installer: inst}, nil
}

// Tree loads the device tree selected by the flags.
func (opts *PlatformOptions) Tree() (*fdt.Tree, *platform.Platform, error) {
	p, err := opts.Platform(nil)
	if err != nil {
		return nil, nil, err
	}
	t, err := p.Tree()
	return t, p, err
}
