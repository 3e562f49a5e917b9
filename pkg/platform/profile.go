// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linuxboot/rvacpi/pkg/acpi"
)

// Profile describes a board: the identity written into every table header
// and the number of harts the table buffers are sized for.
type Profile struct {
	Name            string `yaml:"name"`
	OEMID           string `yaml:"oem_id"`
	OEMTableID      string `yaml:"oem_table_id"`
	OEMRevision     uint32 `yaml:"oem_revision"`
	CreatorID       string `yaml:"creator_id"`
	CreatorRevision uint32 `yaml:"creator_revision"`
	MaxHarts        int    `yaml:"max_harts"`
	// APLICHardwareID is the up to 8 character APLIC _HID, "VNTN0001" when
	// empty.
	APLICHardwareID string `yaml:"aplic_hardware_id,omitempty"`
	// StrictCaches makes missing cache properties fail the PPTT instead of
	// falling back to the default geometry.
	StrictCaches bool `yaml:"strict_caches,omitempty"`
}

// Built-in board profiles.
var (
	Orbiter = Profile{
		Name:            "orbiter",
		OEMID:           "VETANA",
		OEMTableID:      "ORBITER",
		OEMRevision:     1,
		CreatorID:       "VNTN",
		CreatorRevision: 1,
		MaxHarts:        16,
	}
	Thunderhill = Profile{
		Name:            "thunderhill",
		OEMID:           "VNTANA",
		OEMTableID:      "VENTANA",
		OEMRevision:     1,
		CreatorID:       "VNTN",
		CreatorRevision: 1,
		MaxHarts:        2,
	}
	VentanaSynth = Profile{
		Name:            "ventanasynth",
		OEMID:           "VNTANA",
		OEMTableID:      "VENTANA",
		OEMRevision:     1,
		CreatorID:       "VNTN",
		CreatorRevision: 1,
		MaxHarts:        32,
	}
)

var builtin = map[string]Profile{}

func init() {
	for _, p := range []Profile{Orbiter, Thunderhill, VentanaSynth} {
		builtin[p.Name] = p
	}
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupProfile returns the built-in profile called name, case insensitively.
func LookupProfile(name string) (Profile, error) {
	p, ok := builtin[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("unknown board %q, want one of %s", name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

// LoadProfile decodes a YAML profile. Fields left out keep the values of
// the built-in profile named by the "base" key, if any.
func LoadProfile(r io.Reader) (Profile, error) {
	var doc struct {
		Base    string `yaml:"base"`
		Profile `yaml:",inline"`
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return Profile{}, err
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Profile{}, fmt.Errorf("unable to parse profile: %w", err)
	}
	if doc.Base != "" {
		if doc.Profile, err = LookupProfile(doc.Base); err != nil {
			return Profile{}, err
		}
		// Decode again over the base values.
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return Profile{}, err
		}
	}
	if _, err := doc.Profile.Config(); err != nil {
		return Profile{}, err
	}
	return doc.Profile, nil
}

// LoadProfileFile reads a YAML profile from path.
func LoadProfileFile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()
	p, err := LoadProfile(f)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Marshal returns the YAML form of p.
func (p Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Config validates p and converts it into the table generator configuration.
func (p Profile) Config() (acpi.Config, error) {
	oem, err := acpi.NewOEM(p.OEMID, p.OEMTableID, p.OEMRevision, p.CreatorID, p.CreatorRevision)
	if err != nil {
		return acpi.Config{}, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	cfg := acpi.Config{OEM: oem, MaxHarts: p.MaxHarts, APLICHardwareID: acpi.DefaultAPLICHardwareID}
	if p.APLICHardwareID != "" {
		if cfg.APLICHardwareID, err = acpi.ParseHardwareID(p.APLICHardwareID); err != nil {
			return acpi.Config{}, fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return acpi.Config{}, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return cfg, nil
}
