// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/linuxboot/rvacpi/pkg/acpi"
	"github.com/linuxboot/rvacpi/pkg/acpi/madt"
	"github.com/linuxboot/rvacpi/pkg/acpi/pptt"
	"github.com/linuxboot/rvacpi/pkg/acpi/rhct"
)

// Tables are decoded tables. Missing ones are nil.
type Tables struct {
	MADT *madt.Table
	RHCT *rhct.Table
	PPTT *pptt.Table
}

// Decode decodes one table into ts according to its signature.
func (ts *Tables) Decode(b []byte) (acpi.Signature, error) {
	hdr, err := acpi.ParseHeader(b)
	if err != nil {
		return acpi.Signature{}, err
	}
	switch hdr.Signature {
	case acpi.SignatureMADT:
		ts.MADT, err = madt.Parse(b)
	case acpi.SignatureRHCT:
		ts.RHCT, err = rhct.Parse(b)
	case acpi.SignaturePPTT:
		if ts.PPTT, err = pptt.Parse(b); err == nil {
			err = ts.PPTT.Validate()
		}
	default:
		err = fmt.Errorf("%w: no decoder for table %s", acpi.ErrNotFound, hdr.Signature)
	}
	return hdr.Signature, err
}

// CrossCheck verifies that the tables describe the same processors: every
// RHCT hart info and every PPTT leaf must name the ACPI processor UID of a
// MADT RINTC, and the RHCT must cover exactly the enabled RINTCs.
func (ts *Tables) CrossCheck() error {
	if ts.MADT == nil {
		return nil
	}
	uids := map[uint32]bool{}
	for _, r := range ts.MADT.RINTC {
		uids[r.ACPIProcessorUID] = r.Enabled()
	}

	var result *multierror.Error
	if ts.RHCT != nil {
		seen := map[uint32]bool{}
		for _, h := range ts.RHCT.HartInfo {
			seen[h.ACPIProcessorUID] = true
			if enabled, ok := uids[h.ACPIProcessorUID]; !ok || !enabled {
				result = multierror.Append(result, fmt.Errorf("%w: RHCT hart info at %#x: UID %d is not an enabled MADT RINTC",
					acpi.ErrSchemaViolation, h.Offset, h.ACPIProcessorUID))
			}
		}
		for uid, enabled := range uids {
			if enabled && !seen[uid] {
				result = multierror.Append(result, fmt.Errorf("%w: RHCT has no hart info for UID %d",
					acpi.ErrSchemaViolation, uid))
			}
		}
	}
	if ts.PPTT != nil {
		for _, leaf := range ts.PPTT.Leaves() {
			if _, ok := uids[leaf.ACPIProcessorID]; !ok {
				result = multierror.Append(result, fmt.Errorf("%w: PPTT leaf at %#x: processor %d has no MADT RINTC",
					acpi.ErrSchemaViolation, leaf.Offset, leaf.ACPIProcessorID))
			}
		}
	}
	return result.ErrorOrNil()
}
