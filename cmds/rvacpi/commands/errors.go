// Copyright 2017-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"strings"
)

// ErrArgs means arguments are invalid
type ErrArgs struct {
	Err error
}

func (err ErrArgs) Error() string {
	return fmt.Sprintf("invalid arguments: %v", err.Err)
}

func (err ErrArgs) Unwrap() error {
	return err.Err
}

// ErrVerification means some of the checked tables are broken.
type ErrVerification struct {
	Failed []string
}

func (err ErrVerification) Error() string {
	return fmt.Sprintf("verification failed for %s", strings.Join(err.Failed, ", "))
}
