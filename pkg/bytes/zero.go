// Copyright 2019-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytes

import (
	stdbytes "bytes"
)

var zeroPage [4096]byte

// IsZeroFilled returns true if b consists of zeros only.
func IsZeroFilled(b []byte) bool {
	for len(b) > 0 {
		n := len(b)
		if n > len(zeroPage) {
			n = len(zeroPage)
		}
		if !stdbytes.Equal(b[:n], zeroPage[:n]) {
			return false
		}
		b = b[n:]
	}
	return true
}
