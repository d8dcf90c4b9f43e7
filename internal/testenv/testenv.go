// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testenv contains helper functions for skipping tests
// based on what the host platform supports.
package testenv

import (
	"runtime"
	"testing"
)

// SkipIfUnsupportedPlatform skips t on platforms where shared memory
// regions cannot be opened.
func SkipIfUnsupportedPlatform(t testing.TB) {
	t.Helper()
	switch runtime.GOOS {
	case "linux", "darwin":
	default:
		t.Skipf("shared memory regions are not supported on %s", runtime.GOOS)
	}
}
