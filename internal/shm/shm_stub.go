// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !(darwin && !ios)

package shm

import (
	"fmt"
	"runtime"
)

// Open fails on platforms without System V shared memory support.
func Open(name string, size int, mode Mode) (*Region, error) {
	return nil, fmt.Errorf("%w: %s/%s", ErrUnsupported, runtime.GOOS, runtime.GOARCH)
}

// Close releases nothing; regions cannot be opened on this platform.
func (r *Region) Close() error { return nil }
