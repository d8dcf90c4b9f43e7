// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

import "fmt"

// Counter, metrics, and instance ids are 32-bit values. By convention
// a counter or metrics id is four ASCII bytes packed big-endian, so
// that the id doubles as a short display name.
type (
	CounterID  uint32
	MetricsID  uint32
	InstanceID uint32
)

// NoCounter marks a definition that has no related counter.
const NoCounter CounterID = 0

func packID(name string) (uint32, error) {
	if len(name) != 4 {
		return 0, fmt.Errorf("%w: id name %q must be exactly 4 bytes", ErrInvalidSchema, name)
	}
	return uint32(name[0])<<24 | uint32(name[1])<<16 | uint32(name[2])<<8 | uint32(name[3]), nil
}

// idName decodes a packed id back into its four-byte name.
func idName(id uint32) string {
	return string([]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)})
}

// ParseCounterID returns the counter id for a four-byte name.
func ParseCounterID(name string) (CounterID, error) {
	id, err := packID(name)
	return CounterID(id), err
}

// ParseMetricsID returns the metrics id for a four-byte name.
func ParseMetricsID(name string) (MetricsID, error) {
	id, err := packID(name)
	return MetricsID(id), err
}

// MustCounterID is like ParseCounterID but panics on a bad name.
// It is intended for schema literals.
func MustCounterID(name string) CounterID {
	id, err := ParseCounterID(name)
	if err != nil {
		panic(err)
	}
	return id
}

// MustMetricsID is like ParseMetricsID but panics on a bad name.
func MustMetricsID(name string) MetricsID {
	id, err := ParseMetricsID(name)
	if err != nil {
		panic(err)
	}
	return id
}
