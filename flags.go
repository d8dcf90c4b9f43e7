// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

// Counter flags pack three independent fields into one 32-bit word:
// the counter type in the low four bits, the display format in bits
// 16-19, and modifiers from bit 20 up. Exactly one type bit and at
// most one format bit may be set.
const (
	TypeInt32 uint32 = 0x00000001 // 32-bit integer
	TypeInt64 uint32 = 0x00000002 // 64-bit integer
	TypeText  uint32 = 0x00000004 // 8-byte string
	TypeIdent uint32 = 0x00000008 // 8-byte identifier, shown as 16 hex chars

	typeMask uint32 = 0x0000000f

	FormatCount uint32 = 0x00000000 // raw value
	FormatDelta uint32 = 0x00010000 // v - v_prev
	FormatRate  uint32 = 0x00020000 // (v - v_prev) * 1000 / elapsed ms
	FormatRatio uint32 = 0x00040000 // v / related
	FormatTimer uint32 = 0x00080000 // rate of a monotonic ms counter, as a fraction of wall time

	formatMask uint32 = 0x000f0000

	// FlagMonotonic declares a counter that never decreases and
	// enables torn-read recovery on 64-bit loads.
	FlagMonotonic uint32 = 0x00100000
	// FlagUsePriorValue makes derivation read the preceding counter
	// in the schema as its source value.
	FlagUsePriorValue uint32 = 0x00200000
	// FlagPct scales the derived value by 100.
	FlagPct uint32 = 0x00400000
)

// instanceLive is the low bit of an instance slot's flags word.
const instanceLive uint32 = 0x00000001

// Region layout sizes, in bytes.
const (
	definitionHeaderSize = 12 // metrics id, counter count, max instances
	instanceHeaderSize   = 8  // slot flags, instance id
	counterRecordSize    = 44 // id, flags, related id, description
	descriptionSize      = 32
)

// counterSize returns the cell size for a flags word, or 0 when the
// type bits do not name exactly one known type.
func counterSize(flags uint32) int {
	switch flags & typeMask {
	case TypeInt32:
		return 4
	case TypeInt64, TypeText, TypeIdent:
		return 8
	}
	return 0
}
