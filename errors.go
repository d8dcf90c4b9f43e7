// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

import "errors"

var (
	// ErrInvalidSchema reports an unusable counter definition:
	// unknown or conflicting type flags, a duplicate id, or a
	// description that does not fit its record.
	ErrInvalidSchema = errors.New("shmetrics: invalid schema")

	// ErrRegionMismatch reports a region published under a different
	// metrics id.
	ErrRegionMismatch = errors.New("shmetrics: region belongs to a different metrics id")

	// ErrSchemaMismatch reports a region whose published schema
	// differs from the caller's declared one.
	ErrSchemaMismatch = errors.New("shmetrics: schema does not match region")

	// ErrCounterNotFound reports a lookup outside the schema.
	ErrCounterNotFound = errors.New("shmetrics: counter not found")

	// ErrInvalidIndex reports a lookup outside the group's slots or
	// definitions.
	ErrInvalidIndex = errors.New("shmetrics: index out of range")
)
