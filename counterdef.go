// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// A CounterDefinition describes one counter of a group: its id, flags,
// description, position in the schema, and byte offset within an
// instance slot. Definitions are immutable once published.
//
// In the region a definition is a fixed 44-byte record: id, flags, and
// related id as little-endian 32-bit words, then the description,
// NUL-padded to 32 bytes. Index and offset are not stored; attachers
// recompute them from the record order.
type CounterDefinition struct {
	id          CounterID
	flags       uint32
	description string
	index       int
	offset      int
	related     CounterID
}

func newCounterDefinition(id CounterID, description string, flags uint32, offset, index int, related CounterID) (*CounterDefinition, error) {
	if counterSize(flags) == 0 {
		return nil, fmt.Errorf("%w: counter %s: flags %#x have no usable type", ErrInvalidSchema, idName(uint32(id)), flags)
	}
	if f := flags & formatMask; f&(f-1) != 0 {
		return nil, fmt.Errorf("%w: counter %s: flags %#x set more than one format", ErrInvalidSchema, idName(uint32(id)), flags)
	}
	if len(description) > descriptionSize {
		return nil, fmt.Errorf("%w: counter %s: description longer than %d bytes", ErrInvalidSchema, idName(uint32(id)), descriptionSize)
	}
	return &CounterDefinition{
		id:          id,
		flags:       flags,
		description: description,
		index:       index,
		offset:      offset,
		related:     related,
	}, nil
}

// parseCounterDefinition reads one 44-byte record out of the region.
func parseCounterDefinition(rec []byte, offset, index int) (*CounterDefinition, error) {
	id := CounterID(binary.LittleEndian.Uint32(rec[0:4]))
	flags := binary.LittleEndian.Uint32(rec[4:8])
	related := CounterID(binary.LittleEndian.Uint32(rec[8:12]))
	desc := rec[12 : 12+descriptionSize]
	if i := bytes.IndexByte(desc, 0); i >= 0 {
		desc = desc[:i]
	}
	return newCounterDefinition(id, string(desc), flags, offset, index, related)
}

// store writes the definition's 44-byte record into rec.
func (d *CounterDefinition) store(rec []byte) {
	binary.LittleEndian.PutUint32(rec[0:4], uint32(d.id))
	binary.LittleEndian.PutUint32(rec[4:8], d.flags)
	binary.LittleEndian.PutUint32(rec[8:12], uint32(d.related))
	desc := rec[12 : 12+descriptionSize]
	for i := range desc {
		desc[i] = 0
	}
	copy(desc, d.description)
}

// ID returns the counter id.
func (d *CounterDefinition) ID() CounterID { return d.id }

// Name returns the four-byte name the id packs.
func (d *CounterDefinition) Name() string { return idName(uint32(d.id)) }

// Description returns the human-readable description.
func (d *CounterDefinition) Description() string { return d.description }

// Flags returns the full flags word.
func (d *CounterDefinition) Flags() uint32 { return d.flags }

// Type returns the type bits of the flags word.
func (d *CounterDefinition) Type() uint32 { return d.flags & typeMask }

// Format returns the format bits of the flags word.
func (d *CounterDefinition) Format() uint32 { return d.flags & formatMask }

// Index returns the counter's position in the schema.
func (d *CounterDefinition) Index() int { return d.index }

// Offset returns the cell's byte offset within an instance slot.
func (d *CounterDefinition) Offset() int { return d.offset }

// RelatedID returns the id of the counter a derived format reads, or
// NoCounter.
func (d *CounterDefinition) RelatedID() CounterID { return d.related }

// CounterSize returns the cell size in bytes.
func (d *CounterDefinition) CounterSize() int { return counterSize(d.flags) }
