// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"
)

// A Counter is a typed view over one cell of an instance slot.
type Counter interface {
	// Definition returns the schema entry this view reads and writes.
	Definition() *CounterDefinition
}

// numericCounter is implemented by views whose value participates in
// arithmetic derivation.
type numericCounter interface {
	asDouble() float64
}

// newCounter builds the view for def over its cell bytes. The type
// bits were validated when the definition was built, so an unknown
// type here is a corrupted schema.
func newCounter(def *CounterDefinition, cell []byte) Counter {
	switch def.Type() {
	case TypeInt32:
		return &Int32Counter{def: def, v: (*atomic.Int32)(unsafe.Pointer(&cell[0]))}
	case TypeInt64:
		return newInt64Counter(def, cell)
	case TypeText:
		return &TextCounter{def: def, cell: cell[:8]}
	case TypeIdent:
		return newIdentCounter(def, cell)
	}
	panic("shmetrics: invalid counter type")
}

// An Int32Counter is an atomic 32-bit integer cell.
type Int32Counter struct {
	def *CounterDefinition
	v   *atomic.Int32
}

func (c *Int32Counter) Definition() *CounterDefinition { return c.def }

// Value atomically loads the counter.
func (c *Int32Counter) Value() int32 { return c.v.Load() }

// Set atomically stores v.
func (c *Int32Counter) Set(v int32) { c.v.Store(v) }

// Add atomically adds delta and returns the new value.
func (c *Int32Counter) Add(delta int32) int32 { return c.v.Add(delta) }

// Inc atomically adds one and returns the new value.
func (c *Int32Counter) Inc() int32 { return c.v.Add(1) }

// Dec atomically subtracts one and returns the new value.
func (c *Int32Counter) Dec() int32 { return c.v.Add(-1) }

func (c *Int32Counter) asDouble() float64 { return float64(c.Value()) }

const (
	tornReadRetries = 10
	tornReadDelay   = time.Microsecond
)

// An Int64Counter is a 64-bit integer cell.
//
// Cells that land on an 8-byte boundary use atomic operations. The
// pinned slot layout can also place a cell on a 4-byte boundary; such
// cells use plain loads and stores, and for MONOTONIC counters the
// torn-read recovery below is the reader's safety net.
type Int64Counter struct {
	def  *CounterDefinition
	v    *atomic.Int64 // nil when the cell is not 8-byte aligned
	p    *int64
	prev int64 // last good read; per reader, not per cell
}

func newInt64Counter(def *CounterDefinition, cell []byte) *Int64Counter {
	p := (*int64)(unsafe.Pointer(&cell[0]))
	c := &Int64Counter{def: def, p: p}
	if uintptr(unsafe.Pointer(p))%8 == 0 {
		c.v = (*atomic.Int64)(unsafe.Pointer(p))
	}
	return c
}

func (c *Int64Counter) Definition() *CounterDefinition { return c.def }

func (c *Int64Counter) load() int64 {
	if c.v != nil {
		return c.v.Load()
	}
	return *c.p
}

// Value returns the current value. For MONOTONIC counters a load that
// went backward or jumped by more than 2^32 is treated as torn and
// retried with a 1 µs sleep between attempts; after ten attempts the
// last read is returned and the reader's previous value stands.
func (c *Int64Counter) Value() int64 {
	v := c.load()
	if c.def.flags&FlagMonotonic != 0 && torn(v, c.prev) {
		for r := 0; r < tornReadRetries && torn(v, c.prev); r++ {
			time.Sleep(tornReadDelay)
			v = c.load()
		}
		if torn(v, c.prev) {
			return v
		}
	}
	c.prev = v
	return v
}

func torn(v, prev int64) bool {
	return uint64(v) < uint64(prev) || uint64(v) > uint64(prev)+1<<32
}

// Set stores v.
func (c *Int64Counter) Set(v int64) {
	if c.v != nil {
		c.v.Store(v)
		return
	}
	*c.p = v
}

// Add adds delta and returns the new value.
func (c *Int64Counter) Add(delta int64) int64 {
	if c.v != nil {
		return c.v.Add(delta)
	}
	*c.p += delta
	return *c.p
}

// Inc adds one and returns the new value.
func (c *Int64Counter) Inc() int64 { return c.Add(1) }

// Dec subtracts one and returns the new value.
func (c *Int64Counter) Dec() int64 { return c.Add(-1) }

func (c *Int64Counter) asDouble() float64 { return float64(c.Value()) }

// A TextCounter is an 8-byte label cell. Reads and writes are plain
// byte copies; tearing is tolerated, text cells carry identity, not
// performance data.
type TextCounter struct {
	def  *CounterDefinition
	cell []byte
}

func (c *TextCounter) Definition() *CounterDefinition { return c.def }

// Value returns the cell's bytes up to the first NUL.
func (c *TextCounter) Value() string {
	var buf [8]byte
	copy(buf[:], c.cell)
	s := buf[:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}

// Set writes up to 8 bytes of s, NUL-padded.
func (c *TextCounter) Set(s string) {
	var buf [8]byte
	copy(buf[:], s)
	copy(c.cell, buf[:])
}

// An IdentCounter is an 8-byte identifier cell, sampled as 16 hex
// characters.
type IdentCounter struct {
	def *CounterDefinition
	v   *atomic.Uint64 // nil when the cell is not 8-byte aligned
	p   *uint64
}

func newIdentCounter(def *CounterDefinition, cell []byte) *IdentCounter {
	p := (*uint64)(unsafe.Pointer(&cell[0]))
	c := &IdentCounter{def: def, p: p}
	if uintptr(unsafe.Pointer(p))%8 == 0 {
		c.v = (*atomic.Uint64)(unsafe.Pointer(p))
	}
	return c
}

func (c *IdentCounter) Definition() *CounterDefinition { return c.def }

// Value returns the identifier.
func (c *IdentCounter) Value() uint64 {
	if c.v != nil {
		return c.v.Load()
	}
	return *c.p
}

// Set stores the identifier.
func (c *IdentCounter) Set(v uint64) {
	if c.v != nil {
		c.v.Store(v)
		return
	}
	*c.p = v
}

// String formats the identifier as 16 hex characters.
func (c *IdentCounter) String() string {
	return fmt.Sprintf("%016x", c.Value())
}
