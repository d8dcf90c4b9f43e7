// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// A MetricsInstance is one row of a group: the slot header plus a
// typed view for every counter, in schema order. Handles are cheap;
// observers build a fresh one per sampling pass.
type MetricsInstance struct {
	group    *MetricsDefinition
	slot     []byte
	flags    *atomic.Uint32
	id       *atomic.Uint32
	counters []Counter
	cleanup  bool
}

func newInstance(group *MetricsDefinition, slot []byte) *MetricsInstance {
	inst := &MetricsInstance{
		group: group,
		slot:  slot,
		flags: (*atomic.Uint32)(unsafe.Pointer(&slot[0])),
		id:    (*atomic.Uint32)(unsafe.Pointer(&slot[4])),
	}
	inst.counters = make([]Counter, 0, len(group.defs))
	for _, def := range group.defs {
		cell := slot[def.offset : def.offset+def.CounterSize()]
		inst.counters = append(inst.counters, newCounter(def, cell))
	}
	return inst
}

// IsAlive reports whether the slot has been allocated.
func (inst *MetricsInstance) IsAlive() bool {
	return inst.flags.Load()&instanceLive != 0
}

// InstanceID returns the slot's instance id.
func (inst *MetricsInstance) InstanceID() InstanceID {
	return InstanceID(inst.id.Load())
}

// CounterByIndex returns the view at schema index i.
func (inst *MetricsInstance) CounterByIndex(i int) (Counter, error) {
	if i < 0 || i >= len(inst.counters) {
		return nil, fmt.Errorf("%w: counter %d of %d", ErrInvalidIndex, i, len(inst.counters))
	}
	return inst.counters[i], nil
}

// CounterByID returns the view for id.
func (inst *MetricsInstance) CounterByID(id CounterID) (Counter, error) {
	def, ok := inst.group.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCounterNotFound, idName(uint32(id)))
	}
	return inst.counters[def.index], nil
}

// Int32CounterByID returns the 32-bit view for id.
func (inst *MetricsInstance) Int32CounterByID(id CounterID) (*Int32Counter, error) {
	c, err := inst.CounterByID(id)
	if err != nil {
		return nil, err
	}
	v, ok := c.(*Int32Counter)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a 32-bit counter", ErrCounterNotFound, idName(uint32(id)))
	}
	return v, nil
}

// Int64CounterByID returns the 64-bit view for id.
func (inst *MetricsInstance) Int64CounterByID(id CounterID) (*Int64Counter, error) {
	c, err := inst.CounterByID(id)
	if err != nil {
		return nil, err
	}
	v, ok := c.(*Int64Counter)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a 64-bit counter", ErrCounterNotFound, idName(uint32(id)))
	}
	return v, nil
}

// TextCounterByID returns the text view for id.
func (inst *MetricsInstance) TextCounterByID(id CounterID) (*TextCounter, error) {
	c, err := inst.CounterByID(id)
	if err != nil {
		return nil, err
	}
	v, ok := c.(*TextCounter)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a text counter", ErrCounterNotFound, idName(uint32(id)))
	}
	return v, nil
}

// IdentCounterByID returns the identifier view for id.
func (inst *MetricsInstance) IdentCounterByID(id CounterID) (*IdentCounter, error) {
	c, err := inst.CounterByID(id)
	if err != nil {
		return nil, err
	}
	v, ok := c.(*IdentCounter)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an ident counter", ErrCounterNotFound, idName(uint32(id)))
	}
	return v, nil
}

// Sample reads every non-derived counter into s and stamps s with the
// current wall clock in milliseconds. It reports false and leaves s
// untouched when the slot is not live.
//
// Counters whose definition names a related counter are skipped: their
// value is derived by Sample.Format, not read from a cell.
func (inst *MetricsInstance) Sample(s *Sample) bool {
	if !inst.IsAlive() {
		return false
	}
	s.Time = nowMillis()
	if s.Values == nil {
		s.Values = make(map[CounterID]any, len(inst.counters))
	}
	for _, c := range inst.counters {
		def := c.Definition()
		if def.related != NoCounter {
			continue
		}
		switch v := c.(type) {
		case *TextCounter:
			s.Values[def.id] = v.Value()
		case *IdentCounter:
			s.Values[def.id] = v.String()
		case numericCounter:
			s.Values[def.id] = v.asDouble()
		}
	}
	return true
}

// Release returns the slot to the group. Instances handed out by
// AllocInstance zero their slot, freeing it for reuse; all other
// handles release nothing.
func (inst *MetricsInstance) Release() {
	if !inst.cleanup {
		return
	}
	inst.cleanup = false
	inst.flags.Store(0)
	inst.id.Store(0)
	clear(inst.slot[instanceHeaderSize:])
}
