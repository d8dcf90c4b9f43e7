// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/shmetrics/shmetrics/internal/shm"
)

// A MetricsDefinition is a named group of counters laid out in a
// shared region: a 12-byte header {metrics id, counter count, max
// instances}, one 44-byte record per counter, then max-instances
// instance slots of {flags, instance id, cells in schema order}.
//
// A producer declares counters with DefineCounter and publishes with
// Initialize. An observer declares none; Initialize attaches to the
// producer's region and recovers the schema from it.
type MetricsDefinition struct {
	id   MetricsID
	name string

	defs []*CounterDefinition
	byID map[CounterID]*CounterDefinition

	maxInstances   int
	definitionSize int
	instanceSize   int

	region    *shm.Region
	instances []byte // instance area of the region
}

// NewMetricsDefinition declares a group. Counters are added with
// DefineCounter before Initialize publishes or attaches the region.
// maxInstances below one is treated as a single-instance group.
func NewMetricsDefinition(id MetricsID, maxInstances int) *MetricsDefinition {
	if maxInstances < 1 {
		maxInstances = 1
	}
	return &MetricsDefinition{
		id:             id,
		name:           idName(uint32(id)),
		byID:           make(map[CounterID]*CounterDefinition),
		maxInstances:   maxInstances,
		definitionSize: definitionHeaderSize,
		instanceSize:   instanceHeaderSize,
	}
}

// MetricsID returns the group id.
func (g *MetricsDefinition) MetricsID() MetricsID { return g.id }

// Name returns the four-byte name the group id packs. It is also the
// name of the backing region.
func (g *MetricsDefinition) Name() string { return g.name }

// MaxInstances returns the group's slot count.
func (g *MetricsDefinition) MaxInstances() int { return g.maxInstances }

// InstanceSize returns the size of one instance slot in bytes.
func (g *MetricsDefinition) InstanceSize() int { return g.instanceSize }

// DefineCounter appends a counter to the schema. Its cell follows the
// cells of the counters defined before it. related names the counter a
// derived format reads, or NoCounter.
func (g *MetricsDefinition) DefineCounter(id CounterID, description string, flags uint32, related CounterID) (*CounterDefinition, error) {
	if g.region != nil {
		return nil, fmt.Errorf("%w: group %s is already initialized", ErrInvalidSchema, g.name)
	}
	if _, ok := g.byID[id]; ok {
		return nil, fmt.Errorf("%w: duplicate counter id %s", ErrInvalidSchema, idName(uint32(id)))
	}
	def, err := newCounterDefinition(id, description, flags, g.instanceSize, len(g.defs), related)
	if err != nil {
		return nil, err
	}
	g.definitionSize += counterRecordSize
	g.instanceSize += def.CounterSize()
	g.defs = append(g.defs, def)
	g.byID[id] = def
	return def, nil
}

// DefineCounterName is DefineCounter with four-byte names. An empty
// related name means no related counter.
func (g *MetricsDefinition) DefineCounterName(name, description string, flags uint32, related string) (*CounterDefinition, error) {
	id, err := ParseCounterID(name)
	if err != nil {
		return nil, err
	}
	rel := NoCounter
	if related != "" {
		if rel, err = ParseCounterID(related); err != nil {
			return nil, err
		}
	}
	return g.DefineCounter(id, description, flags, rel)
}

// Initialize opens the backing region and publishes or recovers the
// schema. A group with declared counters opens the region
// open-or-create, writes the header and records when it won creation,
// and validates them field by field when it did not. A group with no
// declared counters requires an existing region and loads the schema
// from it.
func (g *MetricsDefinition) Initialize() error {
	if g.region != nil {
		return fmt.Errorf("%w: group %s is already initialized", ErrInvalidSchema, g.name)
	}
	mode := shm.OpenOrCreate
	if len(g.defs) == 0 {
		mode = shm.OpenExisting
	}
	total := g.definitionSize + g.maxInstances*g.instanceSize
	region, err := shm.Open(g.name, total, mode)
	if err != nil {
		return err
	}
	if region.Created() {
		err = g.publish(region)
	} else {
		err = g.attach(region)
	}
	if err != nil {
		region.Close()
		return err
	}
	g.region = region
	return nil
}

// publish writes the header, the definition records, and a zeroed
// instance area into a freshly created region.
func (g *MetricsDefinition) publish(region *shm.Region) error {
	b := region.Bytes()
	clear(b)
	binary.LittleEndian.PutUint32(b[0:4], uint32(g.id))
	binary.LittleEndian.PutUint32(b[4:8], uint32(len(g.defs)))
	binary.LittleEndian.PutUint32(b[8:12], uint32(g.maxInstances))
	p := definitionHeaderSize
	for _, def := range g.defs {
		def.store(b[p : p+counterRecordSize])
		p += counterRecordSize
	}
	g.instances = b[p:]
	return nil
}

// attach validates an existing region against the declared schema, or
// loads the schema from the region when none was declared.
func (g *MetricsDefinition) attach(region *shm.Region) error {
	b := region.Bytes()
	if len(b) < definitionHeaderSize {
		return fmt.Errorf("%w: region %s is smaller than its header", ErrSchemaMismatch, g.name)
	}
	if got := MetricsID(binary.LittleEndian.Uint32(b[0:4])); got != g.id {
		return fmt.Errorf("%w: region %s holds metrics id %#x, want %#x", ErrRegionMismatch, g.name, uint32(got), uint32(g.id))
	}
	count := int(binary.LittleEndian.Uint32(b[4:8]))
	max := int(binary.LittleEndian.Uint32(b[8:12]))

	if len(g.defs) > 0 {
		if count != len(g.defs) {
			return fmt.Errorf("%w: region defines %d counters, schema has %d", ErrSchemaMismatch, count, len(g.defs))
		}
		if max != g.maxInstances {
			return fmt.Errorf("%w: region allows %d instances, schema has %d", ErrSchemaMismatch, max, g.maxInstances)
		}
		if len(b) < g.definitionSize+g.maxInstances*g.instanceSize {
			return fmt.Errorf("%w: region %s is smaller than its schema", ErrSchemaMismatch, g.name)
		}
		p := definitionHeaderSize
		for _, def := range g.defs {
			id := CounterID(binary.LittleEndian.Uint32(b[p : p+4]))
			flags := binary.LittleEndian.Uint32(b[p+4 : p+8])
			if id != def.id {
				return fmt.Errorf("%w: counter %d is %s, want %s", ErrSchemaMismatch, def.index, idName(uint32(id)), def.Name())
			}
			if flags != def.flags {
				return fmt.Errorf("%w: counter %s has flags %#x, want %#x", ErrSchemaMismatch, def.Name(), flags, def.flags)
			}
			p += counterRecordSize
		}
		g.instances = b[p:]
		// A producer re-attaching with its declared schema starts
		// from clean counters.
		clear(g.instances[:g.maxInstances*g.instanceSize])
		return nil
	}

	// No declared counters: recover the schema from the region.
	if count <= 0 {
		return fmt.Errorf("%w: region %s defines no counters", ErrInvalidSchema, g.name)
	}
	if len(b) < definitionHeaderSize+count*counterRecordSize {
		return fmt.Errorf("%w: region %s is smaller than its schema", ErrInvalidSchema, g.name)
	}
	var (
		defs           []*CounterDefinition
		byID           = make(map[CounterID]*CounterDefinition, count)
		definitionSize = definitionHeaderSize
		instanceSize   = instanceHeaderSize
	)
	p := definitionHeaderSize
	for i := 0; i < count; i++ {
		def, err := parseCounterDefinition(b[p:p+counterRecordSize], instanceSize, i)
		if err != nil {
			return err
		}
		if _, ok := byID[def.id]; ok {
			return fmt.Errorf("%w: duplicate counter id %s", ErrInvalidSchema, def.Name())
		}
		defs = append(defs, def)
		byID[def.id] = def
		definitionSize += counterRecordSize
		instanceSize += def.CounterSize()
		p += counterRecordSize
	}
	if len(b) < p+max*instanceSize {
		return fmt.Errorf("%w: region %s is smaller than its instance area", ErrInvalidSchema, g.name)
	}
	g.defs = defs
	g.byID = byID
	g.definitionSize = definitionSize
	g.instanceSize = instanceSize
	g.maxInstances = max
	g.instances = b[p:]
	return nil
}

// CounterDefinitions returns the schema in definition order.
func (g *MetricsDefinition) CounterDefinitions() []*CounterDefinition { return g.defs }

// CounterDefinition returns the definition at index i.
func (g *MetricsDefinition) CounterDefinition(i int) (*CounterDefinition, error) {
	if i < 0 || i >= len(g.defs) {
		return nil, fmt.Errorf("%w: definition %d of %d", ErrInvalidIndex, i, len(g.defs))
	}
	return g.defs[i], nil
}

// CounterDefinitionByID returns the definition for id.
func (g *MetricsDefinition) CounterDefinitionByID(id CounterID) (*CounterDefinition, error) {
	def, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCounterNotFound, idName(uint32(id)))
	}
	return def, nil
}

// GetInstance returns the sole slot of a single-instance group,
// marking it live with the metrics id as instance id on first use. A
// live slot is returned as is; its cells are never re-zeroed.
func (g *MetricsDefinition) GetInstance() (*MetricsInstance, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	if g.maxInstances != 1 {
		return nil, fmt.Errorf("%w: group %s is multi-instance", ErrInvalidIndex, g.name)
	}
	slot := g.slot(0)
	flags := (*atomic.Uint32)(unsafe.Pointer(&slot[0]))
	if flags.Load()&instanceLive == 0 {
		clear(slot)
		(*atomic.Uint32)(unsafe.Pointer(&slot[4])).Store(uint32(g.id))
		flags.Store(instanceLive)
	}
	return newInstance(g, slot), nil
}

// AllocInstance claims the first free slot of a multi-instance group,
// zeroes its cells, and stamps it with id. It returns nil when every
// slot is live or the group is single-instance or uninitialized. The
// LIVE bit is claimed with a compare-and-swap, so two racing
// allocators cannot win the same slot, but the scan itself is plain
// and callers allocating from several threads should serialize.
//
// The returned instance zeroes its slot on Release, freeing it.
func (g *MetricsDefinition) AllocInstance(id InstanceID) *MetricsInstance {
	if g.region == nil || g.maxInstances < 2 {
		return nil
	}
	for i := 0; i < g.maxInstances; i++ {
		slot := g.slot(i)
		flags := (*atomic.Uint32)(unsafe.Pointer(&slot[0]))
		f := flags.Load()
		if f&instanceLive != 0 {
			continue
		}
		if !flags.CompareAndSwap(f, f|instanceLive) {
			continue
		}
		clear(slot[4:])
		(*atomic.Uint32)(unsafe.Pointer(&slot[4])).Store(uint32(id))
		inst := newInstance(g, slot)
		inst.cleanup = true
		return inst
	}
	return nil
}

// GetInstanceByIndex returns slot i of a multi-instance group without
// changing its liveness.
func (g *MetricsDefinition) GetInstanceByIndex(i int) (*MetricsInstance, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	if g.maxInstances < 2 {
		return nil, fmt.Errorf("%w: group %s is single-instance", ErrInvalidIndex, g.name)
	}
	if i < 0 || i >= g.maxInstances {
		return nil, fmt.Errorf("%w: instance %d of %d", ErrInvalidIndex, i, g.maxInstances)
	}
	return newInstance(g, g.slot(i)), nil
}

// Close detaches the backing region. The last attached process
// releases it.
func (g *MetricsDefinition) Close() error {
	if g.region == nil {
		return nil
	}
	err := g.region.Close()
	g.region = nil
	g.instances = nil
	return err
}

func (g *MetricsDefinition) slot(i int) []byte {
	off := i * g.instanceSize
	return g.instances[off : off+g.instanceSize]
}

func (g *MetricsDefinition) ready() error {
	if g.region == nil {
		return fmt.Errorf("%w: group %s is not initialized", ErrInvalidSchema, g.name)
	}
	return nil
}
