// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package promexport exposes a shmetrics group to Prometheus.
//
// A Collector samples every live instance of an initialized group on
// each scrape and reports raw counter values; rate and ratio math is
// left to the scraper. Register it on a prometheus.Registry and serve
// that with promhttp.
package promexport

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shmetrics/shmetrics"
)

// A Collector implements prometheus.Collector over one metrics group.
type Collector struct {
	group *shmetrics.MetricsDefinition
	descs map[shmetrics.CounterID]*prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector for an initialized group. Text and
// ident counters and derived (related) counters are not exported.
func NewCollector(group *shmetrics.MetricsDefinition) *Collector {
	c := &Collector{
		group: group,
		descs: make(map[shmetrics.CounterID]*prometheus.Desc),
	}
	for _, def := range group.CounterDefinitions() {
		if def.RelatedID() != shmetrics.NoCounter {
			continue
		}
		switch def.Type() {
		case shmetrics.TypeInt32, shmetrics.TypeInt64:
		default:
			continue
		}
		name := "shmetrics_" + sanitize(group.Name()) + "_" + sanitize(def.Name())
		c.descs[def.ID()] = prometheus.NewDesc(name, def.Description(), []string{"instance_id"}, nil)
	}
	return c
}

// Describe sends the descriptor of every exported counter.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect samples each live instance and emits one metric per exported
// counter, labeled with the instance id.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.group.MaxInstances() == 1 {
		inst, err := c.group.GetInstance()
		if err != nil {
			return
		}
		c.collectInstance(ch, inst)
		return
	}
	for i := 0; i < c.group.MaxInstances(); i++ {
		inst, err := c.group.GetInstanceByIndex(i)
		if err != nil || !inst.IsAlive() {
			continue
		}
		c.collectInstance(ch, inst)
	}
}

func (c *Collector) collectInstance(ch chan<- prometheus.Metric, inst *shmetrics.MetricsInstance) {
	s := shmetrics.NewSample()
	if !inst.Sample(s) {
		return
	}
	label := strconv.FormatUint(uint64(inst.InstanceID()), 10)
	for id, desc := range c.descs {
		v, ok := s.Values[id].(float64)
		if !ok {
			continue
		}
		def, err := c.group.CounterDefinitionByID(id)
		if err != nil {
			continue
		}
		vt := prometheus.GaugeValue
		if def.Flags()&shmetrics.FlagMonotonic != 0 {
			vt = prometheus.CounterValue
		}
		ch <- prometheus.MustNewConstMetric(desc, vt, v, label)
	}
}

// sanitize maps a four-byte counter name onto the Prometheus metric
// name charset.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
