// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

import "time"

// A Sample is one timestamped reading of an instance: counter id to
// value, where numeric counters read as float64 and text and ident
// counters as string.
type Sample struct {
	Time   int64 // wall clock, milliseconds
	Values map[CounterID]any
}

// NewSample returns an empty sample ready to pass to
// MetricsInstance.Sample.
func NewSample() *Sample {
	return &Sample{Values: make(map[CounterID]any)}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// Format derives display values in place, reading prev as the earlier
// snapshot. For each counter, in schema order: the source value is the
// counter's own (or, with FlagUsePriorValue, the preceding counter's;
// or the related counter's when one is named), the format turns it
// into a count, delta, rate, ratio, or timer figure, FlagPct scales by
// 100, and the result is stored under the defined counter's id.
//
// Text and ident counters are skipped, as is everything when prev is
// empty: derivation needs two points. Rates divide by the time delta
// between the samples, so the caller must sample at distinct times.
//
// Format is to be called at most once per sample. After it runs the
// sample holds derived values, and running it again would derive from
// them.
func (s *Sample) Format(group *MetricsDefinition, prev *Sample) {
	for _, def := range group.defs {
		if t := def.Type(); t == TypeText || t == TypeIdent {
			continue
		}
		if prev == nil || len(prev.Values) == 0 {
			continue
		}

		src := def.id
		if def.flags&FlagUsePriorValue != 0 && def.index > 0 {
			src = group.defs[def.index-1].id
		}
		rel := def.related

		var v, p float64
		if def.Format() == FormatRatio {
			v = asDouble(s.Values[src])
		} else if rel == NoCounter {
			v = asDouble(s.Values[src])
			p = asDouble(prev.Values[src])
		} else {
			v = asDouble(s.Values[rel])
			p = asDouble(prev.Values[rel])
		}

		switch def.Format() {
		case FormatCount:
			// The raw value stands.
		case FormatDelta:
			v -= p
		case FormatRate:
			v = (v - p) * 1000 / float64(s.Time-prev.Time)
		case FormatRatio:
			if w := asDouble(s.Values[rel]); w != 0 {
				v /= w
			} else {
				v = 0
			}
		case FormatTimer:
			// Rate of a monotonic millisecond counter, normalized by
			// 1000 ms/s into a fraction of wall time.
			v = (v - p) * 1000 / float64(s.Time-prev.Time) / 1000
		}

		if def.flags&FlagPct != 0 {
			v *= 100
		}
		s.Values[def.id] = v
	}
}

// asDouble projects a sampled variant for arithmetic. Anything that is
// not already a float64 reads as zero, string values included.
func asDouble(v any) float64 {
	f, _ := v.(float64)
	return f
}
