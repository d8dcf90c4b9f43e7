// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shmetrics publishes named performance counters in shared
// memory so independent processes can sample them.
//
// A producer declares a MetricsDefinition (a four-byte group id, a
// maximum instance count, and an ordered set of counters) and calls
// Initialize to publish the schema into a named shared region. An
// observer builds a group with the same id and no counters; Initialize
// then attaches to the region and recovers the schema from its
// self-describing header. Both sides hand out typed counter views over
// the region's cells.
//
// Counter reads and writes are wait-free: producers never block to
// publish and observers never block to sample. A sample is not an
// atomic snapshot across cells; observers take periodic samples and
// use Sample.Format to turn raw values into deltas, rates, ratios, and
// percent-time figures, which absorbs per-cell skew.
//
// The region is cooperative. Any attached process may write any cell;
// by convention only the process that declared itself the producer
// does, and observers only read.
package shmetrics
