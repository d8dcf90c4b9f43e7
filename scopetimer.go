// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

// A ScopeTimer accumulates the wall time of a scope into a 64-bit
// counter, typically one a FormatTimer counter derives from:
//
//	t := shmetrics.StartTimer(busy)
//	defer t.Stop()
type ScopeTimer struct {
	c     *Int64Counter
	start int64
}

// StartTimer begins timing a scope against c.
func StartTimer(c *Int64Counter) *ScopeTimer {
	return &ScopeTimer{c: c, start: nowMillis()}
}

// Stop adds the elapsed milliseconds to the counter. Stop may be
// called once per timer.
func (t *ScopeTimer) Stop() {
	if t.c != nil {
		t.c.Add(nowMillis() - t.start)
		t.c = nil
	}
}
