// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

import (
	"math"
	"testing"
)

// groupForFormat builds a schema without a backing region; Format only
// needs the definitions.
func groupForFormat(t *testing.T, counters []struct {
	name, related string
	flags         uint32
}) *MetricsDefinition {
	t.Helper()
	g := NewMetricsDefinition(MustMetricsID("test"), 1)
	for _, c := range counters {
		if _, err := g.DefineCounterName(c.name, c.name, c.flags, c.related); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func sampleAt(time int64, values map[string]float64) *Sample {
	s := NewSample()
	s.Time = time
	for name, v := range values {
		s.Values[MustCounterID(name)] = v
	}
	return s
}

func wantValue(t *testing.T, s *Sample, name string, want float64) {
	t.Helper()
	got, ok := s.Values[MustCounterID(name)].(float64)
	if !ok {
		t.Fatalf("%s missing from sample", name)
	}
	if got != want {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// Counting and a prior-value ratio, end to end through a live region.
func TestScenarioCountAndRatio(t *testing.T) {
	setupShm(t)
	g := NewMetricsDefinition(MustMetricsID("sc1g"), 1)
	schema := []struct {
		name, related string
		flags         uint32
	}{
		{"kcnt", "", TypeInt32 | FormatCount},
		{"vowl", "", TypeInt32 | FormatCount},
		{"pvwl", "kcnt", TypeInt32 | FormatRatio | FlagUsePriorValue | FlagPct},
	}
	for _, c := range schema {
		if _, err := g.DefineCounterName(c.name, c.name, c.flags, c.related); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	inst, err := g.GetInstance()
	if err != nil {
		t.Fatal(err)
	}
	kcnt, err := inst.Int32CounterByID(MustCounterID("kcnt"))
	if err != nil {
		t.Fatal(err)
	}
	vowl, err := inst.Int32CounterByID(MustCounterID("vowl"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		kcnt.Inc()
	}
	for i := 0; i < 3; i++ {
		vowl.Inc()
	}
	s1 := NewSample()
	if !inst.Sample(s1) {
		t.Fatal("first sample failed")
	}

	for i := 0; i < 10; i++ {
		kcnt.Inc()
	}
	for i := 0; i < 2; i++ {
		vowl.Inc()
	}
	s2 := NewSample()
	if !inst.Sample(s2) {
		t.Fatal("second sample failed")
	}
	if _, ok := s2.Values[MustCounterID("pvwl")]; ok {
		t.Fatal("derived counter was sampled from the region")
	}

	s2.Format(g, s1)
	wantValue(t, s2, "kcnt", 20)
	wantValue(t, s2, "vowl", 5)
	// USE_PRIOR_VALUE feeds the preceding counter (vowl = 5) into the
	// ratio against kcnt = 20; PCT scales to percent.
	wantValue(t, s2, "pvwl", 25)
}

func TestScenarioRate(t *testing.T) {
	g := groupForFormat(t, []struct {
		name, related string
		flags         uint32
	}{
		{"vowl", "", TypeInt32 | FormatCount},
		{"vwlr", "vowl", TypeInt32 | FormatRate},
	})
	s1 := sampleAt(1000, map[string]float64{"vowl": 7})
	s2 := sampleAt(2000, map[string]float64{"vowl": 22})
	s2.Format(g, s1)
	wantValue(t, s2, "vwlr", 15)
}

func TestScenarioDelta(t *testing.T) {
	g := groupForFormat(t, []struct {
		name, related string
		flags         uint32
	}{
		{"vowl", "", TypeInt32 | FormatCount},
		{"dvwl", "vowl", TypeInt32 | FormatDelta},
	})
	s1 := sampleAt(1000, map[string]float64{"vowl": 7})
	s2 := sampleAt(2000, map[string]float64{"vowl": 22})
	s2.Format(g, s1)
	wantValue(t, s2, "dvwl", 15)
}

func TestScenarioTimer(t *testing.T) {
	g := groupForFormat(t, []struct {
		name, related string
		flags         uint32
	}{
		{"ptim", "", TypeInt64 | FormatCount | FlagMonotonic},
		{"ptmr", "ptim", TypeInt64 | FormatTimer | FlagPct},
	})
	// The timed scope was active for 250 ms of a 1000 ms window: 25%
	// of wall time.
	s1 := sampleAt(1000, map[string]float64{"ptim": 500})
	s2 := sampleAt(2000, map[string]float64{"ptim": 750})
	s2.Format(g, s1)
	wantValue(t, s2, "ptmr", 25)
}

func TestFormatNoPrior(t *testing.T) {
	g := groupForFormat(t, []struct {
		name, related string
		flags         uint32
	}{
		{"vowl", "", TypeInt32 | FormatCount},
		{"vwlr", "vowl", TypeInt32 | FormatRate},
	})
	s := sampleAt(1000, map[string]float64{"vowl": 7})
	s.Format(g, nil)
	if _, ok := s.Values[MustCounterID("vwlr")]; ok {
		t.Error("rate derived without a prior sample")
	}
	wantValue(t, s, "vowl", 7)

	s.Format(g, NewSample())
	if _, ok := s.Values[MustCounterID("vwlr")]; ok {
		t.Error("rate derived against an empty prior sample")
	}
}

func TestFormatRatioZeroDenominator(t *testing.T) {
	g := groupForFormat(t, []struct {
		name, related string
		flags         uint32
	}{
		{"part", "", TypeInt32 | FormatCount},
		{"whol", "", TypeInt32 | FormatCount},
		{"frac", "whol", TypeInt32 | FormatRatio | FlagUsePriorValue},
	})
	s1 := sampleAt(1000, map[string]float64{"part": 1, "whol": 0})
	s2 := sampleAt(2000, map[string]float64{"part": 3, "whol": 0})
	s2.Format(g, s1)
	wantValue(t, s2, "frac", 0)
}

// Sampling at the same instant is a boundary the caller must avoid;
// division by a zero time delta must surface as Inf or NaN rather
// than panic.
func TestFormatEqualTimesBoundary(t *testing.T) {
	g := groupForFormat(t, []struct {
		name, related string
		flags         uint32
	}{
		{"vowl", "", TypeInt32 | FormatCount},
		{"vwlr", "vowl", TypeInt32 | FormatRate},
	})
	s1 := sampleAt(1000, map[string]float64{"vowl": 7})
	s2 := sampleAt(1000, map[string]float64{"vowl": 22})
	s2.Format(g, s1)
	v, ok := s2.Values[MustCounterID("vwlr")].(float64)
	if !ok {
		t.Fatal("vwlr missing")
	}
	if !math.IsInf(v, 0) && !math.IsNaN(v) {
		t.Errorf("rate over zero elapsed time = %v, want Inf or NaN", v)
	}
}

func TestFormatSkipsTextAndIdent(t *testing.T) {
	g := groupForFormat(t, []struct {
		name, related string
		flags         uint32
	}{
		{"sfld", "", TypeText},
		{"guid", "", TypeIdent},
		{"red1", "", TypeInt32 | FormatCount},
	})
	s1 := sampleAt(1000, map[string]float64{"red1": 1})
	s1.Values[MustCounterID("sfld")] = "idle"
	s1.Values[MustCounterID("guid")] = "00000000deadbeef"
	s2 := sampleAt(2000, map[string]float64{"red1": 2})
	s2.Values[MustCounterID("sfld")] = "busy"
	s2.Values[MustCounterID("guid")] = "00000000deadbeef"

	s2.Format(g, s1)
	if got := s2.Values[MustCounterID("sfld")]; got != "busy" {
		t.Errorf("text value = %v, want busy", got)
	}
	if got := s2.Values[MustCounterID("guid")]; got != "00000000deadbeef" {
		t.Errorf("ident value = %v, want the hex string", got)
	}
	wantValue(t, s2, "red1", 2)
}

func TestSampleNotAlive(t *testing.T) {
	setupShm(t)
	g := NewMetricsDefinition(MustMetricsID("dead"), 2)
	defineMixed(t, g)
	if err := g.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	inst, err := g.GetInstanceByIndex(0)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSample()
	if inst.Sample(s) {
		t.Fatal("sample of a dead slot reported success")
	}
	if s.Time != 0 || len(s.Values) != 0 {
		t.Errorf("sample of a dead slot was mutated: time=%d values=%v", s.Time, s.Values)
	}
}

func TestSampleReadsAllCounterKinds(t *testing.T) {
	setupShm(t)
	g := NewMetricsDefinition(MustMetricsID("kind"), 1)
	defineMixed(t, g)
	if err := g.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	inst, err := g.GetInstance()
	if err != nil {
		t.Fatal(err)
	}
	sfld, err := inst.TextCounterByID(MustCounterID("sfld"))
	if err != nil {
		t.Fatal(err)
	}
	sfld.Set("run")
	guid, err := inst.IdentCounterByID(MustCounterID("guid"))
	if err != nil {
		t.Fatal(err)
	}
	guid.Set(0xdeadbeef)
	red1, err := inst.Int32CounterByID(MustCounterID("red1"))
	if err != nil {
		t.Fatal(err)
	}
	red1.Add(3)
	big1, err := inst.Int64CounterByID(MustCounterID("big1"))
	if err != nil {
		t.Fatal(err)
	}
	big1.Add(1 << 20)

	s := NewSample()
	if !inst.Sample(s) {
		t.Fatal("sample failed")
	}
	if s.Time == 0 {
		t.Error("sample time not stamped")
	}
	if got := s.Values[MustCounterID("sfld")]; got != "run" {
		t.Errorf("sfld = %v, want run", got)
	}
	if got := s.Values[MustCounterID("guid")]; got != "00000000deadbeef" {
		t.Errorf("guid = %v, want 00000000deadbeef", got)
	}
	wantValue(t, s, "red1", 3)
	wantValue(t, s, "big1", 1<<20)
	if _, ok := s.Values[MustCounterID("rat1")]; ok {
		t.Error("derived counter rat1 was sampled")
	}
}
