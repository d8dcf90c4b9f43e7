// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmetrics

import (
	"errors"
	"strings"
	"testing"
)

func TestCounterSizes(t *testing.T) {
	tests := []struct {
		flags uint32
		want  int
	}{
		{TypeInt32, 4},
		{TypeInt64, 8},
		{TypeText, 8},
		{TypeIdent, 8},
		{TypeInt64 | FormatRate | FlagMonotonic, 8},
		{0, 0},
		{TypeInt32 | TypeText, 0},
		{typeMask, 0},
	}
	for _, tt := range tests {
		if got := counterSize(tt.flags); got != tt.want {
			t.Errorf("counterSize(%#x) = %d, want %d", tt.flags, got, tt.want)
		}
	}
}

func TestNewCounterDefinitionErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags uint32
		desc  string
	}{
		{"no type", FormatRate, "d"},
		{"two types", TypeInt32 | TypeText, "d"},
		{"two formats", TypeInt32 | FormatRate | FormatDelta, "d"},
		{"long description", TypeInt32, strings.Repeat("x", descriptionSize+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newCounterDefinition(MustCounterID("bad1"), tt.desc, tt.flags, 8, 0, NoCounter)
			if !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("got %v, want ErrInvalidSchema", err)
			}
		})
	}
}

func TestDefinitionRecordRoundTrip(t *testing.T) {
	def, err := newCounterDefinition(MustCounterID("vwlr"), "Vowel Keys Pressed /sec",
		TypeInt32|FormatRate, 20, 3, MustCounterID("vowl"))
	if err != nil {
		t.Fatal(err)
	}

	var rec [counterRecordSize]byte
	def.store(rec[:])
	got, err := parseCounterDefinition(rec[:], 20, 3)
	if err != nil {
		t.Fatal(err)
	}

	if got.ID() != def.ID() {
		t.Errorf("id = %#x, want %#x", got.ID(), def.ID())
	}
	if got.Flags() != def.Flags() {
		t.Errorf("flags = %#x, want %#x", got.Flags(), def.Flags())
	}
	if got.RelatedID() != def.RelatedID() {
		t.Errorf("related = %#x, want %#x", got.RelatedID(), def.RelatedID())
	}
	if got.Description() != def.Description() {
		t.Errorf("description = %q, want %q", got.Description(), def.Description())
	}
	if got.Name() != "vwlr" {
		t.Errorf("name = %q, want %q", got.Name(), "vwlr")
	}
	if got.Offset() != 20 || got.Index() != 3 {
		t.Errorf("offset/index = %d/%d, want 20/3", got.Offset(), got.Index())
	}
}

func TestParseRejectsCorruptRecord(t *testing.T) {
	var rec [counterRecordSize]byte // all zero: no type bits
	if _, err := parseCounterDefinition(rec[:], 8, 0); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("got %v, want ErrInvalidSchema", err)
	}
}

func TestIDNames(t *testing.T) {
	id, err := ParseCounterID("kcnt")
	if err != nil {
		t.Fatal(err)
	}
	if want := CounterID(uint32('k')<<24 | uint32('c')<<16 | uint32('n')<<8 | uint32('t')); id != want {
		t.Errorf("ParseCounterID(kcnt) = %#x, want %#x", id, want)
	}
	if got := idName(uint32(id)); got != "kcnt" {
		t.Errorf("idName round trip = %q, want %q", got, "kcnt")
	}
	if _, err := ParseCounterID("toolong"); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("ParseCounterID(toolong): got %v, want ErrInvalidSchema", err)
	}
	if _, err := ParseMetricsID("ab"); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("ParseMetricsID(ab): got %v, want ErrInvalidSchema", err)
	}
}

func TestMustCounterIDPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCounterID did not panic on a bad name")
		}
	}()
	MustCounterID("bad")
}
