// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shm provides named shared memory regions for cross-process use.
//
// A region is identified by a short name that every cooperating process
// on the host maps to the same System V shared memory segment. The
// mapping is derived from a sentinel file under Dir, so producers and
// observers must agree on both the name and the directory.
package shm

import (
	"errors"
	"os"
)

// A Mode selects how Open treats an existing region of the same name.
type Mode int

const (
	// CreateNew creates the region and fails if it already exists.
	CreateNew Mode = iota
	// OpenOrCreate opens the region, creating it first if needed.
	// When several processes race, the first one wins creation.
	OpenOrCreate
	// OpenExisting opens the region and fails if it does not exist.
	OpenExisting
)

// Dir is the directory holding the sentinel files that name regions.
// All processes sharing a region must use the same Dir.
var Dir = os.TempDir()

var (
	ErrExists      = errors.New("shm: region already exists")
	ErrNotFound    = errors.New("shm: region does not exist")
	ErrBacking     = errors.New("shm: backing resource unavailable")
	ErrAttach      = errors.New("shm: cannot attach region")
	ErrUnsupported = errors.New("shm: not supported on this platform")
)

// A Region is an attached shared memory segment.
type Region struct {
	name    string
	path    string // sentinel file
	id      int    // segment id
	created bool
	data    []byte
}

// Name returns the name the region was opened with.
func (r *Region) Name() string { return r.name }

// Size returns the size of the attached segment in bytes. An existing
// segment keeps its own size, which may be larger or smaller than the
// size the caller asked Open for.
func (r *Region) Size() int { return len(r.data) }

// Bytes returns the raw bytes of the region, shared with every other
// attached process.
func (r *Region) Bytes() []byte { return r.data }

// Created reports whether this handle's Open call produced the region,
// as opposed to attaching to one that already existed.
func (r *Region) Created() bool { return r.created }
