// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || (darwin && !ios)

package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Open attaches the region called name, creating it according to mode.
// size is the number of bytes a newly created segment gets; an existing
// segment is attached at its own size, which Size reports. OpenExisting
// does not create the sentinel file.
func Open(name string, size int, mode Mode) (*Region, error) {
	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrBacking, Dir, err)
	}
	path := filepath.Join(Dir, name)
	flag := os.O_CREATE | os.O_RDWR
	if mode == OpenExisting {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: sentinel %s: %v", ErrBacking, path, err)
	}
	f.Close()

	key, err := ftok(path)
	if err != nil {
		return nil, err
	}
	id, created, err := getSegment(name, key, size, mode)
	if err != nil {
		return nil, err
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (shmid %d): %v", ErrAttach, name, id, err)
	}
	return &Region{name: name, path: path, id: id, created: created, data: data}, nil
}

// getSegment resolves key to a segment id, creating the segment when
// the mode allows it. created is true exactly when this call made the
// segment; with OpenOrCreate the exclusive-create attempt decides a
// race between processes.
func getSegment(name string, key, size int, mode Mode) (id int, created bool, err error) {
	if mode == OpenExisting {
		id, err = unix.SysvShmGet(key, 0, 0o644)
		if err != nil {
			if err == unix.ENOENT {
				return 0, false, fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			return 0, false, fmt.Errorf("%w: shmget %s: %v", ErrBacking, name, err)
		}
		return id, false, nil
	}

	id, err = unix.SysvShmGet(key, size, unix.IPC_CREAT|unix.IPC_EXCL|0o644)
	if err == nil {
		return id, true, nil
	}
	if err != unix.EEXIST {
		return 0, false, fmt.Errorf("%w: shmget %s: %v", ErrBacking, name, err)
	}
	if mode == CreateNew {
		return 0, false, fmt.Errorf("%w: %s", ErrExists, name)
	}
	id, err = unix.SysvShmGet(key, 0, 0o644)
	if err != nil {
		return 0, false, fmt.Errorf("%w: shmget %s: %v", ErrBacking, name, err)
	}
	return id, false, nil
}

// ftok derives a System V IPC key from the sentinel file the way
// ftok(3) does, with a project id of 1.
func ftok(path string) (int, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", ErrBacking, path, err)
	}
	return int(uint32(st.Ino)&0xffff | (uint32(st.Dev)&0xff)<<16 | 1<<24), nil
}

// Close detaches the region. The last process to detach removes the
// backing segment and the sentinel file.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	if err := unix.SysvShmDetach(r.data); err != nil {
		return fmt.Errorf("shm: detach %s: %w", r.name, err)
	}
	r.data = nil
	var ds unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(r.id, unix.IPC_STAT, &ds); err == nil && ds.Nattch == 0 {
		unix.SysvShmCtl(r.id, unix.IPC_RMID, nil)
		os.Remove(r.path)
	}
	return nil
}
