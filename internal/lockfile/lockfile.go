// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

// Package lockfile provides single-instance enforcement through OS-level
// advisory file locks.
//
// A lock is taken with a non-blocking exclusive flock(2) on a plain anchor
// file. Acquire never waits: if another process (or another descriptor in this
// process) holds the lock, it fails immediately with ErrHeld.
//
//	lk, err := lockfile.Acquire("/var/lib/gnss2tec-logger/convert.lock")
//	if err != nil {
//	    return err
//	}
//	defer lk.Release()
//
// The kernel drops the lock when the descriptor is closed, so a crashed
// process never leaves a stale lock behind. The anchor file itself is left on
// disk.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrHeld is returned when the lock is already held by another instance.
var ErrHeld = errors.New("lock held by another instance")

// Lock is an acquired exclusive lock. The zero value is not usable; obtain
// one with Acquire.
type Lock struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// Acquire creates parent directories as needed, opens (or creates) the lock
// file at path and takes a non-blocking exclusive lock on it.
func Acquire(path string) (*Lock, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrHeld, path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	return &Lock{path: path, file: f}, nil
}

// Path returns the lock anchor path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and closes the lock file. It is safe to call more than once
// and on a nil Lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close lock file %s: %w", l.path, closeErr)
	}
	return nil
}
