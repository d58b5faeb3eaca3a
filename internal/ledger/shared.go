// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/gnss2tec/internal/logging"
)

const busyRetryInterval = 50 * time.Millisecond

// badgerLockMessage is the text of Badger's directory lock error. Badger
// formats the cause into the message, so errors.Is cannot match it.
const badgerLockMessage = "Cannot acquire directory lock"

// IsBusy reports whether err means another process holds the database open.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrLedgerBusy) || strings.Contains(err.Error(), badgerLockMessage)
}

// Shared is a ledger on disk that several processes can use in turn.
// Badger takes an exclusive lock on its directory for as long as the
// database is open, so Shared opens it for each operation and closes it
// again. While another process holds it, operations retry until
// BusyTimeout and then fail with ErrLedgerBusy.
type Shared struct {
	config Config

	mu     sync.Mutex
	closed bool
}

// OpenShared checks that the ledger at cfg.Path can be opened and returns a
// Shared store. A database that is busy right now is not an error.
func OpenShared(cfg Config) (*Shared, error) {
	if cfg.InMemory {
		return nil, errors.New("shared ledger cannot be in memory")
	}
	if cfg.Path == "" {
		return nil, errors.New("ledger path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 10 * time.Second
	}

	// One attempt only: a busy database must not delay startup.
	db, err := openDB(cfg)
	switch {
	case err == nil:
		if err := db.Close(); err != nil {
			return nil, fmt.Errorf("close BadgerDB: %w", err)
		}
	case IsBusy(err):
		logging.Warn().Str("path", cfg.Path).Msg("Ledger in use by another process; will retry per operation")
	default:
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Dur("busy_timeout", cfg.BusyTimeout).
		Msg("Shared ledger ready")
	return &Shared{config: cfg}, nil
}

// with opens the database, runs fn and closes it.
func (s *Shared) with(ctx context.Context, fn func(l *BadgerLedger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrLedgerClosed
	}

	deadline := time.Now().Add(s.config.BusyTimeout)
	for {
		db, err := openDB(s.config)
		if err == nil {
			ferr := fn(&BadgerLedger{db: db, config: s.config})
			if cerr := db.Close(); cerr != nil && ferr == nil {
				return fmt.Errorf("close BadgerDB: %w", cerr)
			}
			return ferr
		}
		if !IsBusy(err) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLedgerBusy, s.config.Path)
		}

		t := time.NewTimer(busyRetryInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Record stores rec. See BadgerLedger.Record.
func (s *Shared) Record(ctx context.Context, rec Record) (Record, error) {
	out := rec
	err := s.with(ctx, func(l *BadgerLedger) error {
		var err error
		out, err = l.Record(ctx, rec)
		return err
	})
	return out, err
}

func (s *Shared) Latest(hour string) (Record, bool, error) {
	var (
		rec Record
		ok  bool
	)
	err := s.with(context.Background(), func(l *BadgerLedger) error {
		var err error
		rec, ok, err = l.Latest(hour)
		return err
	})
	return rec, ok, err
}

func (s *Shared) IsConverted(hour string) (bool, error) {
	rec, ok, err := s.Latest(hour)
	if err != nil || !ok {
		return false, err
	}
	return rec.Status == StatusConverted, nil
}

func (s *Shared) History(hour string) ([]Record, error) {
	var out []Record
	err := s.with(context.Background(), func(l *BadgerLedger) error {
		var err error
		out, err = l.History(hour)
		return err
	})
	return out, err
}

func (s *Shared) Recent(limit int) ([]Record, error) {
	var out []Record
	err := s.with(context.Background(), func(l *BadgerLedger) error {
		var err error
		out, err = l.Recent(limit)
		return err
	})
	return out, err
}

func (s *Shared) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	var n int
	err := s.with(ctx, func(l *BadgerLedger) error {
		var err error
		n, err = l.Prune(ctx, olderThan)
		return err
	})
	return n, err
}

// Close stops further use. The database is never left open between
// operations, so there is nothing to flush.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
