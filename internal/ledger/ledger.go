// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/gnss2tec/internal/logging"
	"github.com/tomtom215/gnss2tec/internal/metrics"
)

// Status is the outcome of one conversion attempt.
type Status string

const (
	StatusConverted Status = "converted"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

var (
	// ErrLedgerClosed is returned by every operation after Close.
	ErrLedgerClosed = errors.New("ledger is closed")

	// ErrEmptyHour is returned when a record carries no hour key.
	ErrEmptyHour = errors.New("ledger record has no hour")

	// ErrLedgerBusy is returned by Shared when another process kept the
	// database open past BusyTimeout.
	ErrLedgerBusy = errors.New("ledger is in use by another process")
)

// Record is one conversion attempt.
type Record struct {
	ID         string    `json:"id"`
	Hour       string    `json:"hour"`
	Source     string    `json:"source"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Products   []string  `json:"products,omitempty"`
	InputFiles int       `json:"input_files"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store is the conversion ledger used by the worker and the status server.
type Store interface {
	Record(ctx context.Context, rec Record) (Record, error)
	Latest(hour string) (Record, bool, error)
	IsConverted(hour string) (bool, error)
	History(hour string) ([]Record, error)
	Recent(limit int) ([]Record, error)
	Prune(ctx context.Context, olderThan time.Time) (int, error)
	Close() error
}

// Config controls the Badger-backed ledger.
type Config struct {
	Path         string
	Retention    time.Duration
	CloseTimeout time.Duration

	// InMemory keeps the database in memory. Path is ignored.
	InMemory bool

	// BusyTimeout bounds how long a Shared ledger waits for another
	// process to release the database. Default 10s.
	BusyTimeout time.Duration
}

// Key prefixes
const (
	prefixAttempt = "attempt:"
	prefixHour    = "hour:"
)

// BadgerLedger stores conversion attempts in BadgerDB. Attempts live under
// attempt:<hour>:<start-nanos> and hour:<hour> holds a copy of the latest.
type BadgerLedger struct {
	db     *badger.DB
	config Config

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the ledger database.
func Open(cfg Config) (*BadgerLedger, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, errors.New("ledger path is required")
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Ledger opened")
	return &BadgerLedger{db: db, config: cfg}, nil
}

func openDB(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return db, nil
}

func (l *BadgerLedger) checkOpen() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrLedgerClosed
	}
	return nil
}

func attemptKey(hour string, started time.Time) []byte {
	// Zero-padded so lexical order is chronological.
	return []byte(fmt.Sprintf("%s%s:%020d", prefixAttempt, hour, started.UnixNano()))
}

func hourKey(hour string) []byte {
	return []byte(prefixHour + hour)
}

// Record stores rec as the latest attempt for its hour. A missing ID or
// timestamp is filled in. The stored record is returned.
func (l *BadgerLedger) Record(ctx context.Context, rec Record) (Record, error) {
	if err := l.checkOpen(); err != nil {
		return rec, err
	}
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	if rec.Hour == "" {
		return rec, ErrEmptyHour
	}

	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = now
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = now
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("marshal ledger record: %w", err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(attemptKey(rec.Hour, rec.StartedAt), data); err != nil {
			return err
		}
		return txn.Set(hourKey(rec.Hour), data)
	})
	if err != nil {
		return rec, fmt.Errorf("write ledger record: %w", err)
	}

	metrics.LedgerWrites.Inc()
	return rec, nil
}

// Latest returns the most recent attempt for hour.
func (l *BadgerLedger) Latest(hour string) (Record, bool, error) {
	if err := l.checkOpen(); err != nil {
		return Record{}, false, err
	}

	var rec Record
	found := false
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(hourKey(hour))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("read ledger hour %s: %w", hour, err)
	}
	return rec, found, nil
}

// IsConverted reports whether the latest attempt for hour succeeded.
func (l *BadgerLedger) IsConverted(hour string) (bool, error) {
	rec, ok, err := l.Latest(hour)
	if err != nil || !ok {
		return false, err
	}
	return rec.Status == StatusConverted, nil
}

// History returns every stored attempt for hour, oldest first.
func (l *BadgerLedger) History(hour string) ([]Record, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	prefix := []byte(prefixAttempt + hour + ":")
	var out []Record
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read ledger history for %s: %w", hour, err)
	}
	return out, nil
}

// Recent returns the latest attempt of up to limit hours, newest hour first.
func (l *BadgerLedger) Recent(limit int) ([]Record, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	prefix := []byte(prefixHour)
	var out []Record
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read recent ledger records: %w", err)
	}
	return out, nil
}

// Prune deletes attempts that started before olderThan, including hour
// pointers whose latest attempt is that old. It returns the number of
// attempt records removed.
func (l *BadgerLedger) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	if err := l.checkOpen(); err != nil {
		return 0, err
	}

	var stale [][]byte
	attempts := 0
	err := l.db.View(func(txn *badger.Txn) error {
		for _, p := range []string{prefixAttempt, prefixHour} {
			prefix := []byte(p)
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					it.Close()
					return err
				}
				var rec Record
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				}); err != nil {
					it.Close()
					return err
				}
				if rec.StartedAt.Before(olderThan) {
					stale = append(stale, it.Item().KeyCopy(nil))
					if p == prefixAttempt {
						attempts++
					}
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan ledger for pruning: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := l.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("prune ledger: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("prune ledger: %w", err)
	}

	metrics.LedgerPruned.Add(float64(attempts))
	logging.Debug().Int("attempts", attempts).Time("older_than", olderThan).Msg("Pruned ledger")
	return attempts, nil
}

// Retention returns the configured retention window.
func (l *BadgerLedger) Retention() time.Duration {
	return l.config.Retention
}

// Close closes the database. It is safe to call more than once.
func (l *BadgerLedger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	timeout := l.config.CloseTimeout
	l.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- l.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Ledger closed")
		return nil
	case <-time.After(timeout):
		logging.Warn().Dur("timeout", timeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", timeout)
	}
}

// Nop is a Store that records nothing. Used when the ledger is disabled.
type Nop struct{}

func (Nop) Record(_ context.Context, rec Record) (Record, error) { return rec, nil }
func (Nop) Latest(string) (Record, bool, error)                  { return Record{}, false, nil }
func (Nop) IsConverted(string) (bool, error)                     { return false, nil }
func (Nop) History(string) ([]Record, error)                     { return nil, nil }
func (Nop) Recent(int) ([]Record, error)                         { return nil, nil }
func (Nop) Prune(context.Context, time.Time) (int, error)        { return 0, nil }
func (Nop) Close() error                                         { return nil }

var (
	_ Store = (*BadgerLedger)(nil)
	_ Store = (*Shared)(nil)
	_ Store = Nop{}
)
