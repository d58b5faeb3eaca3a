// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

/*
Package ingest copies the receiver byte stream into hour-bucketed segment
files.

The Logger owns the byte source, the active segment and the telemetry
monitor. It is a single-goroutine loop:

  - read with a bounded timeout (a timeout or empty read is not an error)
  - append to the active segment and feed the telemetry monitor
  - rotate when the wall-clock hour changes and hand the closed hour to
    the HourSink
  - flush and emit [STAT] lines on fixed intervals

Hard read or write failures end Run with an error; the caller decides
whether that terminates the process.
*/
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/tomtom215/gnss2tec/internal/hourbucket"
	"github.com/tomtom215/gnss2tec/internal/logging"
	"github.com/tomtom215/gnss2tec/internal/metrics"
	"github.com/tomtom215/gnss2tec/internal/nmea"
	"github.com/tomtom215/gnss2tec/internal/serialport"
)

// Defaults used when Config fields are zero.
const (
	DefaultReadBufferSize = 8192
	MinReadBufferSize     = 1024
	DefaultFlushInterval  = 5 * time.Second
)

// HourSink receives every hour whose segment was closed by a rotation.
type HourSink interface {
	HourClosed(b hourbucket.Bucket) error
}

// HourSinkFunc adapts a function to HourSink.
type HourSinkFunc func(b hourbucket.Bucket) error

// HourClosed implements HourSink.
func (f HourSinkFunc) HourClosed(b hourbucket.Bucket) error { return f(b) }

// DiscardSink drops closed hours. Used when conversion is disabled.
var DiscardSink HourSink = HourSinkFunc(func(hourbucket.Bucket) error { return nil })

// Config controls the ingestion loop.
type Config struct {
	DataDir        string
	ReadBufferSize int
	FlushInterval  time.Duration

	// StatsInterval is how often a [STAT] line is logged. Zero disables
	// throughput reporting.
	StatsInterval time.Duration
}

// Stats is a point-in-time snapshot of the ingestion loop.
type Stats struct {
	Port          string            `json:"port"`
	TotalBytes    uint64            `json:"total_bytes"`
	ThroughputBPS float64           `json:"throughput_bps"`
	ActiveHour    string            `json:"active_hour"`
	ActiveSegment string            `json:"active_segment"`
	Rotations     uint64            `json:"rotations"`
	StartedAt     time.Time         `json:"started_at"`
	LastReadAt    time.Time         `json:"last_read_at"`
	Telemetry     map[string]string `json:"telemetry,omitempty"`
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock replaces the wall clock used for bucketing and intervals.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Logger) { l.log = logger }
}

// Logger is the ingestion loop.
type Logger struct {
	cfg     Config
	src     serialport.Source
	monitor *nmea.Monitor
	sink    HourSink
	now     func() time.Time
	log     zerolog.Logger

	active *segment
	buf    []byte

	lastFlush   time.Time
	lastStats   time.Time
	windowBytes uint64

	mu    sync.RWMutex
	stats Stats
}

// New validates cfg and returns a Logger reading from src. monitor may be
// nil. sink may be nil, in which case closed hours are discarded.
func New(cfg Config, src serialport.Source, monitor *nmea.Monitor, sink HourSink, opts ...Option) (*Logger, error) {
	if src == nil {
		return nil, errors.New("ingest: nil byte source")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("ingest: data directory is required")
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.ReadBufferSize < MinReadBufferSize {
		return nil, fmt.Errorf("ingest: read buffer size %d is below minimum %d", cfg.ReadBufferSize, MinReadBufferSize)
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.StatsInterval < 0 {
		return nil, fmt.Errorf("ingest: negative stats interval %v", cfg.StatsInterval)
	}
	if sink == nil {
		sink = DiscardSink
	}

	l := &Logger{
		cfg:     cfg,
		src:     src,
		monitor: monitor,
		sink:    sink,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logging.WithComponent(logging.ComponentIngest),
		buf:     make([]byte, cfg.ReadBufferSize),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.stats.Port = src.Name()
	return l, nil
}

// Run reads from the source until ctx is cancelled or a hard I/O error
// occurs. The active segment is flushed and closed on every return path.
func (l *Logger) Run(ctx context.Context) (err error) {
	if err := os.MkdirAll(l.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", l.cfg.DataDir, err)
	}

	now := l.now()
	if err := l.open(now); err != nil {
		return err
	}
	l.lastFlush, l.lastStats = now, now
	l.mu.Lock()
	l.stats.StartedAt = now
	l.mu.Unlock()

	l.log.Info().
		Str("port", l.src.Name()).
		Str("segment", l.active.path).
		Msg("ingestion started")

	defer func() {
		if l.active != nil {
			if closeErr := l.active.close(); err == nil {
				err = closeErr
			}
			l.active = nil
		}
		l.log.Info().
			Uint64("total_bytes", l.Stats().TotalBytes).
			Msg("ingestion stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.step(); err != nil {
			return err
		}
	}
}

// step performs one read and the periodic work that follows it.
func (l *Logger) step() error {
	n, err := l.src.Read(l.buf)
	if err != nil && !isTimeout(err) {
		metrics.IngestReadErrors.Inc()
		return fmt.Errorf("read from %s: %w", l.src.Name(), err)
	}

	now := l.now()
	if n > 0 {
		chunk := l.buf[:n]
		if err := l.active.write(chunk); err != nil {
			return err
		}
		l.windowBytes += uint64(n)
		metrics.RecordIngest(n)
		l.monitor.Ingest(chunk)

		l.mu.Lock()
		l.stats.TotalBytes += uint64(n)
		l.stats.LastReadAt = now
		l.mu.Unlock()
	}
	l.monitor.MaybeEmit(now)

	if !hourbucket.Of(now).Equal(l.active.bucket) {
		if err := l.rotate(now); err != nil {
			return err
		}
	}

	if now.Sub(l.lastFlush) >= l.cfg.FlushInterval {
		if err := l.active.flush(); err != nil {
			return err
		}
		l.lastFlush = now
	}
	if l.cfg.StatsInterval == 0 {
		return nil
	}
	if elapsed := now.Sub(l.lastStats); elapsed >= l.cfg.StatsInterval {
		l.reportStats(now, elapsed)
	}
	return nil
}

func (l *Logger) open(now time.Time) error {
	seg, err := openSegment(l.cfg.DataDir, now)
	if err != nil {
		return err
	}
	l.active = seg
	metrics.SegmentsOpened.Inc()

	l.mu.Lock()
	l.stats.ActiveHour = seg.bucket.Key()
	l.stats.ActiveSegment = seg.path
	l.mu.Unlock()
	return nil
}

// rotate closes the active segment, opens one for the hour of now and
// reports the closed hour to the sink. A sink error does not stop ingestion.
func (l *Logger) rotate(now time.Time) error {
	closed := l.active.bucket
	err := l.active.close()
	l.active = nil
	if err != nil {
		return err
	}
	if err := l.open(now); err != nil {
		return err
	}
	l.lastFlush = now
	metrics.IngestRotations.Inc()

	l.mu.Lock()
	l.stats.Rotations++
	l.mu.Unlock()

	l.log.Info().
		Str("closed_hour", closed.Key()).
		Str("segment", l.active.path).
		Msg("rotated segment")

	if err := l.sink.HourClosed(closed); err != nil {
		l.log.Error().Err(err).Str("hour", closed.Key()).Msg("failed to enqueue conversion for closed hour")
	}
	return nil
}

func (l *Logger) reportStats(now time.Time, elapsed time.Duration) {
	bps := float64(l.windowBytes*8) / elapsed.Seconds()
	l.windowBytes = 0
	l.lastStats = now
	metrics.IngestThroughput.Set(bps)

	var telemetry map[string]string
	if l.monitor.Enabled() {
		telemetry = make(map[string]string, len(nmea.WatchedTypes))
		for _, id := range nmea.WatchedTypes {
			if s, ok := l.monitor.Latest(id); ok {
				telemetry[id] = s
			}
		}
	}

	l.mu.Lock()
	l.stats.ThroughputBPS = bps
	if telemetry != nil {
		l.stats.Telemetry = telemetry
	}
	total := l.stats.TotalBytes
	l.mu.Unlock()

	l.log.Info().
		Uint64("total_bytes", total).
		Str("total", humanize.Bytes(total)).
		Float64("bps", bps).
		Str("port", l.src.Name()).
		Msg("[STAT]")
}

// Stats returns a copy of the current statistics. Safe for concurrent use.
func (l *Logger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.stats
	if l.stats.Telemetry != nil {
		s.Telemetry = make(map[string]string, len(l.stats.Telemetry))
		for k, v := range l.stats.Telemetry {
			s.Telemetry[k] = v
		}
	}
	return s
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
