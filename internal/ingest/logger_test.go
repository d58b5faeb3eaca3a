// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/gnss2tec/internal/hourbucket"
	"github.com/tomtom215/gnss2tec/internal/logging"
	"github.com/tomtom215/gnss2tec/internal/nmea"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type scriptedRead struct {
	data    string
	err     error
	advance time.Duration
}

// scriptedSource replays reads and cancels the run once the script is
// exhausted.
type scriptedSource struct {
	clock  *fakeClock
	reads  []scriptedRead
	cancel context.CancelFunc
}

func (s *scriptedSource) Read(p []byte) (int, error) {
	if len(s.reads) == 0 {
		s.cancel()
		return 0, nil
	}
	r := s.reads[0]
	s.reads = s.reads[1:]
	s.clock.Advance(r.advance)
	if r.err != nil {
		return 0, r.err
	}
	return copy(p, r.data), nil
}

func (s *scriptedSource) Write(p []byte) (int, error) { return len(p), nil }
func (s *scriptedSource) Close() error                { return nil }
func (s *scriptedSource) Name() string                { return "/dev/ttyTEST" }

type recordingSink struct {
	hours []string
	err   error
}

func (r *recordingSink) HourClosed(b hourbucket.Bucket) error {
	r.hours = append(r.hours, b.Key())
	return r.err
}

func newTestLogger(t *testing.T, dir string, start time.Time, reads []scriptedRead, monitor *nmea.Monitor, sink HourSink) (*Logger, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := &fakeClock{t: start}
	src := &scriptedSource{clock: clock, reads: reads, cancel: cancel}
	l, err := New(Config{DataDir: dir, StatsInterval: 5 * time.Second}, src, monitor, sink,
		WithClock(clock.Now),
		WithLogger(logging.NewTestLogger(io.Discard)),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, ctx
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestLoggerRotatesOnHourBoundary(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 9, 59, 58, 0, time.UTC)
	sink := &recordingSink{}

	l, ctx := newTestLogger(t, dir, start, []scriptedRead{
		{data: "abc", advance: time.Second},
		{data: "def", advance: time.Second},
		{data: "ghi", advance: time.Second},
	}, nil, sink)

	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := readFile(t, filepath.Join(dir, "20240101_095958.ubx")); got != "abcdef" {
		t.Errorf("first segment = %q, want %q", got, "abcdef")
	}
	if got := readFile(t, filepath.Join(dir, "20240101_100000.ubx")); got != "ghi" {
		t.Errorf("second segment = %q, want %q", got, "ghi")
	}
	if len(sink.hours) != 1 || sink.hours[0] != "20240101_09" {
		t.Errorf("closed hours = %v, want [20240101_09]", sink.hours)
	}

	stats := l.Stats()
	if stats.TotalBytes != 9 {
		t.Errorf("TotalBytes = %d, want 9", stats.TotalBytes)
	}
	if stats.Rotations != 1 {
		t.Errorf("Rotations = %d, want 1", stats.Rotations)
	}
	if stats.ActiveHour != "20240101_10" {
		t.Errorf("ActiveHour = %q", stats.ActiveHour)
	}
}

func TestLoggerTimeoutIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	l, ctx := newTestLogger(t, dir, start, []scriptedRead{
		{err: os.ErrDeadlineExceeded},
		{data: "", advance: time.Millisecond},
		{data: "xyz"},
	}, nil, nil)

	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "20240101_090000.ubx")); got != "xyz" {
		t.Errorf("segment = %q, want %q", got, "xyz")
	}
}

func TestLoggerHardReadErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	deviceGone := errors.New("device disconnected")

	l, ctx := newTestLogger(t, dir, start, []scriptedRead{
		{data: "kept"},
		{err: deviceGone},
	}, nil, nil)

	err := l.Run(ctx)
	if !errors.Is(err, deviceGone) {
		t.Fatalf("Run() error = %v, want %v", err, deviceGone)
	}
	if !strings.Contains(err.Error(), "/dev/ttyTEST") {
		t.Errorf("error %q does not name the port", err)
	}
	if got := readFile(t, filepath.Join(dir, "20240101_090000.ubx")); got != "kept" {
		t.Errorf("segment = %q, want bytes flushed before failure", got)
	}
}

func TestLoggerSinkErrorDoesNotStopIngestion(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 9, 59, 59, 0, time.UTC)
	sink := &recordingSink{err: errors.New("queue closed")}

	l, ctx := newTestLogger(t, dir, start, []scriptedRead{
		{data: "a", advance: time.Second},
		{data: "b"},
	}, nil, sink)

	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "20240101_100000.ubx")); got != "b" {
		t.Errorf("segment after rotation = %q, want %q", got, "b")
	}
}

func TestLoggerFeedsTelemetryMonitor(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rmc := "$GNRMC,123519.00,A,4807.038,N,01131.000,E,022.4,084.4,230394,,,A*6A"

	var lines []string
	monitor := nmea.NewMonitor(time.Second, nmea.FormatRaw, func(line string) {
		lines = append(lines, line)
	}, start)

	l, ctx := newTestLogger(t, dir, start, []scriptedRead{
		{data: "\xb5\x62" + rmc + "\r\n"},
		{advance: 6 * time.Second},
	}, monitor, nil)

	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(lines) != 1 || lines[0] != "[NMEA:RMC:RAW] "+rmc {
		t.Errorf("telemetry lines = %q", lines)
	}
	if got := l.Stats().Telemetry["RMC"]; got != rmc {
		t.Errorf("Stats().Telemetry[RMC] = %q, want %q", got, rmc)
	}
}

func TestLoggerStatsInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     int
	}{
		{"disabled", 0, 0},
		{"every two seconds", 2 * time.Second, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
			var reads []scriptedRead
			for i := 0; i < 6; i++ {
				reads = append(reads, scriptedRead{data: "\xb5\x62", advance: time.Second})
			}
			src := &scriptedSource{clock: clock, reads: reads, cancel: cancel}

			var buf strings.Builder
			l, err := New(Config{DataDir: t.TempDir(), StatsInterval: tt.interval}, src, nil, nil,
				WithClock(clock.Now),
				WithLogger(logging.NewTestLogger(&buf)),
			)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if err := l.Run(ctx); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := strings.Count(buf.String(), "[STAT]"); got != tt.want {
				t.Errorf("[STAT] lines = %d, want %d\n%s", got, tt.want, buf.String())
			}
		})
	}
}

func TestNewRejectsSmallBuffer(t *testing.T) {
	src := &scriptedSource{clock: &fakeClock{}, cancel: func() {}}
	if _, err := New(Config{DataDir: t.TempDir(), ReadBufferSize: 512}, src, nil, nil); err == nil {
		t.Error("New() error = nil for 512-byte buffer")
	}
	if _, err := New(Config{}, src, nil, nil); err == nil {
		t.Error("New() error = nil without data directory")
	}
	if _, err := New(Config{DataDir: t.TempDir(), StatsInterval: -time.Second}, src, nil, nil); err == nil {
		t.Error("New() error = nil for negative stats interval")
	}
}

func TestNextSegmentName(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		existing []string
		now      time.Time
		want     string
	}{
		{
			name: "empty directory",
			now:  now,
			want: "20240101_093000.ubx",
		},
		{
			name:     "later than existing",
			existing: []string{"20240101_091000.ubx"},
			now:      now,
			want:     "20240101_093000.ubx",
		},
		{
			name:     "same second bumps timestamp",
			existing: []string{"20240101_093000.ubx"},
			now:      now,
			want:     "20240101_093001.ubx",
		},
		{
			name:     "clock behind existing segment",
			existing: []string{"20240101_094500.ubx"},
			now:      now,
			want:     "20240101_094501.ubx",
		},
		{
			name:     "last second of hour appends suffix",
			existing: []string{"20240101_095959.ubx"},
			now:      time.Date(2024, 1, 1, 9, 59, 59, 0, time.UTC),
			want:     "20240101_095959_001.ubx",
		},
		{
			name:     "suffix increments",
			existing: []string{"20240101_095959.ubx", "20240101_095959_001.ubx"},
			now:      time.Date(2024, 1, 1, 9, 59, 59, 0, time.UTC),
			want:     "20240101_095959_002.ubx",
		},
		{
			name:     "other hours ignored",
			existing: []string{"20240101_105959.ubx", "20240101_085959.ubx"},
			now:      now,
			want:     "20240101_093000.ubx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, name := range tt.existing {
				if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			got, err := nextSegmentName(dir, tt.now)
			if err != nil {
				t.Fatalf("nextSegmentName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("nextSegmentName() = %q, want %q", got, tt.want)
			}
			for _, name := range tt.existing {
				if strings.HasPrefix(name, hourbucket.Of(tt.now).Key()) && got <= name {
					t.Errorf("%q does not sort after existing %q", got, name)
				}
			}
		})
	}
}

func TestListSegments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"20240101_090500.ubx",
		"20240101_090000.ubx",
		"20240101_100000.ubx",
		"20240101_09_notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "20240101_09dir.ubx"), 0o755); err != nil {
		t.Fatal(err)
	}

	b, _ := hourbucket.Parse("20240101_09")
	got, err := ListSegments(dir, b)
	if err != nil {
		t.Fatalf("ListSegments() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "20240101_090000.ubx"),
		filepath.Join(dir, "20240101_090500.ubx"),
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ListSegments() = %v, want %v", got, want)
	}
}
