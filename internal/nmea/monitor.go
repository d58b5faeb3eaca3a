// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package nmea

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/gnss2tec/internal/metrics"
)

// WatchedTypes lists the sentence types retained by the monitor, in
// emission priority order.
var WatchedTypes = [...]string{"GSA", "GSV", "GNS", "RMC", "GBS", "GST"}

// Format selects how snapshots are reported.
type Format string

const (
	FormatRaw   Format = "raw"
	FormatPlain Format = "plain"
	FormatBoth  Format = "both"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatRaw, FormatPlain, FormatBoth:
		return f, nil
	default:
		return "", fmt.Errorf("unknown telemetry format %q (want raw, plain or both)", s)
	}
}

// Sink receives formatted report lines.
type Sink func(line string)

type snapshot struct {
	sentence string
	dirty    bool
}

// Monitor keeps the latest sentence per watched type and reports changed
// types on a fixed interval. A Monitor with a zero interval is inert.
//
// Monitor is not safe for concurrent use; the ingestion loop owns it.
type Monitor struct {
	interval time.Duration
	format   Format
	sink     Sink

	collector *Collector
	latest    [len(WatchedTypes)]snapshot
	pending   []string
	lastEmit  time.Time
}

// NewMonitor creates a monitor. With interval <= 0 no collector is
// allocated and Ingest/MaybeEmit do nothing.
func NewMonitor(interval time.Duration, format Format, sink Sink, now time.Time) *Monitor {
	m := &Monitor{interval: interval, format: format, sink: sink}
	if interval <= 0 {
		m.interval = 0
		return m
	}
	if m.format == "" {
		m.format = FormatPlain
	}
	if m.sink == nil {
		m.sink = func(string) {}
	}
	m.collector = NewCollector()
	m.lastEmit = now
	return m
}

// Enabled reports whether the monitor does any work.
func (m *Monitor) Enabled() bool {
	return m != nil && m.interval > 0
}

// Ingest scans raw device bytes for watched sentences.
func (m *Monitor) Ingest(p []byte) {
	if !m.Enabled() {
		return
	}
	m.pending = m.collector.Push(p, m.pending[:0])
	for _, s := range m.pending {
		id, ok := MessageID(s)
		if !ok {
			continue
		}
		idx := watchIndex(id)
		if idx < 0 {
			continue
		}
		m.latest[idx] = snapshot{sentence: s, dirty: true}
		metrics.TelemetrySentences.WithLabelValues(id).Inc()
	}
}

// MaybeEmit reports every type updated since the last report once the
// interval has elapsed.
func (m *Monitor) MaybeEmit(now time.Time) {
	if !m.Enabled() || now.Sub(m.lastEmit) < m.interval {
		return
	}
	for i, id := range WatchedTypes {
		snap := &m.latest[i]
		if !snap.dirty {
			continue
		}
		m.emit(id, snap.sentence)
		snap.dirty = false
	}
	m.lastEmit = now
}

// Latest returns the most recent sentence seen for a watched type.
func (m *Monitor) Latest(id string) (string, bool) {
	if !m.Enabled() {
		return "", false
	}
	idx := watchIndex(id)
	if idx < 0 || m.latest[idx].sentence == "" {
		return "", false
	}
	return m.latest[idx].sentence, true
}

func (m *Monitor) emit(id, sentence string) {
	if m.format == FormatRaw || m.format == FormatBoth {
		m.sink(fmt.Sprintf("[NMEA:%s:RAW] %s", id, sentence))
	}
	if m.format == FormatPlain || m.format == FormatBoth {
		plain, ok := Summarize(sentence)
		if !ok {
			plain = "unable to parse sentence"
		}
		m.sink(fmt.Sprintf("[NMEA:%s:PLAIN] %s", id, plain))
	}
}

func watchIndex(id string) int {
	for i, w := range WatchedTypes {
		if w == id {
			return i
		}
	}
	return -1
}
