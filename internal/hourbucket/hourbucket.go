// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

// Package hourbucket models the UTC hour windows used as the unit of
// rotation, conversion and archiving.
package hourbucket

import (
	"fmt"
	"time"
)

// KeyLayout is the time layout of a canonical hour key (YYYYMMDD_HH).
const KeyLayout = "20060102_15"

// SegmentLayout is the time layout of a segment file name stem.
const SegmentLayout = "20060102_150405"

// SegmentExt is the extension of raw segment files.
const SegmentExt = ".ubx"

// Bucket is the UTC hour [Start, Start+1h).
type Bucket struct {
	start time.Time
}

// Of returns the bucket containing t.
func Of(t time.Time) Bucket {
	return Bucket{start: t.UTC().Truncate(time.Hour)}
}

// Parse parses a canonical YYYYMMDD_HH key.
func Parse(key string) (Bucket, error) {
	t, err := time.ParseInLocation(KeyLayout, key, time.UTC)
	if err != nil {
		return Bucket{}, fmt.Errorf("parse hour key %q: %w", key, err)
	}
	return Bucket{start: t}, nil
}

// Key returns the canonical YYYYMMDD_HH key.
func (b Bucket) Key() string {
	return b.start.Format(KeyLayout)
}

// String implements fmt.Stringer.
func (b Bucket) String() string {
	return b.Key()
}

// Start returns the first instant of the hour.
func (b Bucket) Start() time.Time {
	return b.start
}

// End returns the first instant after the hour.
func (b Bucket) End() time.Time {
	return b.start.Add(time.Hour)
}

// Prev returns the preceding hour.
func (b Bucket) Prev() Bucket {
	return Bucket{start: b.start.Add(-time.Hour)}
}

// Next returns the following hour.
func (b Bucket) Next() Bucket {
	return Bucket{start: b.start.Add(time.Hour)}
}

// IsZero reports whether b is the zero bucket.
func (b Bucket) IsZero() bool {
	return b.start.IsZero()
}

// Equal reports whether b and o are the same hour.
func (b Bucket) Equal(o Bucket) bool {
	return b.start.Equal(o.start)
}

// Contains reports whether t falls inside the hour.
func (b Bucket) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(b.start) && t.Before(b.End())
}

// Closed reports whether the hour has ended at now. Only closed hours are
// complete on disk.
func (b Bucket) Closed(now time.Time) bool {
	return !now.Before(b.End())
}

// Year returns the four-digit year directory name.
func (b Bucket) Year() string {
	return fmt.Sprintf("%04d", b.start.Year())
}

// DayOfYear returns the zero-padded day-of-year directory name.
func (b Bucket) DayOfYear() string {
	return fmt.Sprintf("%03d", b.start.YearDay())
}

// Label returns a human-readable label, e.g. "2024-01-01 09:00".
func (b Bucket) Label() string {
	return b.start.Format("2006-01-02 15:04")
}

// EpochToken returns the YYYYDDDHHMM start token used by long-form RINEX
// product names.
func (b Bucket) EpochToken() string {
	return fmt.Sprintf("%04d%03d%02d00", b.start.Year(), b.start.YearDay(), b.start.Hour())
}

// SegmentName returns the segment file name for a logger started at t.
func SegmentName(t time.Time) string {
	return t.UTC().Format(SegmentLayout) + SegmentExt
}
