// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package hourbucket

import (
	"testing"
	"time"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"top of hour", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), "20240101_09"},
		{"last nanosecond", time.Date(2024, 1, 1, 9, 59, 59, 999999999, time.UTC), "20240101_09"},
		{"non-UTC input", time.Date(2024, 1, 1, 4, 30, 0, 0, time.FixedZone("EST", -5*3600)), "20240101_09"},
		{"year boundary", time.Date(2023, 12, 31, 23, 10, 0, 0, time.UTC), "20231231_23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Of(tt.in).Key(); got != tt.want {
				t.Errorf("Of(%v).Key() = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	b, err := Parse("20240101_09")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !b.Start().Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("Start() = %v", b.Start())
	}

	if _, err := Parse("2024-01-01T09"); err == nil {
		t.Error("Parse() accepted malformed key")
	}
}

func TestNavigation(t *testing.T) {
	b := Of(time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC))

	if got := b.Prev().Key(); got != "20231231_23" {
		t.Errorf("Prev() = %q, want 20231231_23", got)
	}
	if got := b.Next().Key(); got != "20240101_01" {
		t.Errorf("Next() = %q, want 20240101_01", got)
	}
	if !b.Contains(time.Date(2024, 1, 1, 0, 59, 0, 0, time.UTC)) {
		t.Error("Contains() = false for time inside hour")
	}
	if b.Contains(b.End()) {
		t.Error("Contains() = true for End()")
	}
}

func TestArchiveComponents(t *testing.T) {
	b := Of(time.Date(2024, 2, 5, 13, 0, 0, 0, time.UTC))

	if b.Year() != "2024" {
		t.Errorf("Year() = %q", b.Year())
	}
	if b.DayOfYear() != "036" {
		t.Errorf("DayOfYear() = %q, want 036", b.DayOfYear())
	}
	if b.EpochToken() != "20240361300" {
		t.Errorf("EpochToken() = %q, want 20240361300", b.EpochToken())
	}
	if b.Label() != "2024-02-05 13:00" {
		t.Errorf("Label() = %q", b.Label())
	}
}

func TestSegmentName(t *testing.T) {
	got := SegmentName(time.Date(2024, 1, 1, 9, 5, 7, 0, time.UTC))
	if got != "20240101_090507.ubx" {
		t.Errorf("SegmentName() = %q", got)
	}
}

func TestClosed(t *testing.T) {
	b := Of(time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC))
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"inside the hour", time.Date(2024, 1, 1, 9, 59, 59, 0, time.UTC), false},
		{"before the hour", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), false},
		{"at the boundary", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"later", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Closed(tt.now); got != tt.want {
				t.Errorf("Closed(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}
