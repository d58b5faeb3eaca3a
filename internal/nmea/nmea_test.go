// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package nmea

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

const (
	rmcSentence = "$GNRMC,123519.00,A,4807.038,N,01131.000,E,022.4,084.4,230394,,,A*6A"
	gsaSentence = "$GNGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39"
)

func TestCollectorPush(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single sentence with CRLF",
			input: rmcSentence + "\r\n",
			want:  []string{rmcSentence},
		},
		{
			name:  "binary noise around sentence",
			input: "\xb5\x62\x01\x07" + rmcSentence + "\r\n\x00\xff",
			want:  []string{rmcSentence},
		},
		{
			name:  "restart on dollar discards unterminated sentence",
			input: rmcSentence + "\r" + gsaSentence + "\r\n",
			want:  []string{gsaSentence},
		},
		{
			name:  "disallowed byte aborts capture",
			input: "$GNRMC,12\x01" + "3519\r\n",
			want:  nil,
		},
		{
			name:  "over-long sentence is discarded",
			input: "$GNGSV," + strings.Repeat("1", MaxSentenceLen) + "\r\n",
			want:  nil,
		},
		{
			name:  "newline outside capture is ignored",
			input: "\r\n\n" + gsaSentence + "\n",
			want:  []string{gsaSentence},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector()
			got := c.Push([]byte(tt.input), nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Push() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollectorSplitAcrossReads(t *testing.T) {
	c := NewCollector()
	full := rmcSentence + "\r\n"

	var got []string
	for i := 0; i < len(full); i += 7 {
		end := i + 7
		if end > len(full) {
			end = len(full)
		}
		got = c.Push([]byte(full[i:end]), got)
	}
	if len(got) != 1 || got[0] != rmcSentence {
		t.Errorf("Push() across chunks = %q", got)
	}
}

func TestMessageID(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{rmcSentence, "RMC", true},
		{"$GPGSV,3,1,11*7A", "GSV", true},
		{"$GN*00", "", false},
		{"GNRMC,1", "", false},
	}
	for _, tt := range tests {
		got, ok := MessageID(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("MessageID(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "RMC",
			in:   rmcSentence,
			want: "status=valid time=123519.00 date=230394 lat=48.117300 lon=11.516667 speed=22.40 kn/41.48 kmh course_deg=084.4",
		},
		{
			name: "RMC southern western",
			in:   "$GPRMC,000000,V,3345.000,S,07030.000,W,,,010124,,,N*00",
			want: "status=warning time=000000 date=010124 lat=-33.750000 lon=-70.500000 speed=- course_deg=-",
		},
		{
			name: "GSA",
			in:   gsaSentence,
			want: "mode=automatic fix=3D sats_used=5 pdop=2.5 hdop=1.3 vdop=2.1",
		},
		{
			name: "GSV",
			in:   "$GPGSV,3,1,11,03,03,111,00*74",
			want: "msg=1/3 sats_in_view=11 talker=GP",
		},
		{
			name: "GNS",
			in:   "$GNGNS,112257.00,3844.24011,N,00908.43828,W,AN,03,10.5,,,,*57",
			want: "time=112257.00 mode=AN sats_used=03 hdop=10.5 lat=38.737335 lon=-9.140638 alt_m=-",
		},
		{
			name: "GBS",
			in:   "$GPGBS,015509.00,-0.031,-0.186,0.219,19,0.000,-0.354,6.972*4D",
			want: "time=015509.00 err_lat_m=-0.031 err_lon_m=-0.186 err_alt_m=0.219 failed_sat=19 prob=0.000 bias=-0.354 stddev=6.972",
		},
		{
			name: "GST",
			in:   "$GPGST,172814.0,0.006,0.023,0.020,273.6,0.023,0.020,0.031*6A",
			want: "time=172814.0 rms_m=0.006 semi_major_m=0.023 semi_minor_m=0.020 orient_deg=273.6 sigma_lat_m=0.023 sigma_lon_m=0.020 sigma_alt_m=0.031",
		},
		{
			name: "GSA missing fields",
			in:   "$GNGSA,X,9*00",
			want: "mode=unknown fix=unknown sats_used=0 pdop=- hdop=- vdop=-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Summarize(tt.in)
			if !ok {
				t.Fatalf("Summarize(%q) not ok", tt.in)
			}
			if got != tt.want {
				t.Errorf("Summarize()\n got %q\nwant %q", got, tt.want)
			}
		})
	}

	if _, ok := Summarize("$GNVTG,,T,,M*00"); ok {
		t.Error("Summarize() ok for unwatched type")
	}
}

func TestMonitorEmission(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var lines []string
	m := NewMonitor(time.Second, FormatBoth, func(l string) { lines = append(lines, l) }, start)

	m.Ingest([]byte(rmcSentence + "\r\n" + gsaSentence + "\r\n" + "$GNVTG,,T,,M*00\r\n"))

	m.MaybeEmit(start.Add(500 * time.Millisecond))
	if len(lines) != 0 {
		t.Fatalf("emitted before interval: %q", lines)
	}

	m.MaybeEmit(start.Add(time.Second))
	want := []string{
		"[NMEA:GSA:RAW] " + gsaSentence,
		"[NMEA:GSA:PLAIN] mode=automatic fix=3D sats_used=5 pdop=2.5 hdop=1.3 vdop=2.1",
		"[NMEA:RMC:RAW] " + rmcSentence,
		"[NMEA:RMC:PLAIN] status=valid time=123519.00 date=230394 lat=48.117300 lon=11.516667 speed=22.40 kn/41.48 kmh course_deg=084.4",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("emitted lines:\n%q\nwant:\n%q", lines, want)
	}

	lines = nil
	m.MaybeEmit(start.Add(3 * time.Second))
	if len(lines) != 0 {
		t.Errorf("unchanged types re-emitted: %q", lines)
	}

	if s, ok := m.Latest("RMC"); !ok || s != rmcSentence {
		t.Errorf("Latest(RMC) = %q, %v", s, ok)
	}
}

func TestMonitorEmptyBody(t *testing.T) {
	start := time.Now()
	var lines []string
	m := NewMonitor(time.Millisecond, FormatPlain, func(l string) { lines = append(lines, l) }, start)

	// A watched header with no body still summarizes with placeholders.
	m.Ingest([]byte("$GPRMC\r\n"))
	m.MaybeEmit(start.Add(time.Second))

	if len(lines) != 1 || !strings.HasPrefix(lines[0], "[NMEA:RMC:PLAIN] status=unknown") {
		t.Errorf("lines = %q", lines)
	}
}

func TestMonitorInert(t *testing.T) {
	var emitted int
	m := NewMonitor(0, FormatBoth, func(string) { emitted++ }, time.Now())

	if m.Enabled() {
		t.Error("Enabled() = true for zero interval")
	}
	if m.collector != nil {
		t.Error("collector allocated for zero interval")
	}

	payload := []byte(strings.Repeat(rmcSentence+"\r\n", 100))
	for i := 0; i < 100; i++ {
		m.Ingest(payload)
		m.MaybeEmit(time.Now().Add(time.Duration(i) * time.Hour))
	}

	if emitted != 0 {
		t.Errorf("inert monitor emitted %d lines", emitted)
	}
	if m.collector != nil || m.pending != nil {
		t.Error("inert monitor allocated buffers")
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"raw", "PLAIN", " both "} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", s, err)
		}
	}
	if _, err := ParseFormat("json"); err == nil {
		t.Error("ParseFormat(json) error = nil")
	}
}
