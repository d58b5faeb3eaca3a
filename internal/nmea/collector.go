// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

// Package nmea extracts NMEA status sentences interleaved in the receiver's
// UBX stream and periodically reports the latest fix, geometry and error
// estimates for live health monitoring.
package nmea

import (
	"strings"
	"unicode/utf8"
)

// MaxSentenceLen bounds a captured sentence; longer input is discarded.
const MaxSentenceLen = 160

type collectorState uint8

const (
	stateIdle collectorState = iota
	stateCapturing
	stateDiscarded
)

// Collector extracts complete NMEA sentences from an arbitrary byte stream
// that interleaves binary UBX frames with ASCII sentences.
type Collector struct {
	state collectorState
	buf   []byte
}

// NewCollector returns an idle collector.
func NewCollector() *Collector {
	return &Collector{buf: make([]byte, 0, MaxSentenceLen)}
}

// Push scans p and appends every completed sentence to out.
func (c *Collector) Push(p []byte, out []string) []string {
	for _, b := range p {
		if b == '$' {
			// '$' always (re)starts capture, recovering from a garbled or
			// unterminated previous sentence.
			c.state = stateCapturing
			c.buf = append(c.buf[:0], b)
			continue
		}
		if c.state != stateCapturing {
			continue
		}

		switch {
		case b == '\n':
			if utf8.Valid(c.buf) {
				s := strings.TrimRight(string(c.buf), "\r")
				if strings.HasPrefix(s, "$") {
					out = append(out, s)
				}
			}
			c.reset(stateIdle)
		case !allowed(b), len(c.buf) >= MaxSentenceLen:
			c.reset(stateDiscarded)
		default:
			c.buf = append(c.buf, b)
		}
	}
	return out
}

func (c *Collector) reset(s collectorState) {
	c.state = s
	c.buf = c.buf[:0]
}

func allowed(b byte) bool {
	return b == '\r' || (b >= 0x20 && b <= 0x7E)
}

// MessageID returns the 3-character type suffix of a sentence, e.g. "RMC"
// for "$GNRMC,...". ok is false when the sentence has no usable header.
func MessageID(sentence string) (string, bool) {
	core, ok := strings.CutPrefix(sentence, "$")
	if !ok {
		return "", false
	}
	core, _, _ = strings.Cut(core, "*")
	head, _, _ := strings.Cut(core, ",")
	if len(head) < 3 {
		return "", false
	}
	return head[len(head)-3:], true
}
