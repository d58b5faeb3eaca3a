// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package ubx

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCommandGap is the pause between consecutive configuration commands
// so the receiver can process bursts.
const DefaultCommandGap = 50 * time.Millisecond

// flusher is implemented by writers that buffer (serial ports, bufio).
type flusher interface {
	Flush() error
}

// drainer is implemented by go.bug.st/serial ports.
type drainer interface {
	Drain() error
}

// Send writes each packet to w, waiting gap between commands. The wait
// honours ctx cancellation.
func Send(ctx context.Context, w io.Writer, packets []Packet, gap time.Duration) error {
	if gap <= 0 {
		gap = DefaultCommandGap
	}
	limiter := rate.NewLimiter(rate.Every(gap), 1)

	for i, p := range packets {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("send UBX command %d (%s): %w", i+1, p.Name, err)
		}
		if _, err := w.Write(p.Bytes()); err != nil {
			return fmt.Errorf("write UBX command %s (line %d): %w", p.Name, p.Line, err)
		}
		switch f := w.(type) {
		case flusher:
			if err := f.Flush(); err != nil {
				return fmt.Errorf("flush UBX command %s: %w", p.Name, err)
			}
		case drainer:
			if err := f.Drain(); err != nil {
				return fmt.Errorf("drain UBX command %s: %w", p.Name, err)
			}
		}
	}
	return nil
}
