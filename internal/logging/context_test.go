// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewJobID(t *testing.T) {
	a, b := NewJobID(), NewJobID()
	if len(a) != 8 {
		t.Errorf("NewJobID() length = %d, want 8", len(a))
	}
	if a == b {
		t.Errorf("NewJobID() returned duplicate %q", a)
	}
}

func TestContextWithJob(t *testing.T) {
	ctx := ContextWithJob(context.Background(), "20240101_09", "abcd1234")

	if got := HourFromContext(ctx); got != "20240101_09" {
		t.Errorf("HourFromContext() = %q", got)
	}
	if got := JobIDFromContext(ctx); got != "abcd1234" {
		t.Errorf("JobIDFromContext() = %q", got)
	}
	if HourFromContext(context.Background()) != "" {
		t.Error("HourFromContext() on empty context should be empty")
	}
}

func TestCtx(t *testing.T) {
	t.Run("adds job fields", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
		ctx = ContextWithJob(ctx, "20240101_09", "abcd1234")

		Ctx(ctx).Info().Msg("conversion started")

		out := buf.String()
		for _, want := range []string{`"hour":"20240101_09"`, `"job_id":"abcd1234"`, "conversion started"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %s: %s", want, out)
			}
		}
	})

	t.Run("falls back to global logger", func(t *testing.T) {
		var buf bytes.Buffer
		SetLogger(NewTestLogger(&buf))
		defer Init(DefaultConfig())

		Ctx(context.Background()).Info().Msg("plain")

		out := buf.String()
		if !strings.Contains(out, "plain") {
			t.Errorf("expected message from global logger, got: %s", out)
		}
		if strings.Contains(out, `"hour"`) {
			t.Errorf("unexpected hour field: %s", out)
		}
	})
}
