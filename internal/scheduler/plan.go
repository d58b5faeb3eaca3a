// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package scheduler

import (
	"fmt"
	"time"

	"github.com/tomtom215/gnss2tec/internal/hourbucket"
)

// Plan returns the catch-up hours for now: maxDaysBack*24 buckets starting
// at the hour containing now-shiftHours and walking backwards.
func Plan(now time.Time, shiftHours, maxDaysBack int) ([]hourbucket.Bucket, error) {
	if maxDaysBack <= 0 {
		return nil, fmt.Errorf("max_days_back must be greater than zero, got %d", maxDaysBack)
	}
	if shiftHours < 0 {
		return nil, fmt.Errorf("shift_hours must not be negative, got %d", shiftHours)
	}

	total := maxDaysBack * 24
	plan := make([]hourbucket.Bucket, 0, total)
	b := hourbucket.Of(now.Add(-time.Duration(shiftHours) * time.Hour))
	for i := 0; i < total; i++ {
		plan = append(plan, b)
		b = b.Prev()
	}
	return plan, nil
}

// CatchUp enqueues every planned hour as a catch-up job and returns the
// number enqueued.
func CatchUp(q *Queue, plan []hourbucket.Bucket) (int, error) {
	for i, b := range plan {
		if err := q.Enqueue(Job{Bucket: b, Source: SourceCatchup}); err != nil {
			return i, fmt.Errorf("enqueue catch-up hour %s: %w", b.Key(), err)
		}
	}
	return len(plan), nil
}
