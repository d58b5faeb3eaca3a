// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package services

import (
	"context"
	"errors"
	"fmt"
)

var errWorkerStopped = errors.New("conversion worker exited without error")

// WorkerRunner is the conversion worker loop. Satisfied by
// *scheduler.Worker.
type WorkerRunner interface {
	Run(ctx context.Context) error
}

// WorkerService runs the conversion worker under suture. Cancellation
// drains the queue before Serve returns, so the conversion layer's
// shutdown timeout must cover the longest expected drain.
type WorkerService struct {
	runner WorkerRunner
	name   string
}

// NewWorkerService wraps runner.
func NewWorkerService(runner WorkerRunner) *WorkerService {
	return &WorkerService{
		runner: runner,
		name:   "conversion-worker",
	}
}

// Serve implements suture.Service. Errors returned while the context is
// live are restarted by suture.
func (s *WorkerService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("conversion worker failed: %w", err)
	}
	return errWorkerStopped
}

// String implements fmt.Stringer for suture's event log.
func (s *WorkerService) String() string {
	return s.name
}
