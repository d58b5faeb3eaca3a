// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/gnss2tec/internal/logging"
)

// errIngestStopped is reported when ingestion returns without an error
// while the tree is still running.
var errIngestStopped = errors.New("ingestion stopped unexpectedly")

// IngestRunner is the ingestion loop. Satisfied by *ingest.Logger.
type IngestRunner interface {
	Run(ctx context.Context) error
}

// IngestService runs the ingestion loop under suture.
//
// Ingestion failures are not restarted: a hard read or write error on the
// receiver is fatal, so Serve wraps it with suture.ErrTerminateSupervisorTree
// and the whole tree stops. The original error is kept for Fatal.
type IngestService struct {
	runner IngestRunner
	name   string

	mu    sync.Mutex
	fatal error
}

// NewIngestService wraps runner.
func NewIngestService(runner IngestRunner) *IngestService {
	return &IngestService{
		runner: runner,
		name:   "ingest",
	}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		if err != nil {
			logging.Warn().Err(err).Msg("ingestion returned an error during shutdown")
		}
		return ctx.Err()
	}
	if err == nil {
		err = errIngestStopped
	}

	s.mu.Lock()
	s.fatal = err
	s.mu.Unlock()

	logging.Error().Err(err).Msg("ingestion failed; terminating")
	return fmt.Errorf("%w: %w", suture.ErrTerminateSupervisorTree, err)
}

// Fatal returns the error that terminated ingestion, or nil.
func (s *IngestService) Fatal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// String implements fmt.Stringer for suture's event log.
func (s *IngestService) String() string {
	return s.name
}
