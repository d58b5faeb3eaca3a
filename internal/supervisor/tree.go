// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for a service to stop.
	// Default: 10s
	ShutdownTimeout time.Duration

	// ConversionTimeout is the shutdown timeout of the conversion layer,
	// which drains queued hours before stopping.
	// Default: ShutdownTimeout
	ConversionTimeout time.Duration
}

// DefaultTreeConfig returns suture's built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold:  5.0,
		FailureDecay:      30.0,
		FailureBackoff:    15 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		ConversionTimeout: 10 * time.Second,
	}
}

// SupervisorTree is the gnss2tec supervisor hierarchy:
//
//	gnss2tec-logger
//	├── ingest-layer      serial ingestion
//	├── conversion-layer  conversion worker
//	└── status-layer      HTTP status server
//
// Layers restart independently; a status server crash never interrupts
// ingestion. Ingestion failures terminate the whole tree.
type SupervisorTree struct {
	root       *suture.Supervisor
	ingest     *suture.Supervisor
	conversion *suture.Supervisor
	status     *suture.Supervisor
	logger     *slog.Logger
	config     TreeConfig
}

// NewSupervisorTree creates a new supervisor tree with the given configuration.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if config.ConversionTimeout == 0 {
		config.ConversionTimeout = config.ShutdownTimeout
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ConversionTimeout + config.ShutdownTimeout,
	}

	// Children inherit EventHook when added to root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	conversionSpec := childSpec
	conversionSpec.Timeout = config.ConversionTimeout

	root := suture.New("gnss2tec-logger", rootSpec)
	ingest := suture.New("ingest-layer", childSpec)
	conversion := suture.New("conversion-layer", conversionSpec)
	status := suture.New("status-layer", childSpec)

	root.Add(ingest)
	root.Add(conversion)
	root.Add(status)

	return &SupervisorTree{
		root:       root,
		ingest:     ingest,
		conversion: conversion,
		status:     status,
		logger:     logger,
		config:     config,
	}, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddIngestService adds the serial ingestion service.
func (t *SupervisorTree) AddIngestService(svc suture.Service) suture.ServiceToken {
	return t.ingest.Add(svc)
}

// AddConversionService adds a service to the conversion layer.
func (t *SupervisorTree) AddConversionService(svc suture.Service) suture.ServiceToken {
	return t.conversion.Add(svc)
}

// AddStatusService adds a service to the status layer.
func (t *SupervisorTree) AddStatusService(svc suture.Service) suture.ServiceToken {
	return t.status.Add(svc)
}

// Serve runs the tree until ctx is cancelled or a service terminates it.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The returned channel
// receives Serve's result.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that did not stop within their
// layer's timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
