// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

/*
Package supervisor provides process supervision for gnss2tec-logger using suture v4.

# Overview

The run command places its long-running components in a three-layer tree:

	RootSupervisor ("gnss2tec-logger")
	├── IngestSupervisor ("ingest-layer")
	│   └── IngestService
	├── ConversionSupervisor ("conversion-layer")
	│   └── WorkerService
	└── StatusSupervisor ("status-layer")
	    └── HTTPServerService (if status.enabled)

This hierarchy ensures that:
  - a status server failure is restarted without touching ingestion
  - a worker failure is restarted without dropping serial bytes
  - a fatal ingestion error stops everything

# Shutdown

Cancelling the context passed to Serve stops every layer. Each layer waits
ShutdownTimeout for its services, except the conversion layer, which waits
ConversionTimeout (worker.drain_timeout) so the worker can finish the hours
still queued.

# Fatal Errors

IngestService returns its error wrapped with suture.ErrTerminateSupervisorTree.
suture propagates that error through every parent, so Serve returns it and
the caller can exit non-zero:

	err := tree.Serve(ctx)
	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
	    logging.Fatal().Err(ingestSvc.Fatal()).Msg("ingestion failed")
	}

# Logging

Supervisor events (start, failure, backoff, stop timeout) are sent to a
*slog.Logger through sutureslog. logging.NewSlogLogger bridges that logger
to zerolog.

# Debugging Shutdown Issues

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
	}
*/
package supervisor
