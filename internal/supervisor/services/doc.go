// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

/*
Package services adapts gnss2tec components to suture.Service.

Each wrapper turns a blocking Run or ListenAndServe into Serve(ctx) and
follows the same rules:

  - cancellation returns ctx.Err(), which suture treats as a clean stop
  - String returns the name used in supervisor events

The wrappers differ in how failures are treated:

	Service            Component                Failure
	IngestService      *ingest.Logger           fatal: wraps suture.ErrTerminateSupervisorTree
	WorkerService      *scheduler.Worker        restarted with backoff
	HTTPServerService  *statusserver.Server     restarted with backoff

# Usage

	ingestSvc := services.NewIngestService(logger)
	tree.AddIngestService(ingestSvc)
	tree.AddConversionService(services.NewWorkerService(worker))
	tree.AddStatusService(services.NewHTTPServerService(status, 10*time.Second))

	if err := tree.Serve(ctx); errors.Is(err, suture.ErrTerminateSupervisorTree) {
	    return ingestSvc.Fatal()
	}
*/
package services
