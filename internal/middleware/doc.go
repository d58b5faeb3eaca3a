// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

/*
Package middleware provides the HTTP middleware used by the status server.

  - RequestID: UUID-based request IDs, echoed in X-Request-ID and attached
    to the request's context logger
  - PrometheusMetrics: request count and latency per chi route pattern

Both are standard func(http.Handler) http.Handler middleware:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

Handlers log through the context logger so every line carries request_id:

	logging.Ctx(r.Context()).Warn().Msg("invalid limit")
*/
package middleware
