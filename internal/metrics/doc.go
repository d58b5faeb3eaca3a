// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

/*
Package metrics provides Prometheus metrics for the ingestion and conversion
pipeline.

All collectors are registered with the default registry through promauto
and exposed by the status server at /metrics when it is enabled:

	curl http://127.0.0.1:9464/metrics

# Available Metrics

Ingestion:
  - gnss2tec_ingest_bytes_total: bytes written to segment files (counter)
  - gnss2tec_ingest_rotations_total: hour-boundary rotations (counter)
  - gnss2tec_ingest_throughput_bps: last statistics window (gauge)
  - gnss2tec_ingest_read_errors_total: hard byte-source failures (counter)
  - gnss2tec_segments_opened_total: segment files opened (counter)

Telemetry:
  - gnss2tec_telemetry_sentences_total: watched NMEA sentences (counter)
    Labels: type

Conversion:
  - gnss2tec_conversion_jobs_enqueued_total: jobs enqueued (counter)
    Labels: source (rotation, catchup)
  - gnss2tec_conversion_jobs_total: processed jobs (counter)
    Labels: result (converted, failed, skipped, lock_busy, unavailable, already_converted)
  - gnss2tec_conversion_duration_seconds: attempt duration (histogram)
  - gnss2tec_conversion_queue_depth: pending jobs (gauge)
  - gnss2tec_archive_products_total: archived products (counter)
    Labels: kind
  - gnss2tec_converter_breaker_state: availability breaker state (gauge)

Ledger:
  - gnss2tec_ledger_writes_total, gnss2tec_ledger_pruned_total (counters)

Status server:
  - gnss2tec_status_requests_total: requests (counter)
    Labels: route, code
  - gnss2tec_status_request_duration_seconds: latency (histogram)
    Labels: route
*/
package metrics
