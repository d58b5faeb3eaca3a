// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversion job results used as the "result" label.
const (
	ResultConverted   = "converted"
	ResultFailed      = "failed"
	ResultSkipped     = "skipped"
	ResultLockBusy    = "lock_busy"
	ResultUnavailable = "unavailable"
	ResultAlreadyDone = "already_converted"
	ResultHourOpen    = "hour_open"
)

var (
	// Ingestion Metrics
	IngestBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gnss2tec_ingest_bytes_total",
			Help: "Total number of receiver bytes written to segment files",
		},
	)

	IngestRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gnss2tec_ingest_rotations_total",
			Help: "Total number of hour-boundary segment rotations",
		},
	)

	IngestThroughput = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gnss2tec_ingest_throughput_bps",
			Help: "Receiver throughput over the last statistics window in bits per second",
		},
	)

	IngestReadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gnss2tec_ingest_read_errors_total",
			Help: "Total number of hard read failures on the byte source",
		},
	)

	SegmentsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gnss2tec_segments_opened_total",
			Help: "Total number of segment files opened for writing",
		},
	)

	// Telemetry Metrics
	TelemetrySentences = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnss2tec_telemetry_sentences_total",
			Help: "Total number of watched NMEA sentences captured",
		},
		[]string{"type"}, // GSA, GSV, GNS, RMC, GBS, GST
	)

	// Conversion Metrics
	ConversionJobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnss2tec_conversion_jobs_enqueued_total",
			Help: "Total number of hour conversion jobs enqueued",
		},
		[]string{"source"}, // rotation, catchup
	)

	ConversionJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnss2tec_conversion_jobs_total",
			Help: "Total number of processed conversion jobs by result",
		},
		[]string{"result"},
	)

	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gnss2tec_conversion_duration_seconds",
			Help:    "Duration of one hour conversion attempt in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	ConversionQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gnss2tec_conversion_queue_depth",
			Help: "Number of conversion jobs waiting in the queue",
		},
	)

	ArchiveProducts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnss2tec_archive_products_total",
			Help: "Total number of products moved into the archive",
		},
		[]string{"kind"}, // observation, navigation
	)

	ConverterBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gnss2tec_converter_breaker_state",
			Help: "Converter availability circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Ledger Metrics
	LedgerWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gnss2tec_ledger_writes_total",
			Help: "Total number of conversion ledger records written",
		},
	)

	LedgerPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gnss2tec_ledger_pruned_total",
			Help: "Total number of conversion ledger records removed by retention",
		},
	)

	// Status Server Metrics
	StatusRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnss2tec_status_requests_total",
			Help: "Total number of status server requests",
		},
		[]string{"route", "code"},
	)

	StatusRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gnss2tec_status_request_duration_seconds",
			Help:    "Status server request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordIngest records bytes appended to the active segment.
func RecordIngest(n int) {
	IngestBytes.Add(float64(n))
}

// RecordConversion records the outcome of one conversion job. A zero
// duration (the job never reached the converter) is not observed.
func RecordConversion(result string, duration time.Duration) {
	ConversionJobs.WithLabelValues(result).Inc()
	if duration > 0 {
		ConversionDuration.Observe(duration.Seconds())
	}
}

// RecordEnqueue records a job handed to the conversion queue.
func RecordEnqueue(source string, depth int) {
	ConversionJobsEnqueued.WithLabelValues(source).Inc()
	ConversionQueueDepth.Set(float64(depth))
}

// RecordStatusRequest records one status server request.
func RecordStatusRequest(route, code string, duration time.Duration) {
	StatusRequests.WithLabelValues(route, code).Inc()
	StatusRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
