// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

// Package scheduler hands closed hours from ingestion to the conversion
// worker.
//
// Producers (the ingestion loop on rotation, the catch-up planner at
// startup) push Jobs onto an unbounded Queue and never block. A single
// Worker pops jobs in FIFO order and, per job, checks for inputs and the
// ledger, takes the cross-process convert lock, verifies the converter and
// runs the conversion workflow. On shutdown the worker closes the queue and
// drains it.
package scheduler
