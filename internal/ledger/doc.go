// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

/*
Package ledger records conversion attempts per UTC hour in BadgerDB.

The worker writes one Record per processed job and consults IsConverted
before converting, so an hour whose inputs were kept is not converted
twice. The status server reads Recent for its JSON view.

# Key Layout

	attempt:<YYYYMMDD_HH>:<start-unix-nanos, 20 digits>  -> Record (JSON)
	hour:<YYYYMMDD_HH>                                   -> latest Record

Attempt keys sort chronologically within an hour, so History is a plain
prefix scan. Prune removes attempts older than the retention window.

When the ledger is disabled the worker uses Nop.

# Sharing Between Processes

Badger locks its directory for as long as a database is open. The daemon and
a manual convert run use Shared, which opens the database for one operation
at a time and waits while the other process holds it.
*/
package ledger
