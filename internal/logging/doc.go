// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

// Package logging provides centralized zerolog-based structured logging for gnss2tec.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger configured once from main via Init
//   - JSON output for log shippers, console output for journald and terminals
//   - Context loggers that carry the hour key and job ID of a conversion
//   - An slog adapter so suture supervisor events land in the same stream
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "console",
//	})
//
//	logging.Info().Str("port", "/dev/ttyACM0").Msg("Serial port opened")
//	logging.Error().Err(err).Str("hour", key).Msg("Conversion failed")
//
// Conversion code attaches the job to the context once and logs through Ctx:
//
//	ctx = logging.ContextWithJob(ctx, "20240101_09", jobID)
//	logging.Ctx(ctx).Info().Msg("Conversion started")
//
// # Configuration
//
// The logging section of the configuration file, overridable by environment:
//   - GNSS2TEC_LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - GNSS2TEC_LOG_FORMAT: json, console (default: console)
//   - GNSS2TEC_LOG_CALLER: include caller file:line (default: false)
//
// Always terminate event chains with Msg or Send; an unterminated chain is
// never written.
package logging
