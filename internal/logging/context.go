// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	hourKey   contextKey = "hour"
	jobIDKey  contextKey = "job_id"
	loggerKey contextKey = "logger"
)

// NewJobID returns a short identifier for one conversion attempt.
func NewJobID() string {
	return uuid.New().String()[:8]
}

// ContextWithJob returns a context carrying the hour key and job ID of a
// conversion attempt.
func ContextWithJob(ctx context.Context, hour, jobID string) context.Context {
	ctx = context.WithValue(ctx, hourKey, hour)
	return context.WithValue(ctx, jobIDKey, jobID)
}

// HourFromContext returns the hour key stored in ctx, or "".
func HourFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(hourKey).(string); ok {
		return v
	}
	return ""
}

// JobIDFromContext returns the job ID stored in ctx, or "".
func JobIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(jobIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context, falling back to the
// global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with the hour and job_id fields of ctx added.
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("Workspace cleanup failed")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := LoggerFromContext(ctx).With()
	if hour := HourFromContext(ctx); hour != "" {
		logCtx = logCtx.Str("hour", hour)
	}
	if id := JobIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("job_id", id)
	}
	l := logCtx.Logger()
	return &l
}
