// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/gnss2tec/internal/convert"
	"github.com/tomtom215/gnss2tec/internal/hourbucket"
	"github.com/tomtom215/gnss2tec/internal/ledger"
	"github.com/tomtom215/gnss2tec/internal/lockfile"
	"github.com/tomtom215/gnss2tec/internal/logging"
	"github.com/tomtom215/gnss2tec/internal/metrics"
)

// Defaults used when WorkerConfig fields are zero.
const (
	DefaultPollInterval  = 200 * time.Millisecond
	DefaultPruneInterval = time.Hour
)

// HourConverter converts single hours. Satisfied by *convert.Workflow.
type HourConverter interface {
	HasInputs(b hourbucket.Bucket) (bool, error)
	ConvertHour(ctx context.Context, b hourbucket.Bucket) (convert.Result, error)
}

// AvailabilityChecker verifies the external converter can run. Satisfied
// by *convert.Converter.
type AvailabilityChecker interface {
	Available(ctx context.Context) (string, error)
}

// WorkerConfig controls the conversion worker.
type WorkerConfig struct {
	// ConvertLockPath is locked around each hour's conversion.
	ConvertLockPath string
	PollInterval    time.Duration

	// Retention is how long ledger records are kept. Zero disables pruning.
	Retention     time.Duration
	PruneInterval time.Duration

	// Now replaces the wall clock used to reject hours that have not ended.
	Now func() time.Time
}

// Outcome is the result of processing one job.
type Outcome struct {
	Job    Job
	Result string // metrics.Result*
	Err    error
	Output convert.Result
}

// Converted reports whether the hour was converted and archived.
func (o Outcome) Converted() bool {
	return o.Result == metrics.ResultConverted
}

// WorkerStats is a snapshot of worker activity.
type WorkerStats struct {
	Current   string    `json:"current,omitempty"`
	Processed uint64    `json:"processed"`
	Converted uint64    `json:"converted"`
	Failed    uint64    `json:"failed"`
	Skipped   uint64    `json:"skipped"`
	LastError string    `json:"last_error,omitempty"`
	LastJobAt time.Time `json:"last_job_at,omitempty"`
}

// Worker processes conversion jobs one at a time. Conversion failures are
// logged and recorded, never returned.
type Worker struct {
	cfg       WorkerConfig
	queue     *Queue
	converter HourConverter
	checker   AvailabilityChecker
	ledger    ledger.Store
	log       zerolog.Logger

	lastPrune time.Time

	mu    sync.RWMutex
	stats WorkerStats
}

// NewWorker creates a worker draining queue. store may be nil, in which
// case nothing is recorded.
func NewWorker(cfg WorkerConfig, queue *Queue, converter HourConverter, checker AvailabilityChecker, store ledger.Store) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = DefaultPruneInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if store == nil {
		store = ledger.Nop{}
	}
	return &Worker{
		cfg:       cfg,
		queue:     queue,
		converter: converter,
		checker:   checker,
		ledger:    store,
		log:       logging.WithComponent(logging.ComponentWorker),
	}
}

// Queue returns the worker's queue.
func (w *Worker) Queue() *Queue {
	return w.queue
}

// Stats returns a copy of the worker statistics.
func (w *Worker) Stats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Run processes jobs until ctx is cancelled. Cancellation closes the queue
// at once; every job still waiting is processed before Run returns.
// Conversions run under a context that is not cancelled by shutdown.
func (w *Worker) Run(ctx context.Context) error {
	jobCtx := context.WithoutCancel(ctx)
	stop := context.AfterFunc(ctx, w.queue.Close)
	defer stop()

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.log.Info().Dur("poll_interval", w.cfg.PollInterval).Msg("conversion worker started")
	w.maybePrune(jobCtx)

	for {
		if ctx.Err() != nil {
			w.queue.Close()
			if pending := w.queue.Len(); pending > 0 {
				w.log.Info().Int("pending", pending).Msg("draining conversion queue before shutdown")
			}
			w.drain(jobCtx)
			w.log.Info().Msg("conversion worker stopped")
			return ctx.Err()
		}

		if job, ok := w.queue.Pop(); ok {
			w.Process(jobCtx, job)
			continue
		}

		select {
		case <-ctx.Done():
		case <-w.queue.Notify():
		case <-ticker.C:
			w.maybePrune(jobCtx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		job, ok := w.queue.Pop()
		if !ok {
			return
		}
		w.Process(ctx, job)
	}
}

// Process handles one job: it skips hours with no inputs or already
// converted, takes the convert lock, checks converter availability and
// converts.
func (w *Worker) Process(ctx context.Context, job Job) Outcome {
	hour := job.Bucket.Key()
	ctx = logging.ContextWithLogger(ctx, w.log)
	ctx = logging.ContextWithJob(ctx, hour, logging.NewJobID())
	log := logging.Ctx(ctx)

	if skip, out := w.precheck(ctx, job); skip {
		return out
	}

	lock, err := lockfile.Acquire(w.cfg.ConvertLockPath)
	if err != nil {
		log.Warn().Err(err).Str("source", job.Source).Msg("conversion lock busy; skipping hour")
		return w.finish(ctx, job, Outcome{Job: job, Result: metrics.ResultLockBusy, Err: err}, time.Time{})
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn().Err(err).Msg("failed to release conversion lock")
		}
	}()

	if w.checker != nil {
		if _, err := w.checker.Available(ctx); err != nil {
			log.Error().Err(err).Msg("converter unavailable; skipping hour")
			return w.finish(ctx, job, Outcome{Job: job, Result: metrics.ResultUnavailable, Err: err}, time.Time{})
		}
	}

	return w.convert(ctx, job)
}

// ConvertLocked converts job.Bucket assuming the caller already holds the
// convert lock and has checked converter availability. The ledger and
// input checks still apply.
func (w *Worker) ConvertLocked(ctx context.Context, job Job) Outcome {
	ctx = logging.ContextWithLogger(ctx, w.log)
	ctx = logging.ContextWithJob(ctx, job.Bucket.Key(), logging.NewJobID())
	if skip, out := w.precheck(ctx, job); skip {
		return out
	}
	return w.convert(ctx, job)
}

// precheck returns true when the job needs no conversion.
func (w *Worker) precheck(ctx context.Context, job Job) (bool, Outcome) {
	log := logging.Ctx(ctx)
	hour := job.Bucket.Key()

	// The active hour's segment is still being written.
	if !job.Bucket.Closed(w.cfg.Now()) {
		log.Warn().Str("source", job.Source).Msg("hour has not ended; not converting")
		metrics.RecordConversion(metrics.ResultHourOpen, 0)
		return true, Outcome{Job: job, Result: metrics.ResultHourOpen, Err: convert.ErrHourOpen}
	}

	has, err := w.converter.HasInputs(job.Bucket)
	if err != nil {
		log.Error().Err(err).Msg("failed to list hour inputs")
		return true, w.finish(ctx, job, Outcome{Job: job, Result: metrics.ResultFailed, Err: err}, time.Time{})
	}
	if !has {
		log.Debug().Str("source", job.Source).Msg("no input segments for hour")
		metrics.RecordConversion(metrics.ResultSkipped, 0)
		return true, Outcome{Job: job, Result: metrics.ResultSkipped}
	}

	done, err := w.ledger.IsConverted(hour)
	if err != nil {
		log.Warn().Err(err).Msg("ledger lookup failed; converting anyway")
	}
	if done {
		log.Debug().Msg("hour already converted")
		metrics.RecordConversion(metrics.ResultAlreadyDone, 0)
		return true, Outcome{Job: job, Result: metrics.ResultAlreadyDone}
	}
	return false, Outcome{}
}

func (w *Worker) convert(ctx context.Context, job Job) Outcome {
	log := logging.Ctx(ctx)
	w.setCurrent(job.Bucket.Key())
	defer w.setCurrent("")

	start := time.Now()
	res, err := w.converter.ConvertHour(ctx, job.Bucket)
	out := Outcome{Job: job, Output: res, Err: err}
	switch {
	case err != nil:
		out.Result = metrics.ResultFailed
		log.Error().Err(err).Str("source", job.Source).Msg("hour conversion failed; inputs kept")
	case res.Skipped:
		out.Result = metrics.ResultSkipped
	default:
		out.Result = metrics.ResultConverted
	}
	return w.finish(ctx, job, out, start)
}

// finish records the outcome in metrics, stats and the ledger.
func (w *Worker) finish(ctx context.Context, job Job, out Outcome, started time.Time) Outcome {
	var dur time.Duration
	if !started.IsZero() {
		dur = time.Since(started)
	}
	metrics.RecordConversion(out.Result, dur)

	w.mu.Lock()
	w.stats.Processed++
	w.stats.LastJobAt = time.Now().UTC()
	switch out.Result {
	case metrics.ResultConverted:
		w.stats.Converted++
	case metrics.ResultFailed:
		w.stats.Failed++
	default:
		w.stats.Skipped++
	}
	if out.Err != nil {
		w.stats.LastError = out.Err.Error()
	}
	w.mu.Unlock()

	rec := ledger.Record{
		Hour:       job.Bucket.Key(),
		Source:     job.Source,
		Status:     ledgerStatus(out.Result),
		Products:   out.Output.ProductPaths(),
		InputFiles: len(out.Output.Inputs),
		StartedAt:  started,
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	if _, err := w.ledger.Record(ctx, rec); err != nil && !errors.Is(err, ledger.ErrLedgerClosed) {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to record conversion in ledger")
	}
	return out
}

func ledgerStatus(result string) ledger.Status {
	switch result {
	case metrics.ResultConverted:
		return ledger.StatusConverted
	case metrics.ResultFailed:
		return ledger.StatusFailed
	default:
		return ledger.StatusSkipped
	}
}

func (w *Worker) setCurrent(hour string) {
	w.mu.Lock()
	w.stats.Current = hour
	w.mu.Unlock()
}

func (w *Worker) maybePrune(ctx context.Context) {
	if w.cfg.Retention <= 0 || time.Since(w.lastPrune) < w.cfg.PruneInterval {
		return
	}
	w.lastPrune = time.Now()
	n, err := w.ledger.Prune(ctx, time.Now().Add(-w.cfg.Retention))
	if err != nil {
		w.log.Warn().Err(err).Msg("ledger prune failed")
		return
	}
	if n > 0 {
		w.log.Info().Int("removed", n).Dur("retention", w.cfg.Retention).Msg("pruned conversion ledger")
	}
}
