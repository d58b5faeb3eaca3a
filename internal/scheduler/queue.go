// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/gnss2tec/internal/hourbucket"
	"github.com/tomtom215/gnss2tec/internal/metrics"
)

// Job sources, used as the "source" metric label and in ledger records.
const (
	SourceRotation = "rotation"
	SourceCatchup  = "catchup"
	SourceManual   = "manual"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("conversion queue is closed")

// Job asks the worker to convert one hour.
type Job struct {
	Bucket     hourbucket.Bucket
	Source     string
	EnqueuedAt time.Time
}

// Queue is an unbounded FIFO of conversion jobs. Enqueue never blocks, so
// the ingestion loop can hand off closed hours without waiting on the
// worker.
type Queue struct {
	mu     sync.Mutex
	jobs   []Job
	closed bool
	notify chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Enqueue appends job. It fails only after Close.
func (q *Queue) Enqueue(job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.jobs = append(q.jobs, job)
	depth := len(q.jobs)
	q.mu.Unlock()

	metrics.RecordEnqueue(job.Source, depth)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// HourClosed enqueues a rotation job for b. It lets the queue serve as the
// ingestion loop's hour sink.
func (q *Queue) HourClosed(b hourbucket.Bucket) error {
	return q.Enqueue(Job{Bucket: b, Source: SourceRotation})
}

// Close stops accepting jobs. Jobs already queued stay available.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Closed reports whether Close was called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of waiting jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Notify is signalled after an enqueue. A single signal may cover several
// jobs.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

// Pop removes and returns the oldest job.
func (q *Queue) Pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	job := q.jobs[0]
	q.jobs[0] = Job{}
	q.jobs = q.jobs[1:]
	metrics.ConversionQueueDepth.Set(float64(len(q.jobs)))
	return job, true
}
