// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

// Package statusserver provides the local HTTP status endpoint using the
// Chi router: Prometheus metrics, a liveness probe and a JSON snapshot of
// ingestion, the conversion queue and recent ledger records.
package statusserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/gnss2tec/internal/ingest"
	"github.com/tomtom215/gnss2tec/internal/ledger"
	"github.com/tomtom215/gnss2tec/internal/logging"
	"github.com/tomtom215/gnss2tec/internal/middleware"
	"github.com/tomtom215/gnss2tec/internal/scheduler"
)

// Defaults for Config fields left zero.
const (
	DefaultRecentLimit  = 24
	MaxRecentLimit      = 500
	DefaultReadTimeout  = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// IngestSource reports ingestion statistics. Satisfied by *ingest.Logger.
type IngestSource interface {
	Stats() ingest.Stats
}

// WorkerSource reports conversion worker state. Satisfied by
// *scheduler.Worker.
type WorkerSource interface {
	Stats() scheduler.WorkerStats
	Queue() *scheduler.Queue
}

// BreakerSource reports the converter circuit breaker state. Satisfied by
// *convert.Converter.
type BreakerSource interface {
	BreakerState() gobreaker.State
}

// Sources are the components the status endpoint reads. Nil fields are
// omitted from the response.
type Sources struct {
	Ingest  IngestSource
	Worker  WorkerSource
	Breaker BreakerSource
	Ledger  ledger.Store
}

// Config configures the HTTP server.
type Config struct {
	Listen       string
	RecentLimit  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Status is the /status response body.
type Status struct {
	Time       time.Time              `json:"time"`
	Uptime     float64                `json:"uptime_seconds"`
	Ingest     *ingest.Stats          `json:"ingest,omitempty"`
	Worker     *scheduler.WorkerStats `json:"worker,omitempty"`
	QueueDepth int                    `json:"queue_depth"`
	Breaker    string                 `json:"converter_breaker,omitempty"`
	Recent     []ledger.Record        `json:"recent,omitempty"`
	LedgerErr  string                 `json:"ledger_error,omitempty"`
}

// Server serves the status endpoints. It satisfies the HTTPServer
// interface used by the supervisor's HTTP service.
type Server struct {
	cfg     Config
	sources Sources
	started time.Time
	srv     *http.Server

	mu   sync.Mutex
	addr net.Addr
}

// New creates a status server.
func New(cfg Config, sources Sources) *Server {
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = DefaultRecentLimit
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	s := &Server{
		cfg:     cfg,
		sources: sources,
		started: time.Now(),
	}
	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// Router returns the Chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// ListenAndServe starts the server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) ListenAndServe() error {
	listen := s.cfg.Listen
	if listen == "" {
		listen = ":http"
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	logging.Info().Str("listen", ln.Addr().String()).Msg("status server listening")
	return s.srv.Serve(ln)
}

// Addr returns the bound address, or "" before the server is listening.
// With a ":0" listen address it carries the chosen port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		logging.Debug().Err(err).Msg("failed to write health response")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.RecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > MaxRecentLimit {
			logging.Ctx(r.Context()).Debug().Str("limit", v).Msg("rejected status limit")
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be an integer between 0 and " + strconv.Itoa(MaxRecentLimit),
			})
			return
		}
		limit = n
	}

	respondJSON(w, http.StatusOK, s.snapshot(limit))
}

func (s *Server) snapshot(limit int) Status {
	now := time.Now()
	st := Status{
		Time:   now.UTC(),
		Uptime: now.Sub(s.started).Seconds(),
	}
	if s.sources.Ingest != nil {
		in := s.sources.Ingest.Stats()
		st.Ingest = &in
	}
	if s.sources.Worker != nil {
		ws := s.sources.Worker.Stats()
		st.Worker = &ws
		st.QueueDepth = s.sources.Worker.Queue().Len()
	}
	if s.sources.Breaker != nil {
		st.Breaker = s.sources.Breaker.BreakerState().String()
	}
	if s.sources.Ledger != nil && limit > 0 {
		recent, err := s.sources.Ledger.Recent(limit)
		if err != nil {
			st.LedgerErr = err.Error()
		} else {
			st.Recent = recent
		}
	}
	return st
}

// respondJSON writes v as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal status response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("failed to write status response")
	}
}
