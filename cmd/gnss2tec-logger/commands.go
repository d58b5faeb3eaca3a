// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/gnss2tec/internal/config"
	"github.com/tomtom215/gnss2tec/internal/convert"
	"github.com/tomtom215/gnss2tec/internal/hourbucket"
	"github.com/tomtom215/gnss2tec/internal/ingest"
	"github.com/tomtom215/gnss2tec/internal/ledger"
	"github.com/tomtom215/gnss2tec/internal/lockfile"
	"github.com/tomtom215/gnss2tec/internal/logging"
	"github.com/tomtom215/gnss2tec/internal/metrics"
	"github.com/tomtom215/gnss2tec/internal/nmea"
	"github.com/tomtom215/gnss2tec/internal/scheduler"
	"github.com/tomtom215/gnss2tec/internal/serialport"
	"github.com/tomtom215/gnss2tec/internal/statusserver"
	"github.com/tomtom215/gnss2tec/internal/supervisor"
	"github.com/tomtom215/gnss2tec/internal/supervisor/services"
	"github.com/tomtom215/gnss2tec/internal/ubx"
)

// runLog records segments without converting them.
func runLog(ctx context.Context, cfg *config.Config) error {
	lock, err := acquireLock(cfg.Lock.LoggerFile)
	if err != nil {
		return err
	}
	defer releaseLock(lock)

	port, monitor, err := openReceiver(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePort(port)

	sink := ingest.HourSinkFunc(func(b hourbucket.Bucket) error {
		logging.Debug().Str("hour", b.Key()).Msg("hour closed; conversion disabled in log mode")
		return nil
	})
	logger, err := ingest.New(ingestConfig(cfg), port, monitor, sink)
	if err != nil {
		return err
	}
	if err := logger.Run(ctx); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	logging.Info().Msg("logger stopped")
	return nil
}

// runConvert converts the recent hours once, holding the convert lock for
// the whole pass.
func runConvert(ctx context.Context, cfg *config.Config) error {
	for _, dir := range []string{cfg.Storage.DataDir, cfg.Storage.ArchiveDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	lock, err := acquireLock(cfg.Lock.ConvertFile)
	if err != nil {
		return err
	}
	defer releaseLock(lock)

	converter, workflow := newWorkflow(cfg)
	version, err := converter.Available(ctx)
	if err != nil {
		return err
	}
	logging.Info().Str("version", version).Msg("converter available")

	store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer closeLedger(store)
	}

	plan, err := scheduler.Plan(time.Now().UTC(), cfg.Catchup.ShiftHours, cfg.Catchup.MaxDaysBack)
	if err != nil {
		return err
	}

	worker := scheduler.NewWorker(workerConfig(cfg), scheduler.NewQueue(), workflow, converter, ledgerStore(store))
	processed := 0
	for _, b := range plan {
		if ctx.Err() != nil {
			logging.Warn().Int("processed", processed).Msg("conversion interrupted")
			break
		}
		out := worker.ConvertLocked(ctx, scheduler.Job{Bucket: b, Source: scheduler.SourceManual, EnqueuedAt: time.Now()})
		switch out.Result {
		case metrics.ResultConverted:
			processed++
		case metrics.ResultFailed:
			processed++
			logging.Error().Err(out.Err).Str("hour", b.Label()).Msg("hour conversion failed; continuing")
		}
	}

	fmt.Fprintf(os.Stderr, "conversion complete; processed %d hour(s)\n", processed)
	return nil
}

// runAll logs and converts under the supervisor tree.
func runAll(ctx context.Context, cfg *config.Config) error {
	lock, err := acquireLock(cfg.Lock.LoggerFile)
	if err != nil {
		return err
	}
	defer releaseLock(lock)

	port, monitor, err := openReceiver(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePort(port)

	store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer closeLedger(store)
	}

	converter, workflow := newWorkflow(cfg)
	queue := scheduler.NewQueue()
	worker := scheduler.NewWorker(workerConfig(cfg), queue, workflow, converter, ledgerStore(store))

	logger, err := ingest.New(ingestConfig(cfg), port, monitor, queue)
	if err != nil {
		return err
	}

	if cfg.Catchup.Enabled {
		plan, err := scheduler.Plan(time.Now().UTC(), cfg.Catchup.ShiftHours, cfg.Catchup.MaxDaysBack)
		if err != nil {
			return err
		}
		n, err := scheduler.CatchUp(queue, plan)
		if err != nil {
			return err
		}
		logging.Info().Int("hours", n).Msg("startup catch-up enqueued")
	} else {
		logging.Info().Msg("startup catch-up disabled")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold:  cfg.Supervisor.FailureThreshold,
		FailureDecay:      cfg.Supervisor.FailureDecay,
		FailureBackoff:    cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:   cfg.Supervisor.ShutdownTimeout,
		ConversionTimeout: cfg.Worker.DrainTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	ingestSvc := services.NewIngestService(logger)
	tree.AddIngestService(ingestSvc)
	tree.AddConversionService(services.NewWorkerService(worker))

	if cfg.Status.Enabled {
		status := statusserver.New(statusserver.Config{Listen: cfg.Status.Listen}, statusserver.Sources{
			Ingest:  logger,
			Worker:  worker,
			Breaker: converter,
			Ledger:  ledgerStore(store),
		})
		tree.AddStatusService(services.NewHTTPServerService(status, cfg.Supervisor.ShutdownTimeout))
		logging.Info().Str("listen", cfg.Status.Listen).Msg("status server enabled")
	}

	errCh := tree.ServeBackground(ctx)
	serveErr := <-errCh

	if report, err := tree.UnstoppedServiceReport(); err == nil {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop within its timeout")
		}
	}

	stats := logger.Stats()
	logging.Info().
		Str("total", humanize.Bytes(stats.TotalBytes)).
		Uint64("rotations", stats.Rotations).
		Uint64("converted", worker.Stats().Converted).
		Int("pending", queue.Len()).
		Msg("shutdown complete")

	switch {
	case errors.Is(serveErr, suture.ErrTerminateSupervisorTree):
		if fatal := ingestSvc.Fatal(); fatal != nil {
			return fmt.Errorf("ingestion failed: %w", fatal)
		}
		return serveErr
	case serveErr != nil && !errors.Is(serveErr, context.Canceled):
		return serveErr
	}
	return nil
}

// openReceiver loads the command file, opens the serial device and sends
// the commands. The returned monitor is inert when telemetry is disabled.
func openReceiver(ctx context.Context, cfg *config.Config) (*serialport.Port, *nmea.Monitor, error) {
	packets, err := ubx.LoadCommands(cfg.UBX.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	logging.Info().Str("file", cfg.UBX.ConfigFile).Int("commands", len(packets)).Msg("loaded receiver commands")

	format, err := nmea.ParseFormat(cfg.Telemetry.Format)
	if err != nil {
		return nil, nil, err
	}

	port, err := serialport.Open(serialport.Config{
		Port:    cfg.Serial.Port,
		Baud:    cfg.Serial.Baud,
		Timeout: cfg.Serial.Timeout,
	})
	if err != nil {
		if ports, listErr := serialport.Ports(); listErr == nil {
			logging.Warn().Str("available", strings.Join(ports, ", ")).Msg("serial port open failed")
		}
		return nil, nil, err
	}

	if cfg.UBX.SendOnStart {
		if err := ubx.Send(ctx, port, packets, cfg.UBX.CommandGap); err != nil {
			closePort(port)
			return nil, nil, fmt.Errorf("send receiver commands: %w", err)
		}
		if err := port.Drain(); err != nil {
			logging.Warn().Err(err).Msg("failed to drain serial output")
		}
		logging.Info().Int("commands", len(packets)).Msg("receiver configured")
	}

	nmeaLog := logging.WithComponent(logging.ComponentNMEA)
	monitor := nmea.NewMonitor(cfg.Telemetry.Interval, format, func(line string) {
		nmeaLog.Info().Msg(line)
	}, time.Now())
	return port, monitor, nil
}

func newWorkflow(cfg *config.Config) (*convert.Converter, *convert.Workflow) {
	converter := convert.NewConverter(convert.ConverterConfig{
		Path:            cfg.Convert.UBX2RinexPath,
		Station:         cfg.Convert.Station,
		Country:         cfg.Convert.Country,
		ReceiverType:    cfg.Convert.ReceiverType,
		AntennaType:     cfg.Convert.AntennaType,
		Observer:        cfg.Convert.Observer,
		SkipNav:         cfg.Convert.SkipNav,
		BreakerFailures: cfg.Convert.BreakerFailures,
		BreakerCooldown: cfg.Convert.BreakerCooldown,
	})
	workflow := convert.NewWorkflow(convert.Config{
		DataDir:    cfg.Storage.DataDir,
		ArchiveDir: cfg.Storage.ArchiveDir,
		KeepInputs: cfg.Convert.KeepUBX,
	}, converter)
	return converter, workflow
}

// openLedger returns nil when the ledger is disabled.
// The logger and a manual convert may run side by side, so the database is
// opened per operation rather than held for the life of the process.
func openLedger(cfg *config.Config) (*ledger.Shared, error) {
	if !cfg.Ledger.Enabled {
		return nil, nil
	}
	store, err := ledger.OpenShared(ledger.Config{
		Path:        cfg.Ledger.Path,
		Retention:   cfg.Ledger.Retention,
		BusyTimeout: cfg.Ledger.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open conversion ledger: %w", err)
	}
	return store, nil
}

// ledgerStore keeps a disabled ledger a nil interface.
func ledgerStore(store *ledger.Shared) ledger.Store {
	if store == nil {
		return nil
	}
	return store
}

func ingestConfig(cfg *config.Config) ingest.Config {
	return ingest.Config{
		DataDir:        cfg.Storage.DataDir,
		ReadBufferSize: cfg.Serial.ReadBufferSize,
		FlushInterval:  cfg.Ingest.FlushInterval,
		StatsInterval:  cfg.Ingest.StatsInterval,
	}
}

func workerConfig(cfg *config.Config) scheduler.WorkerConfig {
	return scheduler.WorkerConfig{
		ConvertLockPath: cfg.Lock.ConvertFile,
		PollInterval:    cfg.Worker.PollInterval,
		Retention:       cfg.Ledger.Retention,
	}
}

func acquireLock(path string) (*lockfile.Lock, error) {
	lock, err := lockfile.Acquire(path)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", path, err)
	}
	return lock, nil
}

func releaseLock(lock *lockfile.Lock) {
	if err := lock.Release(); err != nil {
		logging.Warn().Err(err).Str("path", lock.Path()).Msg("failed to release lock")
	}
}

func closePort(port *serialport.Port) {
	if err := port.Close(); err != nil {
		logging.Warn().Err(err).Str("port", port.Name()).Msg("failed to close serial port")
	}
}

func closeLedger(store *ledger.Shared) {
	if err := store.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close conversion ledger")
	}
}
