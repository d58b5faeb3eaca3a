// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package config

import "time"

// Config holds all logger configuration loaded from defaults, an optional
// YAML file and GNSS2TEC_* environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config File: optional YAML file
//  3. Environment Variables: mapped GNSS2TEC_* variables
//
// Config is immutable after loading and safe for concurrent reads.
type Config struct {
	Serial     SerialConfig     `koanf:"serial"`
	UBX        UBXConfig        `koanf:"ubx"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Storage    StorageConfig    `koanf:"storage"`
	Lock       LockConfig       `koanf:"lock"`
	Convert    ConvertConfig    `koanf:"convert"`
	Catchup    CatchupConfig    `koanf:"catchup"`
	Worker     WorkerConfig     `koanf:"worker"`
	Ledger     LedgerConfig     `koanf:"ledger"`
	Status     StatusConfig     `koanf:"status"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// SerialConfig configures the receiver's serial device.
type SerialConfig struct {
	// Port is the device path, e.g. /dev/ttyACM0.
	Port string `koanf:"port" validate:"required"`

	// Baud is the line speed.
	// Default: 115200
	Baud int `koanf:"baud" validate:"gt=0"`

	// Timeout bounds each read so the loop can check for shutdown.
	// Default: 250ms
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// ReadBufferSize is the size of each read from the device.
	// Default: 8192, minimum 1024
	ReadBufferSize int `koanf:"read_buffer_size"`
}

// UBXConfig configures the receiver command file.
type UBXConfig struct {
	// ConfigFile holds !UBX directives sent to the receiver at startup.
	ConfigFile string `koanf:"config_file" validate:"required"`

	// CommandGap is the pause between consecutive commands.
	// Default: 50ms
	CommandGap time.Duration `koanf:"command_gap" validate:"gte=0"`

	// SendOnStart sends the command file after opening the port.
	// Default: true
	SendOnStart bool `koanf:"send_on_start"`
}

// TelemetryConfig configures the NMEA telemetry monitor. An interval of
// zero disables it.
type TelemetryConfig struct {
	// Default: 30s
	Interval time.Duration `koanf:"interval" validate:"gte=0"`

	// Format is raw, plain or both.
	// Default: raw
	Format string `koanf:"format" validate:"oneof=raw plain both"`
}

// IngestConfig tunes the ingestion loop.
type IngestConfig struct {
	// FlushInterval is how often the active segment is flushed to disk.
	// Default: 5s
	FlushInterval time.Duration `koanf:"flush_interval" validate:"gt=0"`

	// StatsInterval is how often throughput is logged. 0 disables it.
	// Default: 5s
	StatsInterval time.Duration `koanf:"stats_interval" validate:"gte=0"`
}

// StorageConfig holds the segment and archive directories.
type StorageConfig struct {
	DataDir    string `koanf:"data_dir" validate:"required"`
	ArchiveDir string `koanf:"archive_dir" validate:"required"`
}

// LockConfig holds the advisory lock file paths.
type LockConfig struct {
	LoggerFile  string `koanf:"logger_file" validate:"required"`
	ConvertFile string `koanf:"convert_file" validate:"required"`
}

// ConvertConfig configures ubx2rinex and the products it writes.
type ConvertConfig struct {
	// UBX2RinexPath is the preferred converter binary. When it does not
	// exist, ubx2rinex is looked up on PATH.
	UBX2RinexPath string `koanf:"ubx2rinex_path" validate:"required"`

	Station      string `koanf:"station" validate:"required"`
	Country      string `koanf:"country" validate:"required"`
	ReceiverType string `koanf:"receiver_type"`
	AntennaType  string `koanf:"antenna_type"`
	Observer     string `koanf:"observer"`

	// SkipNav disables navigation products.
	SkipNav bool `koanf:"skip_nav"`

	// KeepUBX keeps segment files after a successful conversion.
	KeepUBX bool `koanf:"keep_ubx"`

	// BreakerFailures is the number of consecutive converter failures that
	// open the circuit breaker.
	// Default: 3
	BreakerFailures uint32 `koanf:"breaker_failures" validate:"gt=0"`

	// BreakerCooldown is how long the breaker stays open.
	// Default: 5m
	BreakerCooldown time.Duration `koanf:"breaker_cooldown" validate:"gt=0"`
}

// CatchupConfig controls startup conversion of earlier hours.
type CatchupConfig struct {
	Enabled bool `koanf:"enabled"`

	// ShiftHours skips the most recent hours. At least 1, so the hour being
	// written is never planned.
	// Default: 1
	ShiftHours int `koanf:"shift_hours" validate:"gte=1"`

	// MaxDaysBack is how many days of hours are scanned.
	// Default: 3
	MaxDaysBack int `koanf:"max_days_back" validate:"gt=0"`
}

// WorkerConfig tunes the background conversion worker.
type WorkerConfig struct {
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`

	// DrainTimeout bounds how long shutdown waits for queued conversions.
	// Default: 30m
	DrainTimeout time.Duration `koanf:"drain_timeout" validate:"gt=0"`
}

// LedgerConfig configures the BadgerDB conversion ledger.
type LedgerConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Path      string        `koanf:"path"`
	Retention time.Duration `koanf:"retention" validate:"gte=0"`

	// BusyTimeout is how long an operation waits while another process
	// (a manual convert next to the logger) has the database open.
	BusyTimeout time.Duration `koanf:"busy_timeout" validate:"gt=0"`
}

// StatusConfig configures the local HTTP status server.
type StatusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: console
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// SupervisorConfig holds suture tree settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gte=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gte=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gte=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}
