// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found is used.
var DefaultConfigPaths = []string{
	"gnss2tec-logger.yaml",
	"/etc/gnss2tec-logger/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "GNSS2TEC_CONFIG"

// EnvPrefix is the prefix of every honoured environment variable.
const EnvPrefix = "GNSS2TEC_"

// defaultConfig returns a Config with every default applied. Defaults are
// loaded first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:           "/dev/ttyACM0",
			Baud:           115200,
			Timeout:        250 * time.Millisecond,
			ReadBufferSize: 8192,
		},
		UBX: UBXConfig{
			ConfigFile:  "/etc/gnss2tec-logger/ubx.dat",
			CommandGap:  50 * time.Millisecond,
			SendOnStart: true,
		},
		Telemetry: TelemetryConfig{
			Interval: 30 * time.Second,
			Format:   "raw",
		},
		Ingest: IngestConfig{
			FlushInterval: 5 * time.Second,
			StatsInterval: 5 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:    "/var/lib/gnss2tec-logger/data",
			ArchiveDir: "/var/lib/gnss2tec-logger/archive",
		},
		Lock: LockConfig{
			LoggerFile:  "/var/lib/gnss2tec-logger/ubx_log.lock",
			ConvertFile: "/var/lib/gnss2tec-logger/convert.lock",
		},
		Convert: ConvertConfig{
			UBX2RinexPath:   "/usr/lib/gnss2tec-logger/bin/ubx2rinex",
			Station:         "NJIT",
			Country:         "USA",
			ReceiverType:    "U-Blox ZED F9P/02B-00",
			AntennaType:     "TOPGNSS AN-105L",
			Observer:        "H. Kim/NJIT",
			SkipNav:         false,
			KeepUBX:         false,
			BreakerFailures: 3,
			BreakerCooldown: 5 * time.Minute,
		},
		Catchup: CatchupConfig{
			Enabled:     true,
			ShiftHours:  1,
			MaxDaysBack: 3,
		},
		Worker: WorkerConfig{
			PollInterval: 200 * time.Millisecond,
			DrainTimeout: 30 * time.Minute,
		},
		Ledger: LedgerConfig{
			Enabled:     true,
			Path:        "/var/lib/gnss2tec-logger/ledger",
			Retention:   720 * time.Hour,
			BusyTimeout: 10 * time.Second,
		},
		Status: StatusConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values
//  2. Config File: configPath if set, else the first file found by
//     findConfigFile
//  3. Environment Variables: mapped GNSS2TEC_* variables
//
// An explicit configPath that does not exist is an error; a missing file in
// the default search paths is not.
func LoadWithKoanf(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file
	if configPath == "" {
		configPath = findConfigFile()
	} else if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment
	// GNSS2TEC_PORT -> serial.port
	// GNSS2TEC_DATA_DIR -> storage.data_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns GNSS2TEC_CONFIG when it names an existing file,
// else the first existing entry of DefaultConfigPaths, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps lowercased variable names, prefix removed, to koanf paths.
var envMappings = map[string]string{
	// Serial
	"port":             "serial.port",
	"baud":             "serial.baud",
	"serial_timeout":   "serial.timeout",
	"read_buffer_size": "serial.read_buffer_size",

	// UBX commands
	"ubx_config":        "ubx.config_file",
	"ubx_command_gap":   "ubx.command_gap",
	"ubx_send_on_start": "ubx.send_on_start",

	// Telemetry
	"nmea_interval": "telemetry.interval",
	"nmea_format":   "telemetry.format",

	// Ingest
	"flush_interval": "ingest.flush_interval",
	"stats_interval": "ingest.stats_interval",

	// Storage and locks
	"data_dir":          "storage.data_dir",
	"archive_dir":       "storage.archive_dir",
	"logger_lock_file":  "lock.logger_file",
	"convert_lock_file": "lock.convert_file",

	// Conversion
	"ubx2rinex_path":   "convert.ubx2rinex_path",
	"station":          "convert.station",
	"country":          "convert.country",
	"receiver_type":    "convert.receiver_type",
	"antenna_type":     "convert.antenna_type",
	"observer":         "convert.observer",
	"skip_nav":         "convert.skip_nav",
	"keep_ubx":         "convert.keep_ubx",
	"breaker_failures": "convert.breaker_failures",
	"breaker_cooldown": "convert.breaker_cooldown",

	// Catch-up and worker
	"convert_on_start":     "catchup.enabled",
	"shift_hours":          "catchup.shift_hours",
	"max_days_back":        "catchup.max_days_back",
	"worker_poll":          "worker.poll_interval",
	"worker_drain_timeout": "worker.drain_timeout",

	// Ledger
	"ledger_enabled":      "ledger.enabled",
	"ledger_path":         "ledger.path",
	"ledger_retention":    "ledger.retention",
	"ledger_busy_timeout": "ledger.busy_timeout",

	// Status server
	"status_enabled": "status.enabled",
	"status_listen":  "status.listen",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps a GNSS2TEC_* variable to its koanf path.
//
// Examples:
//   - GNSS2TEC_PORT -> serial.port
//   - GNSS2TEC_DATA_DIR -> storage.data_dir
//   - GNSS2TEC_MAX_DAYS_BACK -> catchup.max_days_back
//
// Unmapped variables return "" and are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
