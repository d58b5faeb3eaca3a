// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate clears every mapped variable and moves into an empty directory so
// the default search paths do not match a stray file.
func isolate(t *testing.T) string {
	t.Helper()
	for key := range envMappings {
		t.Setenv(EnvPrefix+strings.ToUpper(key), "")
		os.Unsetenv(EnvPrefix + strings.ToUpper(key))
	}
	t.Setenv(ConfigPathEnvVar, "")
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Serial.Port != "/dev/ttyACM0" {
		t.Errorf("Serial.Port = %q, want /dev/ttyACM0", cfg.Serial.Port)
	}
	if cfg.Serial.Baud != 115200 {
		t.Errorf("Serial.Baud = %d, want 115200", cfg.Serial.Baud)
	}
	if cfg.Serial.Timeout != 250*time.Millisecond {
		t.Errorf("Serial.Timeout = %v, want 250ms", cfg.Serial.Timeout)
	}
	if cfg.UBX.CommandGap != 50*time.Millisecond {
		t.Errorf("UBX.CommandGap = %v, want 50ms", cfg.UBX.CommandGap)
	}
	if cfg.Telemetry.Interval != 30*time.Second || cfg.Telemetry.Format != "raw" {
		t.Errorf("Telemetry = %+v, want 30s raw", cfg.Telemetry)
	}
	if cfg.Ingest.StatsInterval != 5*time.Second {
		t.Errorf("Ingest.StatsInterval = %v, want 5s", cfg.Ingest.StatsInterval)
	}
	if cfg.Ledger.BusyTimeout != 10*time.Second {
		t.Errorf("Ledger.BusyTimeout = %v, want 10s", cfg.Ledger.BusyTimeout)
	}
	if cfg.Convert.Station != "NJIT" || cfg.Convert.Country != "USA" {
		t.Errorf("Convert station/country = %q/%q, want NJIT/USA", cfg.Convert.Station, cfg.Convert.Country)
	}
	if cfg.Catchup.ShiftHours != 1 || cfg.Catchup.MaxDaysBack != 3 {
		t.Errorf("Catchup = %+v, want shift 1, days 3", cfg.Catchup)
	}
	if cfg.Worker.DrainTimeout != 30*time.Minute {
		t.Errorf("Worker.DrainTimeout = %v, want 30m", cfg.Worker.DrainTimeout)
	}
	if cfg.Ledger.Retention != 720*time.Hour {
		t.Errorf("Ledger.Retention = %v, want 720h", cfg.Ledger.Retention)
	}
	if cfg.Status.Enabled {
		t.Error("Status.Enabled should be false by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadWithKoanf_DefaultsOnly(t *testing.T) {
	isolate(t)

	cfg, err := LoadWithKoanf("")
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Storage.DataDir != "/var/lib/gnss2tec-logger/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if !cfg.UBX.SendOnStart {
		t.Error("UBX.SendOnStart should default to true")
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "custom.yaml", `
serial:
  port: /dev/ttyUSB3
  baud: 9600
  timeout: 1s
storage:
  data_dir: /srv/gnss/data
  archive_dir: /srv/gnss/archive
convert:
  skip_nav: true
catchup:
  max_days_back: 7
telemetry:
  interval: 10s
  format: both
`)

	cfg, err := LoadWithKoanf(path)
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyUSB3" || cfg.Serial.Baud != 9600 {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	if cfg.Serial.Timeout != time.Second {
		t.Errorf("Serial.Timeout = %v, want 1s", cfg.Serial.Timeout)
	}
	if cfg.Storage.ArchiveDir != "/srv/gnss/archive" {
		t.Errorf("Storage.ArchiveDir = %q", cfg.Storage.ArchiveDir)
	}
	if !cfg.Convert.SkipNav {
		t.Error("Convert.SkipNav should be true from file")
	}
	if cfg.Catchup.MaxDaysBack != 7 {
		t.Errorf("Catchup.MaxDaysBack = %d, want 7", cfg.Catchup.MaxDaysBack)
	}
	if cfg.Telemetry.Interval != 10*time.Second || cfg.Telemetry.Format != "both" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
	// Untouched keys keep their defaults.
	if cfg.Convert.Station != "NJIT" {
		t.Errorf("Convert.Station = %q, want default NJIT", cfg.Convert.Station)
	}
}

func TestLoadWithKoanf_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "gnss.yaml", "serial:\n  port: /dev/ttyUSB0\n")

	t.Setenv("GNSS2TEC_PORT", "/dev/ttyACM9")
	t.Setenv("GNSS2TEC_DATA_DIR", "/tmp/gnss-data")
	t.Setenv("GNSS2TEC_MAX_DAYS_BACK", "2")
	t.Setenv("GNSS2TEC_KEEP_UBX", "true")
	t.Setenv("GNSS2TEC_BREAKER_COOLDOWN", "90s")
	t.Setenv("GNSS2TEC_UNRELATED", "ignored")

	cfg, err := LoadWithKoanf(path)
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyACM9" {
		t.Errorf("Serial.Port = %q, want env value", cfg.Serial.Port)
	}
	if cfg.Storage.DataDir != "/tmp/gnss-data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Catchup.MaxDaysBack != 2 {
		t.Errorf("Catchup.MaxDaysBack = %d, want 2", cfg.Catchup.MaxDaysBack)
	}
	if !cfg.Convert.KeepUBX {
		t.Error("Convert.KeepUBX should be true from env")
	}
	if cfg.Convert.BreakerCooldown != 90*time.Second {
		t.Errorf("Convert.BreakerCooldown = %v, want 90s", cfg.Convert.BreakerCooldown)
	}
}

func TestLoadWithKoanf_ConfigPathEnvVar(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "from-env.yaml", "convert:\n  station: ABCD\n")
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf("")
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Convert.Station != "ABCD" {
		t.Errorf("Convert.Station = %q, want ABCD", cfg.Convert.Station)
	}
}

func TestLoadWithKoanf_WorkingDirFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "gnss2tec-logger.yaml", "ledger:\n  enabled: false\n")

	cfg, err := LoadWithKoanf("")
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Ledger.Enabled {
		t.Error("Ledger.Enabled should be false from ./gnss2tec-logger.yaml")
	}
}

func TestLoadWithKoanf_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"small read buffer", "serial:\n  read_buffer_size: 512\n", "serial.read_buffer_size must be at least 1024"},
		{"bad telemetry format", "telemetry:\n  format: xml\n", "telemetry.format must be one of"},
		{"zero max days", "catchup:\n  max_days_back: 0\n", "catchup.max_days_back must be greater than 0"},
		{"zero shift plans the open hour", "catchup:\n  shift_hours: 0\n", "catchup.shift_hours must be greater than or equal to 1"},
		{"archive equals data", "storage:\n  data_dir: /srv/x\n  archive_dir: /srv/x\n", "storage.archive_dir must differ"},
		{"bad log level", "logging:\n  level: loud\n", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := writeFile(t, dir, "bad.yaml", tt.body)

			_, err := LoadWithKoanf(path)
			if err == nil {
				t.Fatal("LoadWithKoanf() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadWithKoanf_DisableReporting(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "quiet.yaml", "ingest:\n  stats_interval: 0s\ntelemetry:\n  interval: 0s\n")

	cfg, err := LoadWithKoanf(path)
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Ingest.StatsInterval != 0 || cfg.Telemetry.Interval != 0 {
		t.Errorf("Ingest.StatsInterval = %v, Telemetry.Interval = %v, want both 0", cfg.Ingest.StatsInterval, cfg.Telemetry.Interval)
	}
}

func TestLoadWithKoanf_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	if _, err := LoadWithKoanf(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Fatal("LoadWithKoanf() with a missing explicit file should fail")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"GNSS2TEC_PORT", "serial.port"},
		{"GNSS2TEC_BAUD", "serial.baud"},
		{"GNSS2TEC_DATA_DIR", "storage.data_dir"},
		{"GNSS2TEC_ARCHIVE_DIR", "storage.archive_dir"},
		{"GNSS2TEC_UBX_CONFIG", "ubx.config_file"},
		{"GNSS2TEC_NMEA_FORMAT", "telemetry.format"},
		{"GNSS2TEC_CONVERT_ON_START", "catchup.enabled"},
		{"GNSS2TEC_LOG_LEVEL", "logging.level"},
		{"GNSS2TEC_CONFIG", ""},
		{"GNSS2TEC_NOPE", ""},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}
