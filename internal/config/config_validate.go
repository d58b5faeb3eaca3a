// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/gnss2tec/internal/logging"
	"github.com/tomtom215/gnss2tec/internal/validation"
)

// MinReadBufferSize is the smallest accepted serial.read_buffer_size.
const MinReadBufferSize = 1024

// Validate checks struct tags and then the cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateSerial(); err != nil {
		return err
	}

	if err := c.validateTelemetry(); err != nil {
		return err
	}

	if err := c.validateConvert(); err != nil {
		return err
	}

	if err := c.validateCatchup(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateSerial() error {
	if c.Serial.ReadBufferSize < MinReadBufferSize {
		return fmt.Errorf("serial.read_buffer_size must be at least %d, got %d", MinReadBufferSize, c.Serial.ReadBufferSize)
	}
	return nil
}

// validateTelemetry accepts 0 (monitor off) or at least one second.
func (c *Config) validateTelemetry() error {
	if c.Telemetry.Interval > 0 && c.Telemetry.Interval < time.Second {
		return fmt.Errorf("telemetry.interval must be 0 or at least 1s, got %s", c.Telemetry.Interval)
	}
	return nil
}

func (c *Config) validateConvert() error {
	if strings.ContainsAny(c.Convert.Station, " /") {
		return fmt.Errorf("convert.station must not contain spaces or slashes: %q", c.Convert.Station)
	}
	if len(c.Convert.Station) > 4 {
		return fmt.Errorf("convert.station must be at most 4 characters: %q", c.Convert.Station)
	}
	if len(c.Convert.Country) != 3 {
		return fmt.Errorf("convert.country must be a 3-letter code: %q", c.Convert.Country)
	}
	return nil
}

func (c *Config) validateCatchup() error {
	if c.Catchup.ShiftHours >= c.Catchup.MaxDaysBack*24 {
		return fmt.Errorf("catchup.shift_hours (%d) must be less than catchup.max_days_back*24 (%d)",
			c.Catchup.ShiftHours, c.Catchup.MaxDaysBack*24)
	}
	return nil
}

// validateStorage rejects layouts where archived products would be read
// back as inputs, and checks the optional ledger and status settings.
func (c *Config) validateStorage() error {
	data := filepath.Clean(c.Storage.DataDir)
	archive := filepath.Clean(c.Storage.ArchiveDir)
	if data == archive {
		return fmt.Errorf("storage.archive_dir must differ from storage.data_dir (%s)", data)
	}
	if rel, err := filepath.Rel(archive, data); err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("storage.data_dir %s must not be inside storage.archive_dir %s", data, archive)
	}

	if c.Lock.LoggerFile == c.Lock.ConvertFile {
		return fmt.Errorf("lock.logger_file and lock.convert_file must differ (%s)", c.Lock.LoggerFile)
	}

	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required when ledger.enabled=true")
	}

	if c.Status.Enabled {
		if _, _, err := net.SplitHostPort(c.Status.Listen); err != nil {
			return fmt.Errorf("status.listen %q is not host:port: %w", c.Status.Listen, err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	return nil
}
