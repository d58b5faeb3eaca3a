// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package serialport

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenMissingDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ttyACM9")

	_, err := Open(Config{Port: path, Baud: 115200, Timeout: 250 * time.Millisecond})
	if err == nil {
		t.Fatal("Open() error = nil for missing device")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q does not name the device", err)
	}
}

func TestDescribe(t *testing.T) {
	if got := describe(errors.New("plain")); got != "device error" {
		t.Errorf("describe(plain) = %q", got)
	}
}
