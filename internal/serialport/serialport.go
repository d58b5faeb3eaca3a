// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

// Package serialport adapts the receiver's serial device to the byte source
// used by the ingestion loop.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Source is a byte source with bounded reads. A Read that times out without
// data returns 0, nil; any returned error is a hard failure.
type Source interface {
	io.ReadWriteCloser
	Name() string
}

// Config describes how to open the device.
type Config struct {
	Port    string
	Baud    int
	Timeout time.Duration
}

// Port is a Source backed by go.bug.st/serial.
type Port struct {
	name string
	port serial.Port
}

// Open opens the device in 8N1 mode and applies the read timeout.
func Open(cfg Config) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s at %d baud: %s: %w", cfg.Port, cfg.Baud, describe(err), err)
	}
	if err := p.SetReadTimeout(cfg.Timeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
	}
	return &Port{name: cfg.Port, port: p}, nil
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Drain blocks until all written bytes have been transmitted.
func (p *Port) Drain() error {
	return p.port.Drain()
}

// Close closes the device.
func (p *Port) Close() error {
	return p.port.Close()
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}

// describe turns serial library error codes into operator hints.
func describe(err error) string {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return "device error"
	}
	switch portErr.Code() {
	case serial.PortNotFound:
		return "device not found"
	case serial.PortBusy:
		return "device busy"
	case serial.PermissionDenied:
		return "permission denied"
	case serial.InvalidSpeed:
		return "unsupported baud rate"
	case serial.InvalidSerialPort:
		return "not a serial port"
	default:
		return "device error"
	}
}

// Ports lists serial devices present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	return ports, nil
}
