// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/gnss2tec/internal/logging"
	"github.com/tomtom215/gnss2tec/internal/metrics"
)

// FallbackProgram is looked up on PATH when the configured converter path
// does not exist.
const FallbackProgram = "ubx2rinex"

// ConverterConfig describes the external converter and the RINEX header
// fields passed to it.
type ConverterConfig struct {
	Path         string
	Station      string
	Country      string
	ReceiverType string
	AntennaType  string
	Observer     string
	SkipNav      bool

	// BreakerFailures consecutive failed availability checks open the
	// breaker for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// CommandError is a converter invocation that exited unsuccessfully.
type CommandError struct {
	Label  string
	Status string
	Stdout string
	Stderr string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed with status %s.\nstdout:\n%s\nstderr:\n%s", e.Label, e.Status, e.Stdout, e.Stderr)
}

// Converter runs ubx2rinex.
type Converter struct {
	cfg     ConverterConfig
	breaker *gobreaker.CircuitBreaker[string]
}

// NewConverter creates a Converter with an availability circuit breaker.
func NewConverter(cfg ConverterConfig) *Converter {
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 5 * time.Minute
	}
	failures := cfg.BreakerFailures

	settings := gobreaker.Settings{
		Name:        "ubx2rinex",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.ConverterBreakerState.Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("converter availability breaker changed state")
		},
	}

	return &Converter{
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Config returns the converter configuration.
func (c *Converter) Config() ConverterConfig {
	return c.cfg
}

// BreakerState returns the availability breaker state.
func (c *Converter) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// program resolves the executable and whether the PATH fallback was used.
func (c *Converter) program() (string, bool) {
	if _, err := os.Stat(c.cfg.Path); err == nil {
		return c.cfg.Path, false
	}
	return FallbackProgram, true
}

// Available runs "<program> --version" and returns its trimmed output.
// While the breaker is open it fails fast with gobreaker.ErrOpenState.
func (c *Converter) Available(ctx context.Context) (string, error) {
	return c.breaker.Execute(func() (string, error) {
		prog, fallback := c.program()
		label := fmt.Sprintf("ubx2rinex availability check (%s)", c.cfg.Path)
		if fallback {
			label = fmt.Sprintf("ubx2rinex availability check (requested %s not found; used PATH lookup)", c.cfg.Path)
		}
		stdout, err := runChecked(ctx, label, prog, "--version")
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(stdout), nil
	})
}

// Args returns the converter arguments for one hour of inputs.
func (c *Converter) Args(inputs []string, outputDir string) []string {
	args := make([]string, 0, 2*len(inputs)+24)
	for _, in := range inputs {
		args = append(args, "--file", in)
	}
	args = append(args,
		"--name", c.cfg.Station+"00",
		"-c", c.cfg.Country,
		"--long",
		"--period", "1 h",
		"--sampling", "1 s",
		"--crx",
		"--gzip",
		"--prefix", outputDir,
		"--model", c.cfg.ReceiverType,
		"--antenna", c.cfg.AntennaType,
		"--observer", c.cfg.Observer,
	)
	if !c.cfg.SkipNav {
		args = append(args, "--nav")
	}
	return args
}

// Convert runs the converter once over inputs, writing into outputDir.
func (c *Converter) Convert(ctx context.Context, inputs []string, outputDir string) error {
	prog, fallback := c.program()
	label := "ubx2rinex conversion"
	if fallback {
		label = fmt.Sprintf("ubx2rinex conversion (requested %s not found; used PATH lookup)", c.cfg.Path)
	}
	_, err := runChecked(ctx, label, prog, c.Args(inputs, outputDir)...)
	return err
}

// runChecked runs a command, returning its stdout on success and a
// *CommandError with both streams on a non-zero exit.
func runChecked(ctx context.Context, label, prog string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, prog, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &CommandError{
			Label:  label,
			Status: exitErr.ProcessState.String(),
			Stdout: strings.TrimSpace(stdout.String()),
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}
	return "", fmt.Errorf("spawning command failed for %s: %s %s: %w", label, prog, strings.Join(args, " "), err)
}
