// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

// Command gnss2tec-logger records raw UBX telemetry from a GNSS receiver into
// hourly segment files and converts closed hours to RINEX with ubx2rinex.
//
// Usage:
//
//	gnss2tec-logger [run|log|convert] [flags]
//
// run (the default) logs and converts in one process. log only records
// segments. convert processes the recent hours once and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tomtom215/gnss2tec/internal/config"
	"github.com/tomtom215/gnss2tec/internal/logging"
)

const programName = "gnss2tec-logger"

// Commands
const (
	commandRun     = "run"
	commandLog     = "log"
	commandConvert = "convert"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		logging.Error().Err(err).Msg(programName + " failed")
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithKoanf(opts.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("command", opts.command).
		Str("port", cfg.Serial.Port).
		Str("data_dir", cfg.Storage.DataDir).
		Str("archive_dir", cfg.Storage.ArchiveDir).
		Msg("starting " + programName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch opts.command {
	case commandLog:
		return runLog(ctx, cfg)
	case commandConvert:
		return runConvert(ctx, cfg)
	default:
		return runAll(ctx, cfg)
	}
}

// options holds the parsed command line.
type options struct {
	command    string
	configPath string

	port             string
	baud             int
	dataDir          string
	archiveDir       string
	noConvertOnStart bool
	skipNav          bool
	keepUBX          bool
	logLevel         string

	flags *pflag.FlagSet
}

func parseArgs(args []string) (*options, error) {
	opts := &options{}
	flags := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [run|log|convert] [flags]\n\nFlags:\n", programName)
		flags.PrintDefaults()
	}

	flags.StringVar(&opts.configPath, "config", "", "path to the YAML configuration file (default: $"+config.ConfigPathEnvVar+" or a standard location)")
	flags.StringVar(&opts.port, "port", "", "serial device of the receiver")
	flags.IntVar(&opts.baud, "baud", 0, "serial line speed")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory for hourly UBX segments")
	flags.StringVar(&opts.archiveDir, "archive-dir", "", "directory for archived RINEX products")
	flags.BoolVar(&opts.noConvertOnStart, "no-convert-on-start", false, "skip the startup catch-up of recent hours")
	flags.BoolVar(&opts.skipNav, "skip-nav", false, "do not produce navigation products")
	flags.BoolVar(&opts.keepUBX, "keep-ubx", false, "keep UBX segments after a successful conversion")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	opts.flags = flags

	switch rest := flags.Args(); len(rest) {
	case 0:
		opts.command = commandRun
	case 1:
		opts.command = rest[0]
	default:
		return nil, fmt.Errorf("expected at most one command, got %q", rest)
	}
	switch opts.command {
	case commandRun, commandLog, commandConvert:
	default:
		return nil, fmt.Errorf("unknown command %q (want run, log or convert)", opts.command)
	}
	return opts, nil
}

// apply overrides cfg with every flag given on the command line.
func (o *options) apply(cfg *config.Config) {
	changed := func(name string) bool {
		return o.flags != nil && o.flags.Changed(name)
	}
	if changed("port") {
		cfg.Serial.Port = o.port
	}
	if changed("baud") {
		cfg.Serial.Baud = o.baud
	}
	if changed("data-dir") {
		cfg.Storage.DataDir = o.dataDir
	}
	if changed("archive-dir") {
		cfg.Storage.ArchiveDir = o.archiveDir
	}
	if changed("no-convert-on-start") {
		cfg.Catchup.Enabled = !o.noConvertOnStart
	}
	if changed("skip-nav") {
		cfg.Convert.SkipNav = o.skipNav
	}
	if changed("keep-ubx") {
		cfg.Convert.KeepUBX = o.keepUBX
	}
	if changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
}
