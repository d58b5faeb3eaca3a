// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

/*
Package config provides configuration loading and validation for
gnss2tec-logger.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. built-in defaults (defaultConfig)
 2. a YAML file: the --config flag, then GNSS2TEC_CONFIG, then
    ./gnss2tec-logger.yaml, then /etc/gnss2tec-logger/config.yaml
 3. GNSS2TEC_* environment variables listed in envMappings

Unknown environment variables are ignored.

# Example File

	serial:
	  port: /dev/ttyACM0
	  baud: 115200
	storage:
	  data_dir: /srv/gnss/data
	  archive_dir: /srv/gnss/archive
	convert:
	  station: NJIT
	  skip_nav: false
	catchup:
	  max_days_back: 3
	status:
	  enabled: true
	  listen: 127.0.0.1:9464

# Environment Variables

Commonly used overrides:
  - GNSS2TEC_PORT, GNSS2TEC_BAUD: serial device and speed
  - GNSS2TEC_DATA_DIR, GNSS2TEC_ARCHIVE_DIR: segment and product directories
  - GNSS2TEC_UBX_CONFIG: receiver command file
  - GNSS2TEC_UBX2RINEX_PATH: converter binary
  - GNSS2TEC_SKIP_NAV, GNSS2TEC_KEEP_UBX: product and input handling
  - GNSS2TEC_MAX_DAYS_BACK, GNSS2TEC_SHIFT_HOURS: catch-up window
  - GNSS2TEC_NMEA_INTERVAL, GNSS2TEC_NMEA_FORMAT: telemetry monitor
  - GNSS2TEC_LOG_LEVEL, GNSS2TEC_LOG_FORMAT: logging

# Validation

Validate runs go-playground/validator tags through internal/validation and
then cross-field checks. Errors name the koanf key, for example
"serial.read_buffer_size must be at least 1024, got 512".
*/
package config
