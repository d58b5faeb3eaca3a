// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

// Package validation provides struct validation using go-playground/validator v10.
//
// It wraps a thread-safe singleton validator whose field names come from
// koanf struct tags, so a failure on Config.Serial.Baud is reported as
// "serial.baud" rather than as a Go field path.
//
// # Quick Start
//
//	type SerialConfig struct {
//	    Port string `koanf:"port" validate:"required"`
//	    Baud int    `koanf:"baud" validate:"gt=0"`
//	}
//
//	if verr := validation.ValidateStruct(&cfg); verr != nil {
//	    for _, fe := range verr.Errors() {
//	        fmt.Println(fe.Field(), fe.Tag())
//	    }
//	}
//
// # Common Validation Tags
//
//   - required: field must not be empty
//   - gt=n, gte=n, lt=n, lte=n: numeric and duration bounds
//   - oneof=a b c: must be one of the listed values
//   - min=n, max=n: length for strings, value for numbers
//
// # Error Types
//
// ValidationError describes one failing field. StructValidationError
// collects them and implements error by joining the messages with "; ".
package validation
