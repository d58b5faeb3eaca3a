// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package convert

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		// RINEX 3 long names
		{"NJIT00USA_R_20240010900_01H_01S_MO.crx.gz", KindObservation},
		{"NJIT00USA_R_20240010900_01H_MN.rnx.gz", KindNavigation},
		{"njit00usa_r_20240010900_01h_mn.rnx", KindNavigation},
		{"NJIT00USA_R_20240010900_01H_01S_MO.rnx", KindObservation},

		// Compression-driven extensions
		{"station.crx", KindObservation},
		{"station.CRX.GZ", KindObservation},
		{"station.rnx", KindObservation},
		{"station.rnx.gz", KindObservation},

		// RINEX 2 short names
		{"njit0010.24o", KindObservation},
		{"njit0010.24d.gz", KindObservation},
		{"njit0010.24n", KindNavigation},
		{"njit0010.24g.gz", KindNavigation},
		{"njit0010.24l", KindNavigation},
		{"njit0010.24p", KindNavigation},
		{"njit0010.24q", KindNavigation},

		// Others
		{"20240101_090000.ubx", KindOther},
		{"readme.txt", KindOther},
		{"noextension", KindOther},
		{"trailingdot.", KindOther},
		{"archive.gz", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.name); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.name, got, tt.want)
			}
			if got := IsProduct(tt.name); got != (tt.want != KindOther) {
				t.Errorf("IsProduct(%q) = %v", tt.name, got)
			}
		})
	}
}

func TestClassifyRulePrecedence(t *testing.T) {
	// _MN. wins over the .crx suffix rule.
	if got := Classify("X_MN.crx.gz"); got != KindNavigation {
		t.Errorf("Classify(X_MN.crx.gz) = %v, want navigation", got)
	}
}

func TestValidate(t *testing.T) {
	obs := "/ws/NJIT00USA_R_20240010900_01H_01S_MO.crx.gz"
	nav := "/ws/NJIT00USA_R_20240010900_01H_MN.rnx.gz"

	tests := []struct {
		name    string
		outputs []string
		skipNav bool
		wantErr error
		wantMsg string
	}{
		{name: "obs and nav", outputs: []string{obs, nav}},
		{name: "obs only with skip nav", outputs: []string{obs}, skipNav: true},
		{
			name:    "missing nav",
			outputs: []string{obs},
			wantErr: ErrNoNavigation,
			wantMsg: "no navigation product generated for 2024-01-01 09:00; collected outputs: NJIT00USA_R_20240010900_01H_01S_MO.crx.gz",
		},
		{
			name:    "missing obs",
			outputs: []string{nav},
			skipNav: true,
			wantErr: ErrNoObservation,
			wantMsg: "no observation product generated for 2024-01-01 09:00; collected outputs: NJIT00USA_R_20240010900_01H_MN.rnx.gz",
		},
		{
			name:    "nothing",
			wantErr: ErrNoObservation,
			wantMsg: "no observation product generated for 2024-01-01 09:00; collected outputs: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.outputs, tt.skipNav, "2024-01-01 09:00")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Validate() message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
