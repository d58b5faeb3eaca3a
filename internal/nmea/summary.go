// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package nmea

import (
	"fmt"
	"strconv"
	"strings"
)

const knotsToKmh = 1.852

// Summarize renders a human-readable one-line summary of a watched
// sentence. ok is false when the sentence cannot be parsed.
func Summarize(sentence string) (string, bool) {
	id, ok := MessageID(sentence)
	if !ok {
		return "", false
	}
	f, ok := fields(sentence)
	if !ok {
		return "", false
	}

	switch id {
	case "GSA":
		return summarizeGSA(f), true
	case "GSV":
		return summarizeGSV(f), true
	case "GNS":
		return summarizeGNS(f), true
	case "RMC":
		return summarizeRMC(f), true
	case "GBS":
		return fmt.Sprintf("time=%s err_lat_m=%s err_lon_m=%s err_alt_m=%s failed_sat=%s prob=%s bias=%s stddev=%s",
			f.nz(1), f.nz(2), f.nz(3), f.nz(4), f.nz(5), f.nz(6), f.nz(7), f.nz(8)), true
	case "GST":
		return fmt.Sprintf("time=%s rms_m=%s semi_major_m=%s semi_minor_m=%s orient_deg=%s sigma_lat_m=%s sigma_lon_m=%s sigma_alt_m=%s",
			f.nz(1), f.nz(2), f.nz(3), f.nz(4), f.nz(5), f.nz(6), f.nz(7), f.nz(8)), true
	default:
		return "", false
	}
}

func summarizeGSA(f fieldList) string {
	mode := "unknown"
	switch f.get(1) {
	case "A":
		mode = "automatic"
	case "M":
		mode = "manual"
	}

	fix := "unknown"
	switch f.get(2) {
	case "1":
		fix = "no-fix"
	case "2":
		fix = "2D"
	case "3":
		fix = "3D"
	}

	used := 0
	for i := 3; i <= 14; i++ {
		if f.get(i) != "" {
			used++
		}
	}

	return fmt.Sprintf("mode=%s fix=%s sats_used=%d pdop=%s hdop=%s vdop=%s",
		mode, fix, used, f.nz(15), f.nz(16), f.nz(17))
}

func summarizeGSV(f fieldList) string {
	talker := "-"
	if head := f.get(0); len(head) >= 2 {
		talker = head[:2]
	}
	return fmt.Sprintf("msg=%s/%s sats_in_view=%s talker=%s", f.nz(2), f.nz(1), f.nz(3), talker)
}

func summarizeGNS(f fieldList) string {
	return fmt.Sprintf("time=%s mode=%s sats_used=%s hdop=%s lat=%s lon=%s alt_m=%s",
		f.nz(1), f.nz(6), f.nz(7), f.nz(8),
		formatCoord(parseCoord(f.get(2), f.get(3), 2)),
		formatCoord(parseCoord(f.get(4), f.get(5), 3)),
		f.nz(9))
}

func summarizeRMC(f fieldList) string {
	status := "unknown"
	switch f.get(2) {
	case "A":
		status = "valid"
	case "V":
		status = "warning"
	}

	speed := "-"
	if kn, err := strconv.ParseFloat(f.get(7), 64); err == nil {
		speed = fmt.Sprintf("%.2f kn/%.2f kmh", kn, kn*knotsToKmh)
	}

	return fmt.Sprintf("status=%s time=%s date=%s lat=%s lon=%s speed=%s course_deg=%s",
		status, f.nz(1), f.nz(9),
		formatCoord(parseCoord(f.get(3), f.get(4), 2)),
		formatCoord(parseCoord(f.get(5), f.get(6), 3)),
		speed, f.nz(8))
}

type fieldList []string

func fields(sentence string) (fieldList, bool) {
	core, ok := strings.CutPrefix(sentence, "$")
	if !ok {
		return nil, false
	}
	core, _, _ = strings.Cut(core, "*")
	return strings.Split(core, ","), true
}

func (f fieldList) get(i int) string {
	if i < 0 || i >= len(f) {
		return ""
	}
	return f[i]
}

// nz returns the field or "-" when it is empty.
func (f fieldList) nz(i int) string {
	if v := f.get(i); v != "" {
		return v
	}
	return "-"
}

// parseCoord converts NMEA ddmm.mmmm / dddmm.mmmm to signed decimal degrees.
func parseCoord(value, hemi string, degDigits int) (float64, bool) {
	if len(value) <= degDigits {
		return 0, false
	}
	deg, err := strconv.ParseFloat(value[:degDigits], 64)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(value[degDigits:], 64)
	if err != nil {
		return 0, false
	}
	v := deg + minutes/60
	if hemi == "S" || hemi == "W" {
		v = -v
	}
	return v, true
}

func formatCoord(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
