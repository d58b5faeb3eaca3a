// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package convert

import "strings"

// Kind is the product class derived from a file name.
type Kind int

const (
	KindOther Kind = iota
	KindObservation
	KindNavigation
)

// String returns the metrics label for k.
func (k Kind) String() string {
	switch k {
	case KindObservation:
		return "observation"
	case KindNavigation:
		return "navigation"
	default:
		return "other"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type classifyRule struct {
	name  string
	match func(lower string) bool
	kind  Kind
}

// classifyRules are evaluated in order; the first match wins. Ambiguous
// compressed RINEX names default to observation.
var classifyRules = []classifyRule{
	{"rinex3 long nav", func(s string) bool { return strings.Contains(s, "_mn.") }, KindNavigation},
	{"rinex3 long obs", func(s string) bool { return strings.Contains(s, "_mo.") }, KindObservation},
	{"hatanaka", func(s string) bool {
		return strings.HasSuffix(s, ".crx") || strings.HasSuffix(s, ".crx.gz")
	}, KindObservation},
	{"rnx", func(s string) bool {
		return strings.HasSuffix(s, ".rnx") || strings.HasSuffix(s, ".rnx.gz")
	}, KindObservation},
}

// Classify returns the product kind for a file name. Matching is
// case-insensitive.
func Classify(name string) Kind {
	lower := strings.ToLower(name)
	for _, r := range classifyRules {
		if r.match(lower) {
			return r.kind
		}
	}
	return classifyRinex2(lower)
}

// classifyRinex2 handles short names such as "njit0010.24o" or
// "njit0010.24n.gz".
func classifyRinex2(lower string) Kind {
	trimmed := strings.TrimSuffix(lower, ".gz")
	i := strings.LastIndexByte(trimmed, '.')
	if i < 0 || i == len(trimmed)-1 {
		return KindOther
	}
	switch trimmed[len(trimmed)-1] {
	case 'o', 'd':
		return KindObservation
	case 'n', 'g', 'l', 'p', 'q':
		return KindNavigation
	default:
		return KindOther
	}
}

// IsProduct reports whether name is an archivable product.
func IsProduct(name string) bool {
	return Classify(name) != KindOther
}
