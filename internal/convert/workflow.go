// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

/*
Package convert turns one closed hour of raw segment files into archived
RINEX products.

A conversion attempt for an hour runs in its own workspace under
data_dir/.convert-work and follows a fixed sequence:

 1. list the hour's non-empty segments (none means the hour is skipped)
 2. snapshot products already present in data_dir
 3. run ubx2rinex once over all segments, writing into the workspace
 4. collect workspace products, falling back to files that changed in
    data_dir when the converter ignored the output prefix
 5. normalize epoch tokens and classify products by name
 6. require an observation product, and a navigation product unless
    navigation is disabled
 7. move products into archive_dir/YYYY/DOY without overwriting
 8. delete the input segments unless they are kept

Any failure before step 7 leaves the inputs untouched. The workspace is
removed on every return path.
*/
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/gnss2tec/internal/hourbucket"
	"github.com/tomtom215/gnss2tec/internal/logging"
	"github.com/tomtom215/gnss2tec/internal/metrics"
)

var (
	// ErrNoObservation is returned when a conversion produced no observation product.
	ErrNoObservation = errors.New("no observation product generated")

	// ErrNoNavigation is returned when navigation was requested but not produced.
	ErrNoNavigation = errors.New("no navigation product generated")

	// ErrHourOpen is returned for an hour that has not ended yet; its
	// segment may still be written by the logger.
	ErrHourOpen = errors.New("hour has not ended")
)

// Config controls where a Workflow reads and writes.
type Config struct {
	DataDir    string
	ArchiveDir string
	KeepInputs bool
}

// Product is one archived output file.
type Product struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// Result describes one conversion attempt.
type Result struct {
	Hour            hourbucket.Bucket
	Inputs          []string
	Products        []Product
	UsedFallbackDir bool
	Skipped         bool
}

// ProductPaths returns the archived paths in r.
func (r Result) ProductPaths() []string {
	paths := make([]string, len(r.Products))
	for i, p := range r.Products {
		paths[i] = p.Path
	}
	return paths
}

// Workflow converts and archives single hours.
type Workflow struct {
	cfg       Config
	converter *Converter
	now       func() time.Time
}

// NewWorkflow creates a Workflow using converter.
func NewWorkflow(cfg Config, converter *Converter) *Workflow {
	return &Workflow{
		cfg:       cfg,
		converter: converter,
		now:       time.Now,
	}
}

// Converter returns the workflow's converter.
func (w *Workflow) Converter() *Converter {
	return w.converter
}

// HasInputs reports whether hour b has any non-empty segment file.
func (w *Workflow) HasInputs(b hourbucket.Bucket) (bool, error) {
	inputs, err := hourInputs(w.cfg.DataDir, b)
	return len(inputs) > 0, err
}

// ConvertHour converts hour b. An hour without input segments returns a
// skipped Result and a nil error.
func (w *Workflow) ConvertHour(ctx context.Context, b hourbucket.Bucket) (Result, error) {
	log := logging.Ctx(ctx)
	res := Result{Hour: b}

	if !b.Closed(w.now()) {
		return res, fmt.Errorf("convert %s: %w", b.Label(), ErrHourOpen)
	}

	inputs, err := hourInputs(w.cfg.DataDir, b)
	if err != nil {
		return res, err
	}
	if len(inputs) == 0 {
		res.Skipped = true
		return res, nil
	}
	res.Inputs = inputs

	log.Info().
		Str("label", b.Label()).
		Int("inputs", len(inputs)).
		Msg("processing UTC hour")

	workspace, err := createWorkspace(w.cfg.DataDir, b, w.now())
	if err != nil {
		return res, err
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			log.Warn().Err(err).Str("workspace", workspace).Msg("failed to remove conversion workspace")
		}
	}()

	before, err := snapshotProducts(w.cfg.DataDir)
	if err != nil {
		return res, err
	}

	if err := w.converter.Convert(ctx, inputs, workspace); err != nil {
		return res, err
	}

	outputs, err := collectProducts(workspace)
	if err != nil {
		return res, err
	}
	if len(outputs) == 0 {
		after, err := snapshotProducts(w.cfg.DataDir)
		if err != nil {
			return res, err
		}
		outputs = changedProducts(before, after)
		if len(outputs) > 0 {
			res.UsedFallbackDir = true
			log.Warn().
				Str("data_dir", w.cfg.DataDir).
				Msg("converter emitted products outside workspace; using changed files from data directory")
		}
	}

	token := b.EpochToken()
	for i, p := range outputs {
		renamed, err := normalizeEpoch(p, token)
		if err != nil {
			return res, err
		}
		if renamed != p {
			log.Debug().Str("from", filepath.Base(p)).Str("to", filepath.Base(renamed)).Msg("normalized product epoch")
		}
		outputs[i] = renamed
	}

	if err := Validate(outputs, w.converter.Config().SkipNav, b.Label()); err != nil {
		return res, err
	}

	archiveDir := filepath.Join(w.cfg.ArchiveDir, b.Year(), b.DayOfYear())
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return res, fmt.Errorf("creating archive path failed: %s: %w", archiveDir, err)
	}
	for _, p := range outputs {
		kind := Classify(filepath.Base(p))
		dst, err := moveIntoDir(p, archiveDir)
		if err != nil {
			return res, err
		}
		metrics.ArchiveProducts.WithLabelValues(kind.String()).Inc()
		res.Products = append(res.Products, Product{Path: dst, Kind: kind})
	}

	if !w.cfg.KeepInputs {
		for _, in := range inputs {
			if err := removeIfExists(in); err != nil {
				return res, err
			}
		}
	}

	log.Info().
		Strs("products", res.ProductPaths()).
		Str("archive", archiveDir).
		Msg("hour converted")
	return res, nil
}

// Validate checks that outputs contain an observation product and, unless
// skipNav, a navigation product. label names the hour in the error.
func Validate(outputs []string, skipNav bool, label string) error {
	var hasObs, hasNav bool
	names := make([]string, 0, len(outputs))
	for _, p := range outputs {
		name := filepath.Base(p)
		names = append(names, name)
		switch Classify(name) {
		case KindObservation:
			hasObs = true
		case KindNavigation:
			hasNav = true
		}
	}

	if !hasObs {
		return fmt.Errorf("%w for %s; collected outputs: %s", ErrNoObservation, label, strings.Join(names, ", "))
	}
	if !skipNav && !hasNav {
		return fmt.Errorf("%w for %s; collected outputs: %s", ErrNoNavigation, label, strings.Join(names, ", "))
	}
	return nil
}
