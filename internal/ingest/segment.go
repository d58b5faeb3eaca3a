// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package ingest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/gnss2tec/internal/hourbucket"
)

const segmentWriterSize = 64 * 1024

// segmentStemLen is the length of a YYYYMMDD_HHMMSS stem.
var segmentStemLen = len(hourbucket.SegmentLayout)

// segment is one open append-only segment file.
type segment struct {
	path   string
	bucket hourbucket.Bucket
	file   *os.File
	w      *bufio.Writer
}

func openSegment(dir string, now time.Time) (*segment, error) {
	name, err := nextSegmentName(dir, now)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open segment %s: %w", path, err)
	}
	return &segment{
		path:   path,
		bucket: hourbucket.Of(now),
		file:   f,
		w:      bufio.NewWriterSize(f, segmentWriterSize),
	}, nil
}

func (s *segment) write(p []byte) error {
	if _, err := s.w.Write(p); err != nil {
		return fmt.Errorf("write segment %s: %w", s.path, err)
	}
	return nil
}

func (s *segment) flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush segment %s: %w", s.path, err)
	}
	return nil
}

func (s *segment) close() error {
	flushErr := s.flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("close segment %s: %w", s.path, closeErr)
	}
	return nil
}

// nextSegmentName returns a segment name for a logger starting at now that
// sorts after every existing segment of the same hour. Restarts within one
// second bump the timestamp; if the hour has no seconds left, a numeric
// suffix is appended to the last stem.
func nextSegmentName(dir string, now time.Time) (string, error) {
	b := hourbucket.Of(now)
	existing, err := ListSegments(dir, b)
	if err != nil {
		return "", err
	}
	name := hourbucket.SegmentName(now)
	if len(existing) == 0 {
		return name, nil
	}
	last := filepath.Base(existing[len(existing)-1])
	if name > last {
		return name, nil
	}

	if len(last) < segmentStemLen {
		return "", fmt.Errorf("unexpected segment name %q", last)
	}
	lastStem := last[:segmentStemLen]
	lastTime, err := time.ParseInLocation(hourbucket.SegmentLayout, lastStem, time.UTC)
	if err != nil {
		return "", fmt.Errorf("parse segment name %q: %w", last, err)
	}
	if next := lastTime.Add(time.Second); b.Contains(next) {
		return hourbucket.SegmentName(next), nil
	}

	seq := 1
	rest := strings.TrimSuffix(last[segmentStemLen:], hourbucket.SegmentExt)
	if n, err := strconv.Atoi(strings.TrimPrefix(rest, "_")); err == nil && rest != "" {
		seq = n + 1
	}
	return fmt.Sprintf("%s_%03d%s", lastStem, seq, hourbucket.SegmentExt), nil
}

// ListSegments returns the segment files of hour b in dir, sorted by name.
func ListSegments(dir string, b hourbucket.Bucket) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory %s: %w", dir, err)
	}
	prefix := b.Key()
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, prefix) || filepath.Ext(name) != hourbucket.SegmentExt {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}
