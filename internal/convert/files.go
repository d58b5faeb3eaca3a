// gnss2tec - GNSS Receiver Telemetry Logger and RINEX Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gnss2tec

package convert

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/gnss2tec/internal/hourbucket"
)

// WorkspaceDirName is the directory under data_dir holding per-attempt
// converter workspaces.
const WorkspaceDirName = ".convert-work"

// createWorkspace creates data_dir/.convert-work/<hourkey>_<pid>_<nanos>.
func createWorkspace(dataDir string, b hourbucket.Bucket, now time.Time) (string, error) {
	base := filepath.Join(dataDir, WorkspaceDirName)
	name := fmt.Sprintf("%s_%d_%d", b.Key(), os.Getpid(), now.UnixNano())
	path := filepath.Join(base, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("creating conversion workspace failed: %s: %w", path, err)
	}
	return path, nil
}

// hourInputs lists the non-empty segment files of hour b, sorted by name.
func hourInputs(dataDir string, b hourbucket.Bucket) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory failed: %s: %w", dataDir, err)
	}
	prefix := b.Key()
	var inputs []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || filepath.Ext(name) != hourbucket.SegmentExt || !strings.HasPrefix(name, prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading metadata for %s: %w", name, err)
		}
		if info.Size() == 0 {
			continue
		}
		inputs = append(inputs, filepath.Join(dataDir, name))
	}
	sort.Strings(inputs)
	return inputs, nil
}

// collectProducts returns the product files directly inside dir, sorted.
func collectProducts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory failed: %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsProduct(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

type productState struct {
	modTime time.Time
	size    int64
}

// snapshotProducts records mtime and size of every product in dir.
func snapshotProducts(dir string) (map[string]productState, error) {
	paths, err := collectProducts(dir)
	if err != nil {
		return nil, err
	}
	snap := make(map[string]productState, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading metadata failed: %s: %w", p, err)
		}
		snap[p] = productState{modTime: info.ModTime(), size: info.Size()}
	}
	return snap, nil
}

// changedProducts returns products that are new or modified in after.
func changedProducts(before, after map[string]productState) []string {
	var changed []string
	for p, st := range after {
		prev, ok := before[p]
		if !ok || !prev.modTime.Equal(st.modTime) || prev.size != st.size {
			changed = append(changed, p)
		}
	}
	sort.Strings(changed)
	return changed
}

// normalizeEpoch renames path so that the first run of exactly eleven
// digits (YYYYDDDHHMM) equals token. Names without such a run, or already
// carrying token, are returned unchanged.
//
// Any eleven-digit run is treated as the epoch, so an unrelated number of
// that length in a product name would be rewritten too.
func normalizeEpoch(path, token string) (string, error) {
	name := filepath.Base(path)
	start, end := findDigitRun(name, len(token))
	if start < 0 || name[start:end] == token {
		return path, nil
	}
	renamed := filepath.Join(filepath.Dir(path), name[:start]+token+name[end:])
	if _, err := os.Lstat(renamed); err == nil {
		return "", fmt.Errorf("normalizing epoch of %s: %s already exists", path, renamed)
	}
	if err := os.Rename(path, renamed); err != nil {
		return "", fmt.Errorf("normalizing epoch of %s: %w", path, err)
	}
	return renamed, nil
}

// findDigitRun returns the bounds of the first maximal run of exactly n
// ASCII digits in s, or -1, -1.
func findDigitRun(s string, n int) (int, int) {
	for i := 0; i < len(s); {
		if !isDigit(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j-i == n {
			return i, j
		}
		i = j
	}
	return -1, -1
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// archiveName returns name with "-n" inserted before the _MO/_MN content
// infix of a long RINEX name, or before the first '.' otherwise, so the
// result classifies like name.
func archiveName(name string, n int) string {
	if n == 0 {
		return name
	}
	suffix := "-" + strconv.Itoa(n)
	lower := strings.ToLower(name)
	for _, infix := range []string{"_mo.", "_mn."} {
		if i := strings.LastIndex(lower, infix); i > 0 {
			return name[:i] + suffix + name[i:]
		}
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i] + suffix + name[i:]
	}
	return name + suffix
}

// moveIntoDir moves src into dstDir without overwriting, choosing a
// disambiguated name on collision. Cross-device moves fall back to
// copy, fsync and remove.
func moveIntoDir(src, dstDir string) (string, error) {
	name := filepath.Base(src)
	for n := 0; ; n++ {
		dst := filepath.Join(dstDir, archiveName(name, n))
		if _, err := os.Lstat(dst); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking archive path %s: %w", dst, err)
		}

		if err := os.Rename(src, dst); err == nil {
			return dst, nil
		}
		err := copyFile(src, dst)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := os.Remove(src); err != nil {
			return "", fmt.Errorf("removing source file failed: %s: %w", src, err)
		}
		return dst, nil
	}
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copying file to archive failed: %s -> %s: %w", src, dst, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("copying file to archive failed: %s -> %s: %w", src, dst, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing archive file %s: %w", dst, cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying file to archive failed: %s -> %s: %w", src, dst, err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("syncing archive file %s: %w", dst, err)
	}
	return nil
}

// removeIfExists deletes path, ignoring a missing file.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing file failed: %s: %w", path, err)
	}
	return nil
}
