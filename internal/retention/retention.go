// Package retention marks stale backup files as superseded. Files are only
// ever renamed, never deleted.
package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// markers maps each recognized backup extension to its superseded variant.
// A name already carrying the superseded variant is never a candidate, so
// repeated rotation over the same directory is a no-op.
var markers = []struct {
	ext string
	old string
}{
	{".rsc", "-old.rsc"},
	{".backup", "-old.backup"},
}

// Rename records one completed rotation.
type Rename struct {
	From    string
	To      string
	AgeDays float64
}

// Failure records one entry that could not be inspected or renamed. It never
// aborts the scan of the remaining entries.
type Failure struct {
	Name string
	Err  error
}

// Report is the outcome of one rotation pass.
type Report struct {
	Renamed  []Rename
	Failures []Failure
}

// Rotate scans the immediate entries of dir and renames every backup file
// strictly older than maxAgeDays, inserting the superseded marker before the
// extension (foo.rsc becomes foo-old.rsc). Age is measured against now using
// the change timestamp (see fileTime). The returned error covers only the
// directory listing itself.
func Rotate(dir string, maxAgeDays int, now time.Time) (Report, error) {
	var report Report

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("scan backup directory: %w", err)
	}

	maxAge := time.Duration(maxAgeDays) * 24 * time.Hour

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext, old, ok := candidate(name)
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			report.Failures = append(report.Failures, Failure{Name: name, Err: fmt.Errorf("stat: %w", err)})
			continue
		}

		age := now.Sub(fileTime(info))
		if age <= maxAge {
			continue
		}

		newName := strings.TrimSuffix(name, ext) + old
		if err := os.Rename(filepath.Join(dir, name), filepath.Join(dir, newName)); err != nil {
			report.Failures = append(report.Failures, Failure{Name: name, Err: fmt.Errorf("rename: %w", err)})
			continue
		}
		report.Renamed = append(report.Renamed, Rename{
			From:    name,
			To:      newName,
			AgeDays: age.Hours() / 24,
		})
	}

	return report, nil
}

// candidate reports whether name is a rotation candidate: it ends with a
// recognized backup extension and does not already carry the superseded
// marker for that extension.
func candidate(name string) (ext, old string, ok bool) {
	for _, m := range markers {
		if strings.HasSuffix(name, m.ext) && !strings.HasSuffix(name, m.old) {
			return m.ext, m.old, true
		}
	}
	return "", "", false
}
