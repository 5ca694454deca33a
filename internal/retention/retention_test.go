package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeBackup(t *testing.T, dir, name string) time.Time {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("backup data"), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", name, err)
	}
	return fileTime(info)
}

func names(dir string, t *testing.T) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.Name()] = true
	}
	return out
}

func TestRotateRenamesOldBackups(t *testing.T) {
	dir := t.TempDir()
	ft := writeBackup(t, dir, "edge1_20260815_latest.rsc")
	writeBackup(t, dir, "edge1_20260815_latest.backup")

	now := ft.Add(6*24*time.Hour + time.Hour)
	report, err := Rotate(dir, 6, now)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(report.Renamed) != 2 {
		t.Fatalf("renamed %d files, want 2", len(report.Renamed))
	}
	if len(report.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}

	got := names(dir, t)
	if !got["edge1_20260815_latest-old.rsc"] || !got["edge1_20260815_latest-old.backup"] {
		t.Errorf("superseded names missing, have %v", got)
	}
	if got["edge1_20260815_latest.rsc"] || got["edge1_20260815_latest.backup"] {
		t.Errorf("original names still present, have %v", got)
	}
}

func TestRotateBoundaryIsStrict(t *testing.T) {
	dir := t.TempDir()
	ft := writeBackup(t, dir, "edge1_20260815_latest.rsc")

	// Exactly at the threshold: not rotated.
	report, err := Rotate(dir, 6, ft.Add(6*24*time.Hour))
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(report.Renamed) != 0 {
		t.Fatalf("file at exact threshold was rotated")
	}

	// One step past the threshold: rotated.
	report, err = Rotate(dir, 6, ft.Add(6*24*time.Hour+time.Nanosecond))
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(report.Renamed) != 1 {
		t.Fatalf("file past threshold was not rotated")
	}
}

func TestRotateFreshFileUntouched(t *testing.T) {
	dir := t.TempDir()
	writeBackup(t, dir, "edge1_20260823_latest.rsc")

	report, err := Rotate(dir, 6, time.Now())
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(report.Renamed) != 0 {
		t.Fatalf("fresh file was rotated: %+v", report.Renamed)
	}
}

func TestRotateIdempotent(t *testing.T) {
	dir := t.TempDir()
	ft := writeBackup(t, dir, "edge1_20260815_latest.backup")
	now := ft.Add(30 * 24 * time.Hour)

	first, err := Rotate(dir, 6, now)
	if err != nil {
		t.Fatalf("first Rotate: %v", err)
	}
	if len(first.Renamed) != 1 {
		t.Fatalf("first pass renamed %d, want 1", len(first.Renamed))
	}

	second, err := Rotate(dir, 6, now)
	if err != nil {
		t.Fatalf("second Rotate: %v", err)
	}
	if len(second.Renamed) != 0 {
		t.Fatalf("second pass renamed %d, want 0", len(second.Renamed))
	}
	if !names(dir, t)["edge1_20260815_latest-old.backup"] {
		t.Error("superseded file missing after second pass")
	}
}

func TestRotateSkipsUnrecognizedAndDirs(t *testing.T) {
	dir := t.TempDir()
	ft := writeBackup(t, dir, "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "archive.rsc"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	report, err := Rotate(dir, 6, ft.Add(365*24*time.Hour))
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if len(report.Renamed) != 0 {
		t.Fatalf("unexpected renames: %+v", report.Renamed)
	}
	got := names(dir, t)
	if !got["notes.txt"] || !got["archive.rsc"] {
		t.Errorf("entries were touched, have %v", got)
	}
}

func TestRotateMissingDirectory(t *testing.T) {
	if _, err := Rotate(filepath.Join(t.TempDir(), "nope"), 6, time.Now()); err == nil {
		t.Fatal("Rotate succeeded, want error")
	}
}

func TestCandidate(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"edge1_20260815_latest.rsc", true},
		{"edge1_20260815_latest.backup", true},
		{"edge1_20260815_latest-old.rsc", false},
		{"edge1_20260815_latest-old.backup", false},
		{"notes.txt", false},
		{"latest.rsc.tmp", false},
	}
	for _, tt := range tests {
		if _, _, ok := candidate(tt.name); ok != tt.want {
			t.Errorf("candidate(%q) = %v, want %v", tt.name, ok, tt.want)
		}
	}
}
