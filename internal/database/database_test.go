package database

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	var err error
	DB, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test DB: %v", err)
	}
	if err := DB.AutoMigrate(&BackupRun{}, &BackupFile{}, &RotationEvent{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := DB.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		DB = nil
	})
}

func TestRunLifecycle(t *testing.T) {
	setupTestDB(t)

	run := &BackupRun{ID: "run-1", StartedAt: time.Now(), Routers: 2}
	if err := CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	run.Succeeded = 1
	run.Failed = 1
	run.FinishedAt = time.Now()
	if err := FinishRun(run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Succeeded != 1 || got.Failed != 1 {
		t.Errorf("run counts = %d/%d, want 1/1", got.Succeeded, got.Failed)
	}
}

func TestRecordAndQueryFiles(t *testing.T) {
	setupTestDB(t)

	if err := CreateRun(&BackupRun{ID: "run-1", StartedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	files := []BackupFile{
		{RunID: "run-1", Router: "edge1", RemoteName: "latest.rsc", Outcome: "fetched", Size: 42},
		{RunID: "run-1", Router: "edge1", RemoteName: "latest.backup", Outcome: "absent"},
	}
	for i := range files {
		if err := RecordFile(&files[i]); err != nil {
			t.Fatalf("RecordFile: %v", err)
		}
	}

	got, err := GetRunFiles("run-1")
	if err != nil {
		t.Fatalf("GetRunFiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d files, want 2", len(got))
	}
	if got[0].RemoteName != "latest.rsc" || got[0].Outcome != "fetched" {
		t.Errorf("unexpected first file: %+v", got[0])
	}
}

func TestListRunsOrdering(t *testing.T) {
	setupTestDB(t)

	base := time.Now()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := &BackupRun{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := CreateRun(run); err != nil {
			t.Fatalf("CreateRun %s: %v", id, err)
		}
	}

	runs, err := ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-c" {
		t.Errorf("newest run = %s, want run-c", runs[0].ID)
	}
}

func TestRecordRotation(t *testing.T) {
	setupTestDB(t)

	if err := CreateRun(&BackupRun{ID: "run-1", StartedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	ev := &RotationEvent{RunID: "run-1", OldName: "edge1_20260815_latest.rsc", NewName: "edge1_20260815_latest-old.rsc", AgeDays: 7.5}
	if err := RecordRotation(ev); err != nil {
		t.Fatalf("RecordRotation: %v", err)
	}

	events, err := GetRunRotations("run-1")
	if err != nil {
		t.Fatalf("GetRunRotations: %v", err)
	}
	if len(events) != 1 || events[0].NewName != "edge1_20260815_latest-old.rsc" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
