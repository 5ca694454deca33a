package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/routerops/fleetbackup/internal/config"
)

var DB *gorm.DB

func Init() error {
	dbPath := config.Cfg.DatabasePath
	if dbDir := filepath.Dir(dbPath); dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}

	if err := DB.AutoMigrate(&BackupRun{}, &BackupFile{}, &RotationEvent{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	return nil
}

func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Run history helpers

func CreateRun(run *BackupRun) error {
	return DB.Create(run).Error
}

func FinishRun(run *BackupRun) error {
	return DB.Save(run).Error
}

func RecordFile(file *BackupFile) error {
	return DB.Create(file).Error
}

func RecordRotation(ev *RotationEvent) error {
	return DB.Create(ev).Error
}

func ListRuns(limit int) ([]BackupRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []BackupRun
	if err := DB.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func GetRun(id string) (*BackupRun, error) {
	var run BackupRun
	if err := DB.First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func GetRunFiles(runID string) ([]BackupFile, error) {
	var files []BackupFile
	if err := DB.Where("run_id = ?", runID).Order("id").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func GetRunRotations(runID string) ([]RotationEvent, error) {
	var events []RotationEvent
	if err := DB.Where("run_id = ?", runID).Order("id").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
