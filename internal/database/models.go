package database

import "time"

// BackupRun is one full pass over the fleet: dispatch, barrier, rotation.
type BackupRun struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	StartedAt  time.Time `gorm:"not null" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Routers    int       `gorm:"not null;default:0" json:"routers"`
	Succeeded  int       `gorm:"not null;default:0" json:"succeeded"`
	Failed     int       `gorm:"not null;default:0" json:"failed"`
	Rotated    int       `gorm:"not null;default:0" json:"rotated"`

	Files     []BackupFile    `gorm:"foreignKey:RunID" json:"-"`
	Rotations []RotationEvent `gorm:"foreignKey:RunID" json:"-"`
}

// BackupFile records the outcome of one allow-listed file on one router.
type BackupFile struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string    `gorm:"index;size:36;not null" json:"run_id"`
	Router     string    `gorm:"not null" json:"router"`
	Address    string    `json:"address"`
	RemoteName string    `gorm:"not null" json:"remote_name"`
	LocalPath  string    `json:"local_path"`
	Size       int64     `json:"size"`
	Outcome    string    `gorm:"not null" json:"outcome"` // fetched, absent, not found, ...
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RotationEvent records one superseded-marker rename.
type RotationEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID     string    `gorm:"index;size:36;not null" json:"run_id"`
	OldName   string    `gorm:"not null" json:"old_name"`
	NewName   string    `gorm:"not null" json:"new_name"`
	AgeDays   float64   `json:"age_days"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
