//go:build !linux

package retention

import (
	"os"
	"time"
)

// fileTime falls back to the modification time on platforms where the stat
// structure is not portable. Backups are written once and never modified, so
// mtime tracks creation closely enough for day-granularity retention.
func fileTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
