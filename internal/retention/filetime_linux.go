//go:build linux

package retention

import (
	"os"
	"syscall"
	"time"
)

// fileTime returns the change time (ctime) of a file. Linux does not expose
// a true creation time through os.FileInfo, so ctime is the closest stand-in:
// it is set when the backup is written and is not user-settable.
func fileTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info.ModTime()
}
