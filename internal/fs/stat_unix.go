//go:build unix

package fs

import (
	"io/fs"
	"syscall"
)

// deviceOf returns the device id holding the file, used to keep a scan on
// one filesystem.
func deviceOf(info fs.FileInfo) (uint64, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return uint64(stat.Dev), true
}
