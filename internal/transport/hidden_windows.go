//go:build windows

package transport

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// IsHidden reports whether info carries the FILE_ATTRIBUTE_HIDDEN flag.
// Infos without Win32 attribute data (in-memory filesystems) fall back to
// the dot-prefix convention.
func IsHidden(info os.FileInfo) bool {
	if data, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return data.FileAttributes&windows.FILE_ATTRIBUTE_HIDDEN != 0
	}
	return isDotName(info.Name())
}
