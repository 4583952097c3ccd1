//go:build !windows

package transport

import "os"

// IsHidden reports whether info names a dotfile, the hidden convention on
// Unix-like systems.
func IsHidden(info os.FileInfo) bool {
	return isDotName(info.Name())
}
