package transport

import (
	"strings"
	"time"

	"github.com/bamsammich/fdeploy/internal/paths"
)

// Flags classifies an entry for the deployment phases. Flags are computed
// once when the entry is indexed and never change afterwards.
type Flags uint8

const (
	// FlagSafeCopy marks an entry that may be synced while the site is online.
	FlagSafeCopy Flags = 1 << iota
	// FlagStatic marks an entry that is always overwritten in its own phase,
	// bypassing the unchanged-skip test.
	FlagStatic
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// FileEntry describes one file or folder in either the local or the remote tree.
type FileEntry struct {
	ModTime  time.Time
	FullPath string // absolute path in the entry's own tree
	RelPath  string // comparable form, the join key between trees
	Size     int64  // 0 for folders
	IsDir    bool
	Hidden   bool
	Flags    Flags
}

// Name returns the last segment of the relative path.
func (e FileEntry) Name() string { return paths.Base(e.RelPath) }

// ParentPath returns the relative path of the enclosing folder.
func (e FileEntry) ParentPath() string { return paths.Parent(e.RelPath) }

// Level returns the depth of the entry below the tree root.
func (e FileEntry) Level() int { return paths.Depth(e.RelPath) }

// IsFile reports whether the entry is a regular file.
func (e FileEntry) IsFile() bool { return !e.IsDir }

// LastWriteTime returns the modification time as a Windows FILETIME so local
// and remote entries compare on one integer scale.
func (e FileEntry) LastWriteTime() int64 { return FileTime(e.ModTime) }

func isDotName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
