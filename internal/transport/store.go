package transport

import (
	"io"
	"time"
)

// WriteFile is an open remote file accepting positioned writes.
type WriteFile interface {
	io.WriterAt
	io.Closer
}

// Store is a file store rooted at a share. Names are share-relative and may
// use either separator; implementations convert them to their own convention.
type Store interface {
	// Stat returns metadata for a single name. Missing names return an error
	// for which IsNotExist is true.
	Stat(name string) (FileEntry, error)

	// ReadDir lists the immediate children of a folder. "." and ".." are
	// never returned. Hidden children are returned with Hidden set.
	ReadDir(name string) ([]FileEntry, error)

	// Mkdir creates one folder. An existing folder yields an error for which
	// IsExist is true.
	Mkdir(name string) error

	// OpenWrite opens name for writing. create selects the create disposition
	// (fails if present) over overwrite (truncates, fails if absent).
	OpenWrite(name string, create bool) (WriteFile, error)

	// OpenRead opens a file for reading.
	OpenRead(name string) (io.ReadCloser, error)

	// Chtimes sets the last-write time of name.
	Chtimes(name string, mtime time.Time) error

	// Remove deletes a file or an empty folder.
	Remove(name string) error

	// Close releases the store. It is safe to call more than once.
	Close() error
}
