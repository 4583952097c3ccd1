package transport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/bamsammich/fdeploy/internal/paths"
)

// Compile-time interface check.
var _ Store = (*LocalStore)(nil)

// LocalStore is a Store over a directory of an afero.Fs. It serves mounted
// shares and plain target directories, and stands in for a share in tests.
type LocalStore struct {
	fs   afero.Fs
	root string
}

// NewLocalStore returns a store whose share root is root on fs.
func NewLocalStore(fs afero.Fs, root string) *LocalStore {
	return &LocalStore{fs: fs, root: root}
}

func (s *LocalStore) abs(name string) string {
	return filepath.Join(s.root, paths.ToNative(paths.Clean(name)))
}

func (s *LocalStore) Stat(name string) (FileEntry, error) {
	info, err := s.fs.Stat(s.abs(name))
	if err != nil {
		return FileEntry{}, err
	}
	return localInfoToEntry(info, paths.ToShare(name)), nil
}

func (s *LocalStore) ReadDir(name string) ([]FileEntry, error) {
	dir := paths.ToShare(name)
	infos, err := afero.ReadDir(s.fs, s.abs(name))
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", s.abs(name), err)
	}
	out := make([]FileEntry, 0, len(infos))
	for _, info := range infos {
		out = append(out, localInfoToEntry(info, paths.Join(dir, info.Name())))
	}
	return out, nil
}

func (s *LocalStore) Mkdir(name string) error {
	return s.fs.Mkdir(s.abs(name), 0o755)
}

//nolint:ireturn // implements Store interface
func (s *LocalStore) OpenWrite(name string, create bool) (WriteFile, error) {
	flag := os.O_WRONLY | os.O_TRUNC
	if create {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	return s.fs.OpenFile(s.abs(name), flag, 0o644)
}

func (s *LocalStore) OpenRead(name string) (io.ReadCloser, error) {
	return s.fs.Open(s.abs(name))
}

func (s *LocalStore) Chtimes(name string, mtime time.Time) error {
	return s.fs.Chtimes(s.abs(name), mtime, mtime)
}

// Remove deletes a file or an empty folder. Some afero backends remove
// non-empty folders, so emptiness is checked here to match a share.
func (s *LocalStore) Remove(name string) error {
	p := s.abs(name)
	info, err := s.fs.Stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		empty, err := afero.IsEmpty(s.fs, p)
		if err != nil {
			return err
		}
		if !empty {
			return &os.PathError{Op: "remove", Path: p, Err: ErrNotEmpty}
		}
	}
	return s.fs.Remove(p)
}

func (*LocalStore) Close() error { return nil }

func localInfoToEntry(info os.FileInfo, fullPath string) FileEntry {
	e := FileEntry{
		FullPath: fullPath,
		ModTime:  info.ModTime(),
		IsDir:    info.IsDir(),
		Hidden:   IsHidden(info),
	}
	if !e.IsDir {
		e.Size = info.Size()
	}
	return e
}
