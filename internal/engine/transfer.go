package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/paths"
	"github.com/bamsammich/fdeploy/internal/transport"
)

// DefaultChunkSize is the upload write size when none is configured.
const DefaultChunkSize = 1 << 20

// TransferConfig is shared by every Transfer of a run.
type TransferConfig struct {
	LocalFs    afero.Fs
	RemoteRoot string // share-relative
	Retry      RetryPolicy
	ChunkSize  int           // bytes per positioned write
	Limiter    *rate.Limiter // nil = unlimited, shared by all workers
	Verify     bool          // read back and compare BLAKE3 after upload
	DryRun     bool
}

// folderCache remembers remote folders known to exist and collapses
// concurrent creation of the same folder into one call.
type folderCache struct {
	known sync.Map // lower-cased share path -> struct{}
	group singleflight.Group
}

// Transfer performs remote I/O for one worker over one store.
type Transfer struct {
	rc       *RunContext
	cfg      *TransferConfig
	store    transport.Store
	folders  *folderCache
	workerID int
	phase    event.Phase
}

func newTransfer(rc *RunContext, cfg *TransferConfig, store transport.Store, folders *folderCache, workerID int) *Transfer {
	return &Transfer{rc: rc, cfg: cfg, store: store, folders: folders, workerID: workerID}
}

func (t *Transfer) remote(rel string) string {
	return paths.Join(t.cfg.RemoteRoot, rel)
}

// EnsurePathExists creates every missing segment of the remote folder rel,
// from the share root down. "Already exists" counts as success, so racing
// workers creating the same ancestor both succeed.
func (t *Transfer) EnsurePathExists(rel string) error {
	segs := paths.Segments(t.remote(rel))
	cur := ""
	for _, seg := range segs {
		cur = paths.Join(cur, seg)
		if err := t.ensureFolder(cur); err != nil {
			return err
		}
	}
	return nil
}

// CreateFolder deploys the local folder rel. In a dry run it only reports it.
func (t *Transfer) CreateFolder(rel string) error {
	if t.rc.Cancelled() {
		return context.Canceled
	}
	if t.cfg.DryRun {
		t.rc.Emit(event.Event{Type: event.FolderCreated, Phase: t.phase, Path: rel, WorkerID: t.workerID})
		return nil
	}
	return t.EnsurePathExists(rel)
}

func (t *Transfer) ensureFolder(sharePath string) error {
	key := strings.ToLower(sharePath)
	if _, ok := t.folders.known.Load(key); ok {
		return nil
	}

	_, err, _ := t.folders.group.Do(key, func() (any, error) {
		rel, _ := paths.Rel(t.cfg.RemoteRoot, sharePath)
		created := false
		err := t.rc.Retry(t.cfg.Retry, "create server folder", sharePath, func(int) error {
			e, err := t.store.Stat(sharePath)
			if err == nil {
				if !e.IsDir {
					return protocolError("create server folder", sharePath, errNotFolder)
				}
				return nil
			}
			if !transport.IsNotExist(err) {
				return protocolError("probe server folder", sharePath, err)
			}
			if err := t.store.Mkdir(sharePath); err != nil && !transport.IsExist(err) {
				return protocolError("create server folder", sharePath, err)
			}
			created = true
			return nil
		})
		if err != nil {
			return nil, err
		}
		t.folders.known.Store(key, struct{}{})
		if created && paths.IsUnder(sharePath, t.cfg.RemoteRoot) {
			t.rc.Stats().AddFoldersCreated(1)
			t.rc.Emit(event.Event{Type: event.FolderCreated, Phase: t.phase, Path: rel, WorkerID: t.workerID})
		}
		return nil, nil
	})
	return err
}

// CopyFile uploads the local file e to the same relative path on the server.
func (t *Transfer) CopyFile(e transport.FileEntry) error {
	return t.CopyFileTo(e, e.RelPath)
}

// CopyFileTo uploads the local file e to remoteRel and stamps the remote
// last-write time with the local one. Every failure retries the whole file
// from a fresh open.
func (t *Transfer) CopyFileTo(e transport.FileEntry, remoteRel string) error {
	open := func() (io.ReadCloser, error) { return t.cfg.LocalFs.Open(e.FullPath) }
	return t.upload(remoteRel, open, e.Size, e.ModTime)
}

// CopyBytes uploads data to remoteRel with the same semantics as CopyFileTo.
func (t *Transfer) CopyBytes(data []byte, remoteRel string, mtime time.Time) error {
	open := func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil }
	return t.upload(remoteRel, open, int64(len(data)), mtime)
}

func (t *Transfer) upload(remoteRel string, open func() (io.ReadCloser, error), size int64, mtime time.Time) error {
	if t.rc.Cancelled() {
		return context.Canceled
	}
	if t.cfg.DryRun {
		t.rc.Emit(event.Event{Type: event.FileCopied, Phase: t.phase, Path: remoteRel, Size: size, WorkerID: t.workerID})
		return nil
	}
	if err := t.EnsurePathExists(paths.Parent(remoteRel)); err != nil {
		return err
	}

	name := t.remote(remoteRel)
	chunk := t.cfg.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	buf := make([]byte, chunk)
	err := t.rc.Retry(t.cfg.Retry, "write file", remoteRel, func(int) error {
		return t.uploadOnce(name, remoteRel, open, buf, mtime)
	})
	if err != nil {
		return err
	}

	t.rc.Stats().AddFilesCopied(1)
	t.rc.Stats().AddBytesCopied(size)
	t.rc.Emit(event.Event{Type: event.FileCopied, Phase: t.phase, Path: remoteRel, Size: size, WorkerID: t.workerID})
	return nil
}

//nolint:revive // cognitive-complexity: sequential open/write/stamp/verify steps
func (t *Transfer) uploadOnce(name, rel string, open func() (io.ReadCloser, error), buf []byte, mtime time.Time) error {
	src, err := open()
	if err != nil {
		return localIOError("read local file", rel, err)
	}
	defer src.Close()

	create := false
	existing, err := t.store.Stat(name)
	switch {
	case transport.IsNotExist(err):
		create = true
	case err != nil:
		return protocolError("probe server file", name, err)
	case existing.IsDir:
		return protocolError("write file", name, errIsFolder)
	}

	dst, err := t.store.OpenWrite(name, create)
	if err != nil {
		return protocolError("open server file", name, err)
	}

	var off int64
	for {
		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			if err := waitBandwidth(t.rc.Context(), t.cfg.Limiter, n); err != nil {
				dst.Close()
				return protocolError("write file", name, err)
			}
			if _, err := dst.WriteAt(buf[:n], off); err != nil {
				dst.Close()
				return protocolError("write file", name, err)
			}
			off += int64(n)
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			dst.Close()
			return localIOError("read local file", rel, rerr)
		}
	}
	if err := dst.Close(); err != nil {
		return protocolError("close server file", name, err)
	}

	if err := t.store.Chtimes(name, mtime); err != nil {
		return protocolError("set last write time", name, err)
	}

	if t.cfg.Verify {
		return t.verify(name, rel, open)
	}
	return nil
}

func (t *Transfer) verify(name, rel string, open func() (io.ReadCloser, error)) error {
	src, err := open()
	if err != nil {
		return localIOError("read local file", rel, err)
	}
	want, err := transport.HashReader(src)
	src.Close()
	if err != nil {
		return localIOError("hash local file", rel, err)
	}
	got, err := transport.HashFile(t.store, name)
	if err != nil {
		return protocolError("read back server file", name, err)
	}
	if got != want {
		return protocolError("verify server file", name, errVerifyHash)
	}
	return nil
}

// Delete removes the remote file or empty folder at rel. A target that is
// already gone counts as success.
func (t *Transfer) Delete(rel string, isDir bool) error {
	if t.rc.Cancelled() {
		return context.Canceled
	}
	name := t.remote(rel)
	if !t.cfg.DryRun {
		err := t.rc.Retry(t.cfg.Retry, "delete", rel, func(int) error {
			err := t.store.Remove(name)
			if err == nil {
				return nil
			}
			if _, serr := t.store.Stat(name); transport.IsNotExist(serr) {
				return nil
			}
			if isDir && transport.IsNotEmpty(err) {
				// Something appeared in the folder after it was listed.
				return &permanent{err: protocolError("delete", name, err)}
			}
			return protocolError("delete", name, err)
		})
		if err != nil {
			return err
		}
	}

	if isDir {
		t.rc.Stats().AddFoldersDeleted(1)
		t.rc.Emit(event.Event{Type: event.FolderDeleted, Phase: t.phase, Path: rel, WorkerID: t.workerID})
	} else {
		t.rc.Stats().AddFilesDeleted(1)
		t.rc.Emit(event.Event{Type: event.FileDeleted, Phase: t.phase, Path: rel, WorkerID: t.workerID})
	}
	return nil
}

// DeleteFolderRecursive deletes every tracked file under folder, then every
// tracked subfolder deepest first, then folder itself. Deleted entries are
// dropped from ix. A folder that still holds entries the index never saw
// (hidden files, or files ignored by name) is kept along with its ancestors,
// so those entries are never destroyed.
func (t *Transfer) DeleteFolderRecursive(folder string, ix *RemoteIndex) error {
	files, folders := ix.Under(folder)
	gone := make(map[string]struct{}, len(files)+len(folders)+1)
	for _, f := range files {
		if err := t.Delete(f.RelPath, false); err != nil {
			return err
		}
		ix.Remove(f.RelPath)
		gone[joinKey(f.RelPath)] = struct{}{}
	}

	dirs := make([]string, 0, len(folders)+1)
	for _, d := range folders {
		dirs = append(dirs, d.RelPath)
	}
	dirs = append(dirs, folder)
	for _, rel := range dirs {
		extra, err := t.untrackedChild(rel, gone)
		if err != nil {
			return err
		}
		if extra != "" {
			slog.Warn("keeping orphan folder with untracked content", "folder", rel, "entry", extra)
			continue
		}
		if err := t.Delete(rel, true); err != nil {
			return err
		}
		ix.Remove(rel)
		gone[joinKey(rel)] = struct{}{}
	}
	return nil
}

// untrackedChild returns the relative path of a child of rel that is not in
// gone, or "" when every child has been deleted. A dry run deletes nothing,
// so gone stands in for the share's state.
func (t *Transfer) untrackedChild(rel string, gone map[string]struct{}) (string, error) {
	if t.rc.Cancelled() {
		return "", context.Canceled
	}
	var children []transport.FileEntry
	err := t.rc.Retry(t.cfg.Retry, "list folder", rel, func(int) error {
		var err error
		children, err = t.store.ReadDir(t.remote(rel))
		if transport.IsNotExist(err) {
			children = nil
			return nil
		}
		if err != nil {
			return protocolError("list folder", t.remote(rel), err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	for _, c := range children {
		child := paths.Clean(rel) + "/" + paths.Base(c.FullPath)
		if _, ok := gone[joinKey(child)]; !ok {
			return child, nil
		}
	}
	return "", nil
}
