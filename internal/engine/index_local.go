package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/filter"
	"github.com/bamsammich/fdeploy/internal/paths"
	"github.com/bamsammich/fdeploy/internal/transport"
)

// LocalIndexConfig controls the local tree walk.
type LocalIndexConfig struct {
	Fs         afero.Fs
	Root       string // publish folder, native path on Fs
	Rules      *filter.Rules
	Classifier *Classifier
}

// IndexLocal walks the publish folder depth-first, subfolders before files at
// each level. Hidden and ignored entries are skipped; ignored folders are not
// descended into. Any unreadable entry is recorded on rc, cancels the run,
// and is returned.
func IndexLocal(rc *RunContext, cfg LocalIndexConfig) ([]transport.FileEntry, error) {
	var failure error
	fail := func(err error) {
		if failure == nil {
			failure = err
		}
		rc.Fail(err)
	}

	info, err := cfg.Fs.Stat(cfg.Root)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = errNotFolder
		}
		fail(&Error{Kind: KindLocalIO, Op: "index publish folder", Path: cfg.Root, Err: err})
		return nil, failure
	}

	var entries []transport.FileEntry
	var walk func(dir, rel string)
	walk = func(dir, rel string) {
		if rc.Cancelled() {
			return
		}
		infos, err := afero.ReadDir(cfg.Fs, dir)
		if err != nil {
			fail(&Error{Kind: KindLocalIO, Op: "index local folder", Path: dir, Err: err})
			return
		}

		for _, fi := range infos {
			if !fi.IsDir() || transport.IsHidden(fi) {
				continue
			}
			childRel := joinRel(rel, fi.Name())
			if cfg.Rules.Ignored(childRel, true) {
				continue
			}
			entries = append(entries, transport.FileEntry{
				FullPath: filepath.Join(dir, fi.Name()),
				RelPath:  childRel,
				ModTime:  fi.ModTime(),
				IsDir:    true,
				Flags:    cfg.Classifier.Classify(childRel, true),
			})
			rc.Stats().AddLocalEntries(1)
			walk(filepath.Join(dir, fi.Name()), childRel)
			if rc.Cancelled() {
				return
			}
		}

		for _, fi := range infos {
			if fi.IsDir() || transport.IsHidden(fi) {
				continue
			}
			childRel := joinRel(rel, fi.Name())
			if cfg.Rules.Ignored(childRel, false) {
				continue
			}
			full := filepath.Join(dir, fi.Name())
			if fi.Mode()&os.ModeSymlink != 0 {
				resolved, err := cfg.Fs.Stat(full)
				if err != nil {
					fail(&Error{Kind: KindLocalIO, Op: "index local file", Path: childRel, Err: err})
					return
				}
				if resolved.IsDir() {
					slog.Warn("skipping symlinked folder", "path", childRel)
					continue
				}
				fi = resolved
			}
			if !fi.Mode().IsRegular() {
				fail(&Error{Kind: KindLocalIO, Op: "index local file", Path: childRel,
					Err: fmt.Errorf("unsupported file type %s", fi.Mode().Type())})
				return
			}
			entries = append(entries, transport.FileEntry{
				FullPath: full,
				RelPath:  childRel,
				ModTime:  fi.ModTime(),
				Size:     fi.Size(),
				Flags:    cfg.Classifier.Classify(childRel, false),
			})
			rc.Stats().AddLocalEntries(1)
		}
		rc.Emit(event.Event{Type: event.IndexProgress, Phase: event.PhaseIndex, Path: rel, Size: int64(len(entries))})
	}
	walk(cfg.Root, "")

	if failure == nil && rc.Cancelled() {
		failure = rc.Context().Err()
	}
	return entries, failure
}

func joinRel(rel, name string) string {
	if rel == "" {
		return name
	}
	return rel + "/" + paths.Clean(name)
}
