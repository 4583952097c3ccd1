package engine

import (
	"runtime"
	"sync"

	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/filter"
	"github.com/bamsammich/fdeploy/internal/paths"
	"github.com/bamsammich/fdeploy/internal/transport"
)

// RemoteIndexConfig controls the remote tree walk.
type RemoteIndexConfig struct {
	Store   transport.Store
	Root    string // share-relative remote root
	Rules   *filter.Rules
	Workers int
}

// IndexRemote walks the remote root, fanning sibling folders out across
// Workers goroutines that share one store. "." and "..", hidden and ignored
// entries are skipped; ignored folders are not descended into. A remote root
// that does not exist yet yields an empty index. A failed folder query is
// recorded on rc, cancels the run, and is returned.
func IndexRemote(rc *RunContext, cfg RemoteIndexConfig) ([]transport.FileEntry, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = min(runtime.NumCPU(), 8)
	}
	root := paths.ToShare(cfg.Root)

	if root != "" {
		info, err := cfg.Store.Stat(root)
		switch {
		case transport.IsNotExist(err):
			return nil, nil
		case err != nil:
			e := &Error{Kind: KindIndex, Op: "query remote root", Path: root, Err: err}
			rc.Fail(e)
			return nil, e
		case !info.IsDir:
			e := &Error{Kind: KindIndex, Op: "query remote root", Path: root, Err: errNotFolder}
			rc.Fail(e)
			return nil, e
		}
	}

	ix := &remoteIndexer{rc: rc, cfg: cfg, root: root}
	ix.run()
	if ix.failure == nil && rc.Cancelled() {
		ix.failure = rc.Context().Err()
	}
	return ix.entries, ix.failure
}

type remoteIndexer struct {
	rc   *RunContext
	cfg  RemoteIndexConfig
	root string

	mu      sync.Mutex
	entries []transport.FileEntry
	failure error
}

func (ix *remoteIndexer) run() {
	workQueue := make(chan string, ix.cfg.Workers*2)
	var outstanding sync.WaitGroup // folders queued but not yet listed

	var workerWg sync.WaitGroup
	for range ix.cfg.Workers {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for dir := range workQueue {
				ix.scanDir(dir, workQueue, &outstanding)
				outstanding.Done()
			}
		}()
	}

	outstanding.Add(1)
	workQueue <- ix.root

	outstanding.Wait()
	close(workQueue)
	workerWg.Wait()
}

func (ix *remoteIndexer) scanDir(dir string, workQueue chan<- string, outstanding *sync.WaitGroup) {
	if ix.rc.Cancelled() {
		return
	}

	children, err := ix.cfg.Store.ReadDir(dir)
	if err != nil {
		rel, _ := paths.Rel(ix.root, dir)
		e := &Error{Kind: KindIndex, Op: "index server folder", Path: "/" + rel, Err: err}
		ix.mu.Lock()
		if ix.failure == nil {
			ix.failure = e
		}
		ix.mu.Unlock()
		ix.rc.Fail(e)
		return
	}

	var found []transport.FileEntry
	var subdirs []string
	for _, e := range children {
		if e.Hidden {
			continue
		}
		rel, ok := paths.Rel(ix.root, e.FullPath)
		if !ok || rel == "" {
			continue
		}
		if ix.cfg.Rules.Ignored(rel, e.IsDir) {
			continue
		}
		e.RelPath = rel
		found = append(found, e)
		if e.IsDir {
			subdirs = append(subdirs, e.FullPath)
		}
	}

	ix.mu.Lock()
	ix.entries = append(ix.entries, found...)
	total := len(ix.entries)
	ix.mu.Unlock()
	ix.rc.Stats().AddRemoteEntries(int64(len(found)))
	ix.rc.Emit(event.Event{Type: event.IndexProgress, Phase: event.PhaseIndex, Path: paths.ToSlash(dir), Size: int64(total)})

	for _, sub := range subdirs {
		outstanding.Add(1)
		select {
		case workQueue <- sub:
		default:
			// Queue full: every worker may be blocked here, so list inline.
			ix.scanDir(sub, workQueue, outstanding)
			outstanding.Done()
		}
	}
}
