package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/transport"
)

// PoolConfig controls the transfer worker pool.
type PoolConfig struct {
	Workers int
	// SessionPerWorker gives each worker its own store from Connector for
	// its lifetime. Otherwise every worker shares Shared.
	SessionPerWorker bool
	Connector        transport.Connector
	Shared           transport.Store
}

// WorkerPool runs one operation per entry across a fixed set of workers.
type WorkerPool struct {
	rc      *RunContext
	cfg     PoolConfig
	tcfg    *TransferConfig
	folders *folderCache
}

// NewWorkerPool creates a pool. folders is shared with every other Transfer
// of the run so a folder is created once.
func NewWorkerPool(rc *RunContext, cfg PoolConfig, tcfg *TransferConfig, folders *folderCache) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &WorkerPool{rc: rc, cfg: cfg, tcfg: tcfg, folders: folders}
}

// Run applies fn to every entry and blocks until all workers exit. Each
// worker checks for cancellation before taking a task, so a failure stops
// new work while in-flight transfers finish. fn records its own failures on
// the run.
func (wp *WorkerPool) Run(phase event.Phase, entries []transport.FileEntry, fn func(t *Transfer, e transport.FileEntry) error) {
	if len(entries) == 0 || wp.rc.Cancelled() {
		return
	}
	tasks := make(chan transport.FileEntry)
	n := min(wp.cfg.Workers, len(entries))

	var wg sync.WaitGroup
	for id := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wp.work(id+1, phase, tasks, fn)
		}()
	}

	done := wp.rc.Context().Done()
feed:
	for _, e := range entries {
		select {
		case tasks <- e:
		case <-done:
			break feed
		}
	}
	close(tasks)
	wg.Wait()
}

func (wp *WorkerPool) work(id int, phase event.Phase, tasks <-chan transport.FileEntry, fn func(*Transfer, transport.FileEntry) error) {
	store, release, err := wp.open()
	if err != nil {
		wp.rc.Fail(err)
		for range tasks {
			// drain so the feeder never blocks
		}
		return
	}
	defer release()

	t := newTransfer(wp.rc, wp.tcfg, store, wp.folders, id)
	t.phase = phase
	for e := range tasks {
		if wp.rc.Cancelled() {
			continue
		}
		if err := fn(t, e); err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("task failed", "worker", id, "path", e.RelPath, "error", err)
		}
	}
}

func (wp *WorkerPool) open() (transport.Store, func(), error) {
	if !wp.cfg.SessionPerWorker || wp.cfg.Connector == nil {
		return wp.cfg.Shared, func() {}, nil
	}
	// Sessions outlive the run context so cancellation never tears one down
	// mid-call.
	store, err := wp.cfg.Connector.Connect(context.WithoutCancel(wp.rc.Context()))
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Debug("closing worker session", "error", err)
		}
	}, nil
}
