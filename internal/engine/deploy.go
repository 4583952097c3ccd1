package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/filter"
	"github.com/bamsammich/fdeploy/internal/paths"
	"github.com/bamsammich/fdeploy/internal/stats"
	"github.com/bamsammich/fdeploy/internal/transport"
)

// FileCopy uploads one publish-folder file to an arbitrary remote path after
// the main sync, always overwriting.
type FileCopy struct {
	Source      string // relative to the publish folder
	Destination string // relative to the remote root
}

// Config describes one deployment.
type Config struct {
	RunID   string // "" = random UUID
	Events  chan<- event.Event
	Clock   clockwork.Clock
	Stats   *stats.Collector
	Metrics *stats.Metrics

	Build *BuildConfig // nil skips the build

	LocalFs    afero.Fs // nil = OS filesystem
	LocalRoot  string   // publish folder
	RemoteRoot string   // share-relative site folder
	Connector  transport.Connector

	Ignore     filter.Config
	Classes    ClassifyConfig
	FileCopies []FileCopy

	DeleteOrphans bool
	TakeOffline   bool
	Offline       OfflinePage
	OfflineDelay  time.Duration
	OnlineDelay   time.Duration

	Retry            RetryPolicy
	Workers          int // 0 = runtime.NumCPU()
	SessionPerWorker bool
	ChunkSize        int
	BandwidthLimit   int64 // bytes per second, 0 = unlimited
	Verify           bool
	DryRun           bool
}

// Result is the outcome of a deployment.
type Result struct {
	RunID  string
	Plan   *Plan
	Stats  stats.Snapshot
	Errors []error
	Err    error // nil iff the run was never cancelled
}

// Deploy runs the pipeline:
//
//	Build -> Connect -> IndexLocal || IndexRemote -> Plan -> CopySafe ->
//	TakeOffline -> CopyStatic -> Copy -> FileCopies -> DeleteOrphans ->
//	BringOnline -> Disconnect
//
// A cancelled run skips every remaining stage except Disconnect. Nothing
// already written is rolled back.
func Deploy(ctx context.Context, cfg Config) Result {
	if cfg.LocalFs == nil {
		cfg.LocalFs = afero.NewOsFs()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	rc := NewRunContext(ctx, RunOptions{RunID: cfg.RunID, Events: cfg.Events, Clock: cfg.Clock, Stats: cfg.Stats})
	d := &deployer{
		rc:      rc,
		cfg:     cfg,
		rules:   filter.New(cfg.Ignore),
		folders: &folderCache{},
		tcfg: &TransferConfig{
			LocalFs:    cfg.LocalFs,
			RemoteRoot: paths.ToShare(cfg.RemoteRoot),
			Retry:      cfg.Retry,
			ChunkSize:  cfg.ChunkSize,
			Limiter:    NewBWLimiter(cfg.BandwidthLimit),
			Verify:     cfg.Verify,
			DryRun:     cfg.DryRun,
		},
	}

	start := rc.Clock().Now()
	slog.Info("deployment started", "run", rc.RunID(),
		"local", cfg.LocalRoot, "remote", cfg.RemoteRoot, "dry_run", cfg.DryRun)

	d.run()

	res := Result{
		RunID:  rc.RunID(),
		Plan:   d.plan,
		Stats:  rc.Stats().Snapshot(),
		Errors: rc.Errors(),
	}
	if rc.Cancelled() {
		res.Err = rc.Err()
	}
	rc.Cancel()

	if cfg.Metrics != nil {
		cfg.Metrics.Record(res.Stats, res.Err == nil, rc.Clock().Now())
	}
	slog.Info("deployment finished", "run", res.RunID, "ok", res.Err == nil,
		"elapsed", rc.Clock().Since(start), "stats", res.Stats.String())
	return res
}

type deployer struct {
	rc      *RunContext
	cfg     Config
	rules   *filter.Rules
	tcfg    *TransferConfig
	folders *folderCache

	store  transport.Store
	local  []transport.FileEntry
	remote []transport.FileEntry
	plan   *Plan
}

func (d *deployer) run() {
	if d.cfg.Build != nil && !d.stage(event.PhaseBuild, d.build) {
		return
	}
	ok := d.stage(event.PhaseConnect, d.connect)
	if d.store != nil {
		defer d.disconnect()
	}
	if !ok {
		return
	}

	steps := []struct {
		phase event.Phase
		on    bool
		fn    func()
	}{
		{event.PhaseIndex, true, d.index},
		{event.PhasePlan, true, d.makePlan},
		{event.PhaseCopySafe, true, d.copySafe},
		{event.PhaseOffline, d.cfg.TakeOffline, d.takeOffline},
		{event.PhaseCopyStatic, true, d.copyStatic},
		{event.PhaseCopy, true, d.copyRemaining},
		{event.PhaseFileCopies, len(d.cfg.FileCopies) > 0, d.fileCopies},
		{event.PhaseDelete, d.cfg.DeleteOrphans, d.deleteOrphans},
		{event.PhaseOnline, d.cfg.TakeOffline, d.bringOnline},
	}
	for _, s := range steps {
		if !s.on {
			continue
		}
		if !d.stage(s.phase, s.fn) {
			return
		}
	}
}

// stage runs fn unless the run is already cancelled, reporting its start,
// outcome, and duration. It returns false once the run is cancelled.
func (d *deployer) stage(phase event.Phase, fn func()) bool {
	if d.rc.Cancelled() {
		return false
	}
	start := d.rc.Clock().Now()
	d.rc.Emit(event.Event{Type: event.PhaseStarted, Phase: phase})
	slog.Debug("phase started", "phase", phase)

	fn()

	elapsed := d.rc.Clock().Since(start)
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.ObservePhase(string(phase), elapsed)
	}
	if d.rc.Cancelled() {
		d.rc.Emit(event.Event{Type: event.PhaseFailed, Phase: phase, Error: d.rc.Err()})
		return false
	}
	d.rc.Emit(event.Event{Type: event.PhaseCompleted, Phase: phase})
	slog.Debug("phase completed", "phase", phase, "elapsed", elapsed)
	return true
}

func (d *deployer) build() {
	if err := RunBuild(d.rc.Context(), *d.cfg.Build); err != nil {
		d.rc.Fail(err)
	}
}

func (d *deployer) connect() {
	store, err := d.cfg.Connector.Connect(d.rc.Context())
	if err != nil {
		d.rc.Fail(err)
		return
	}
	d.store = store
}

// disconnect runs whether or not the run was cancelled.
func (d *deployer) disconnect() {
	d.rc.Emit(event.Event{Type: event.PhaseStarted, Phase: event.PhaseDisconnect})
	if err := d.store.Close(); err != nil {
		slog.Warn("disconnect failed", "error", err)
	}
	d.rc.Emit(event.Event{Type: event.PhaseCompleted, Phase: event.PhaseDisconnect})
}

func (d *deployer) index() {
	var g errgroup.Group
	g.Go(func() error {
		var err error
		d.local, err = IndexLocal(d.rc, LocalIndexConfig{
			Fs:         d.cfg.LocalFs,
			Root:       d.cfg.LocalRoot,
			Rules:      d.rules,
			Classifier: NewClassifier(d.cfg.Classes),
		})
		return err
	})
	g.Go(func() error {
		var err error
		d.remote, err = IndexRemote(d.rc, RemoteIndexConfig{
			Store:   d.store,
			Root:    d.cfg.RemoteRoot,
			Rules:   d.rules,
			Workers: d.cfg.Workers,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Debug("indexing stopped", "error", err)
		return
	}
	slog.Info("indexed", "local", len(d.local), "remote", len(d.remote))
}

func (d *deployer) makePlan() {
	p := BuildPlan(d.local, d.remote, d.rules, d.cfg.DeleteOrphans)
	d.plan = p

	st := d.rc.Stats()
	st.SetTotals(int64(p.CopyCount()), p.CopyBytes())
	st.AddFilesSkipped(int64(len(p.Skipped)))
	for _, e := range p.Skipped {
		d.rc.Emit(event.Event{Type: event.FileSkipped, Phase: event.PhasePlan, Path: e.RelPath, Size: e.Size})
	}
	if p.MarkerPresent && !d.cfg.TakeOffline {
		slog.Warn("maintenance marker found on the server; the site stays offline",
			"marker", paths.Join(d.tcfg.RemoteRoot, MarkerFileName))
	}
	d.rc.Emit(event.Event{Type: event.PlanReady, Phase: event.PhasePlan,
		Size: p.CopyBytes(), Total: int64(p.CopyCount())})

	slog.Info("plan ready",
		"safe", len(p.SafeCopies), "static", len(p.StaticCopies), "copy", len(p.Copies),
		"skip", len(p.Skipped), "new_folders", len(p.NewFolders),
		"delete_files", len(p.DeleteFiles), "delete_folders", len(p.DeleteFolders))
}

// shared returns a Transfer on the session opened by connect.
func (d *deployer) shared(phase event.Phase) *Transfer {
	t := newTransfer(d.rc, d.tcfg, d.store, d.folders, 0)
	t.phase = phase
	return t
}

func (d *deployer) pool(perWorker bool) *WorkerPool {
	return NewWorkerPool(d.rc, PoolConfig{
		Workers:          d.cfg.Workers,
		SessionPerWorker: perWorker && d.cfg.SessionPerWorker,
		Connector:        d.cfg.Connector,
		Shared:           d.store,
	}, d.tcfg, d.folders)
}

func copyEntry(t *Transfer, e transport.FileEntry) error { return t.CopyFile(e) }

// copySafe uploads the files allowed to change while the site is online.
// The set is small, so workers share the connect session.
func (d *deployer) copySafe() {
	d.pool(false).Run(event.PhaseCopySafe, d.plan.SafeCopies, copyEntry)
}

func (d *deployer) takeOffline() {
	page, err := RenderOfflinePage(d.cfg.Offline)
	if err != nil {
		d.rc.Fail(&Error{Kind: KindLocalIO, Op: "render offline page", Path: MarkerFileName, Err: err})
		return
	}
	delay := d.cfg.OfflineDelay
	if d.cfg.DryRun {
		delay = 0
	}
	if err := d.shared(event.PhaseOffline).TakeOffline(page, delay); err != nil {
		slog.Debug("take offline stopped", "error", err)
	}
}

func (d *deployer) copyStatic() {
	d.pool(true).Run(event.PhaseCopyStatic, d.plan.StaticCopies, copyEntry)
}

func (d *deployer) copyRemaining() {
	t := d.shared(event.PhaseCopy)
	for _, f := range d.plan.NewFolders {
		if err := t.CreateFolder(f.RelPath); err != nil {
			return
		}
	}
	d.pool(true).Run(event.PhaseCopy, d.plan.Copies, copyEntry)
}

func (d *deployer) fileCopies() {
	t := d.shared(event.PhaseFileCopies)
	for _, fc := range d.cfg.FileCopies {
		src := paths.Clean(fc.Source)
		full := filepath.Join(d.cfg.LocalRoot, paths.ToNative(src))
		fi, err := d.cfg.LocalFs.Stat(full)
		if err == nil && fi.IsDir() {
			err = errIsFolder
		}
		if err != nil {
			d.rc.Fail(&Error{Kind: KindLocalIO, Op: "file copy source", Path: src, Err: err})
			return
		}
		e := transport.FileEntry{FullPath: full, RelPath: src, Size: fi.Size(), ModTime: fi.ModTime()}
		if err := t.CopyFileTo(e, paths.Clean(fc.Destination)); err != nil {
			return
		}
		slog.Debug("file copy", "source", src, "destination", fc.Destination)
	}
}

// deleteOrphans removes orphan files across the pool, then orphan folders
// deepest first through the connect session.
func (d *deployer) deleteOrphans() {
	ix := NewRemoteIndex(d.remote)

	d.pool(true).Run(event.PhaseDelete, d.plan.DeleteFiles, func(t *Transfer, e transport.FileEntry) error {
		if !ix.Has(e.RelPath) {
			return nil
		}
		if err := t.Delete(e.RelPath, false); err != nil {
			return err
		}
		ix.Remove(e.RelPath)
		return nil
	})
	if d.rc.Cancelled() {
		return
	}

	t := d.shared(event.PhaseDelete)
	for _, f := range d.plan.DeleteFolders {
		if !ix.Has(f.RelPath) {
			continue
		}
		if err := t.DeleteFolderRecursive(f.RelPath, ix); err != nil {
			return
		}
	}
}

func (d *deployer) bringOnline() {
	delay := d.cfg.OnlineDelay
	if d.cfg.DryRun {
		delay = 0
	}
	if err := d.shared(event.PhaseOnline).BringOnline(delay); err != nil {
		slog.Debug("bring online stopped", "error", err)
	}
}

// String summarizes the plan for logs and dry-run output.
func (p *Plan) String() string {
	return fmt.Sprintf("copy %d (%s), skip %d, create %d folders, delete %d files and %d folders",
		p.CopyCount(), stats.FormatBytes(p.CopyBytes()), len(p.Skipped), len(p.NewFolders),
		len(p.DeleteFiles), len(p.DeleteFolders))
}
