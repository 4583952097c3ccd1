package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/stats"
)

// plainPresenter writes one line per phase and per remote change. Skips and
// folder creation only show with --verbose.
type plainPresenter struct {
	w     io.Writer
	errW  io.Writer
	out   styles
	errs  styles
	stats *stats.Collector

	verbose       bool
	progressEvery int // seconds between progress lines while copying, 0 = never

	started map[event.Phase]time.Time
	copying bool
	failed  bool
}

func (p *plainPresenter) Run(events <-chan event.Event) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.stats.Tick()
			ticks++
			if p.copying && p.progressEvery > 0 && ticks%p.progressEvery == 0 {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.PhaseStarted:
		p.started[ev.Phase] = ev.Timestamp
		p.copying = isCopyPhase(ev.Phase)
		fmt.Fprintf(p.errW, "%s %s\n", p.errs.arrow.Render("==>"), p.errs.phase.Render(PhaseTitle(ev.Phase)))
	case event.PhaseCompleted:
		p.copying = false
		if p.verbose {
			took := ev.Timestamp.Sub(p.started[ev.Phase])
			fmt.Fprintf(p.errW, "    %s\n", p.errs.muted.Render(fmt.Sprintf("%s done in %s", ev.Phase, FormatDuration(took))))
		}
	case event.PhaseFailed:
		p.copying = false
		p.failed = true
		fmt.Fprintf(p.errW, "%s %s: %s\n", p.errs.fail.Render("✗"), PhaseTitle(ev.Phase), errText(ev.Error))
	case event.IndexProgress:
		if p.verbose {
			fmt.Fprintf(p.w, "%s\n", p.out.muted.Render(fmt.Sprintf("indexed %s  (%s entries)", orRoot(ev.Path), FormatCount(ev.Size))))
		}
	case event.PlanReady:
		fmt.Fprintf(p.errW, "    %s files to upload, %s\n", FormatCount(ev.Total), FormatBytes(ev.Size))
	case event.FileCopied:
		fmt.Fprintf(p.w, "%s %s  %s\n", p.out.ok.Render("+"), p.out.bright.Render(ev.Path), p.out.muted.Render(FormatBytes(ev.Size)))
	case event.FileSkipped:
		if p.verbose {
			fmt.Fprintf(p.w, "%s\n", p.out.muted.Render("= "+ev.Path+"  unchanged"))
		}
	case event.FileDeleted:
		fmt.Fprintf(p.w, "%s %s\n", p.out.warn.Render("-"), ev.Path)
	case event.FolderCreated:
		if p.verbose {
			fmt.Fprintf(p.w, "%s %s/\n", p.out.ok.Render("+"), ev.Path)
		}
	case event.FolderDeleted:
		fmt.Fprintf(p.w, "%s %s/\n", p.out.warn.Render("-"), ev.Path)
	case event.Retry:
		fmt.Fprintf(p.errW, "%s %s (attempt %d): %s\n", p.errs.warn.Render("retry"), ev.Path, ev.Attempt, errText(ev.Error))
	case event.Offline:
		fmt.Fprintf(p.errW, "    %s\n", p.errs.warn.Render("site is offline"))
	case event.Online:
		fmt.Fprintf(p.errW, "    %s\n", p.errs.ok.Render("site is online"))
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	if snap.BytesTotal <= 0 {
		fmt.Fprintf(p.errW, "progress: %s copied %s files\n",
			FormatBytes(snap.BytesCopied), FormatCount(snap.FilesCopied))
		return
	}
	pct := float64(snap.BytesCopied) / float64(snap.BytesTotal)
	fmt.Fprintf(p.errW, "progress: %s %.0f%% %s/%s %s/%s files %s eta %s\n",
		ProgressBar(pct, 20), pct*100,
		FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal),
		FormatCount(snap.FilesCopied), FormatCount(snap.FilesTotal),
		FormatRate(p.stats.RollingSpeed(10)),
		FormatETA(p.stats.ETA()),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot(), p.failed)
}

func isCopyPhase(ph event.Phase) bool {
	switch ph {
	case event.PhaseCopySafe, event.PhaseCopyStatic, event.PhaseCopy, event.PhaseFileCopies:
		return true
	}
	return false
}

func errText(err error) string {
	if err == nil {
		return "error"
	}
	return err.Error()
}

func orRoot(p string) string {
	if p == "" {
		return "."
	}
	return p
}
