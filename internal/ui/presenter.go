package ui

import (
	"io"
	"time"

	"github.com/bamsammich/fdeploy/internal/config"
	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer // per-file lines
	ErrWriter io.Writer // phases, retries, periodic progress
	Stats     *stats.Collector
	Theme     config.ThemeConfig
	IsTTY     bool
	Quiet     bool
	Verbose   bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	p := &plainPresenter{
		w:       cfg.Writer,
		errW:    cfg.ErrWriter,
		out:     newStyles(cfg.Writer, cfg.Theme),
		errs:    newStyles(cfg.ErrWriter, cfg.Theme),
		stats:   cfg.Stats,
		verbose: cfg.Verbose,
		started: make(map[event.Phase]time.Time),
	}
	// A terminal watches the file lines scroll by; logs get a periodic line.
	if !cfg.IsTTY {
		p.progressEvery = 5
	}
	return p
}
