// Package server runs reelarr's background work: the scheduled scrape and
// download-completion loop, and detached tasks started by API requests.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/scrape"
)

// Scraper runs full scrapes and library re-scans. *scrape.Orchestrator implements it.
type Scraper interface {
	Scrape(ctx context.Context) (*catalog.Scrape, error)
	RefreshLibraries(ctx context.Context) error
}

// DownloadChecker advances unfinished downloads. *download.Service implements it.
type DownloadChecker interface {
	CheckDownloads(ctx context.Context) error
}

// Config for the background loop.
type Config struct {
	Tick             time.Duration // how often due work is checked
	ScrapeInterval   time.Duration // zero disables scheduled scrapes
	DownloadInterval time.Duration // zero disables completion checks
}

// Runner drives periodic scrapes and download checks from a single timer.
// A tick's work finishes before the next tick is scheduled.
type Runner struct {
	scraper   Scraper
	downloads DownloadChecker
	config    Config
	logger    *slog.Logger
	now       func() time.Time

	lastScrape   time.Time
	lastDownload time.Time
}

// NewRunner creates a new runner.
func NewRunner(scraper Scraper, downloads DownloadChecker, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Minute
	}
	return &Runner{
		scraper:   scraper,
		downloads: downloads,
		config:    cfg,
		logger:    logger.With("component", "runner"),
		now:       time.Now,
	}
}

// Run ticks until the context is canceled. The first tick runs immediately.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner started", "tick", r.config.Tick,
		"scrape_interval", r.config.ScrapeInterval, "download_interval", r.config.DownloadInterval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped")
			return ctx.Err()
		case <-timer.C:
			r.tick(ctx)
			timer.Reset(r.config.Tick)
		}
	}
}

// tick runs whatever work is due.
func (r *Runner) tick(ctx context.Context) {
	now := r.now()

	if due(r.config.ScrapeInterval, r.lastScrape, now) {
		r.lastScrape = now
		r.runScrape(ctx)
	}
	if ctx.Err() != nil {
		return
	}
	if due(r.config.DownloadInterval, r.lastDownload, now) {
		r.lastDownload = now
		if err := r.downloads.CheckDownloads(ctx); err != nil {
			r.logger.Warn("download check finished with errors", "error", err)
		}
	}
}

func (r *Runner) runScrape(ctx context.Context) {
	start := r.now()
	if err := r.scraper.RefreshLibraries(ctx); err != nil {
		r.logger.Warn("library refresh failed", "error", err)
	}

	sc, err := r.scraper.Scrape(ctx)
	switch {
	case errors.Is(err, scrape.ErrScrapeInProgress):
		r.logger.Debug("scheduled scrape skipped, run in progress")
	case errors.Is(err, context.Canceled):
		r.logger.Info("scheduled scrape interrupted", "error", err)
	case err != nil:
		r.logger.Error("scheduled scrape failed", "error", err)
	default:
		r.logger.Info("scheduled scrape done", "scrape_id", sc.ID, "success", sc.Success,
			"movies", sc.Movies, "torrents", sc.Torrents, "duration_ms", r.now().Sub(start).Milliseconds())
	}
}

func due(interval time.Duration, last, now time.Time) bool {
	if interval <= 0 {
		return false
	}
	return last.IsZero() || now.Sub(last) >= interval
}
