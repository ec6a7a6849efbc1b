// Package download implements the movie download lifecycle: torrent selection,
// submission to the daemon, progress polling, library placement and
// confirmation.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/events"
	"github.com/vmunix/reelarr/pkg/transmission"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Daemon,Organizer,Confirmer

// Daemon is the torrent daemon. *transmission.Client implements it.
type Daemon interface {
	ListTorrents(ctx context.Context) ([]transmission.TorrentInfo, error)
	GetTorrent(ctx context.Context, id int64) (*transmission.TorrentInfo, error)
	AddTorrent(ctx context.Context, uri string) (*transmission.NewTorrentInfo, error)
	RemoveTorrent(ctx context.Context, id int64) error
}

// Organizer moves finished downloads into the library.
type Organizer interface {
	Place(ctx context.Context, name, downloadDir string, files []string) error
}

// Confirmer re-scans the local library to confirm placement.
type Confirmer interface {
	RefreshLibraries(ctx context.Context) error
	ScrapeForMovie(ctx context.Context, code string) (bool, error)
}

// Store is the catalog persistence the service needs.
type Store interface {
	FindByCode(ctx context.Context, code string) (*catalog.Movie, error)
	ReplaceDownload(ctx context.Context, code string, d *catalog.Download) error
	AppendDownloadStatus(ctx context.Context, code string, e catalog.StatusEvent) error
	UpdateLiveStats(ctx context.Context, code string, live catalog.LiveStats) error
	ListDownloads(ctx context.Context) ([]*catalog.Movie, error)
}

// Publisher receives download notifications.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Config holds the download settings.
type Config struct {
	Preferences Preferences
	Trackers    []string
	GracePeriod time.Duration
}

// Service drives downloads through Started, Downloaded and Complete.
type Service struct {
	store   Store
	daemon  Daemon
	org     Organizer
	confirm Confirmer
	bus     Publisher
	cfg     Config
	now     func() time.Time
	log     *slog.Logger
}

// NewService creates a download service. bus may be nil.
func NewService(store Store, daemon Daemon, org Organizer, confirm Confirmer, bus Publisher, cfg Config, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		daemon:  daemon,
		org:     org,
		confirm: confirm,
		bus:     bus,
		cfg:     cfg,
		now:     time.Now,
		log:     log.With("component", "download"),
	}
}

// Request narrows torrent selection. Empty fields use the configured preferences.
type Request struct {
	Quality string
	Type    string
}

// Start selects a torrent for the movie and hands it to the daemon.
func (s *Service) Start(ctx context.Context, code string, req Request) (*catalog.Download, error) {
	code = catalog.NormalizeCode(code)
	fail := func(err error) error {
		return &Error{Op: "start", Code: code, Quality: req.Quality, Type: req.Type, Err: err}
	}

	m, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, fail(err)
	}
	if m.Local != nil {
		return nil, fail(ErrAlreadyDownloaded)
	}
	if m.Download != nil {
		return nil, &Error{Op: "start", Code: code, Quality: m.Download.Quality, Type: m.Download.Type,
			JobID: m.Download.JobID, Err: ErrAlreadyDownloading}
	}

	t, err := Select(m.Torrents, s.cfg.Preferences.Narrow(req.Quality, req.Type))
	if err != nil {
		return nil, fail(err)
	}

	name := m.DisplayName()
	magnet, err := Magnet(t.Hash, name, s.cfg.Trackers)
	if err != nil {
		return nil, fail(err)
	}
	chosen := func(err error) error {
		return &Error{Op: "start", Code: code, Quality: t.Quality, Type: t.Type, Err: err}
	}

	active, err := s.daemon.ListTorrents(ctx)
	if err != nil {
		return nil, chosen(fmt.Errorf("list torrents: %w", err))
	}
	for _, a := range active {
		if a.Name == name {
			return nil, &Error{Op: "start", Code: code, Quality: t.Quality, Type: t.Type, JobID: a.ID, Err: ErrDuplicateTorrent}
		}
	}

	added, err := s.daemon.AddTorrent(ctx, magnet)
	if err != nil {
		return nil, chosen(fmt.Errorf("add torrent: %w", err))
	}
	if added.Duplicate {
		return nil, &Error{Op: "start", Code: code, Quality: t.Quality, Type: t.Type, JobID: added.ID, Err: ErrDuplicateTorrent}
	}

	d := &catalog.Download{
		JobID:   added.ID,
		Name:    name,
		Magnet:  magnet,
		Source:  t.Source,
		Quality: t.Quality,
		Type:    t.Type,
		Events:  []catalog.StatusEvent{{Status: catalog.StatusStarted, At: s.now()}},
	}
	if err := s.store.ReplaceDownload(ctx, code, d); err != nil {
		// The daemon job is orphaned; a later start reports it as a duplicate.
		s.log.Error("save download failed", "code", code, "job_id", added.ID, "error", err)
		return nil, &Error{Op: "start", Code: code, Quality: t.Quality, Type: t.Type, JobID: added.ID, Err: err}
	}

	s.publish(ctx, events.NewDownloadStarted(code, added.ID, name, t.Quality, t.Type))
	s.log.Info("download started", "code", code, "job_id", added.ID, "name", name, "quality", t.Quality, "type", t.Type)
	return d, nil
}

// CheckDownloads runs one pass of the completion loop over every unfinished
// download. Failures are per download and leave its state for the next pass.
func (s *Service) CheckDownloads(ctx context.Context) error {
	movies, err := s.store.ListDownloads(ctx)
	if err != nil {
		return fmt.Errorf("list downloads: %w", err)
	}

	var errs []error
	for _, m := range movies {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.check(ctx, m); err != nil {
			s.log.Warn("download check failed", "code", m.Code, "job_id", m.Download.JobID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) check(ctx context.Context, m *catalog.Movie) error {
	d := m.Download
	switch d.Status() {
	case catalog.StatusComplete:
		return nil
	case catalog.StatusDownloaded:
		// Completion already ran; wait for a local scrape to see the movie.
		if m.Local == nil {
			return nil
		}
		return s.markComplete(ctx, m.Code, d)
	}

	info, err := s.daemon.GetTorrent(ctx, d.JobID)
	if errors.Is(err, transmission.ErrNotFound) {
		// A fresh job may not be listed yet; absence only counts after the grace period.
		if s.now().Sub(d.StartedAt()) < s.cfg.GracePeriod {
			s.log.Debug("daemon job not listed yet", "code", m.Code, "job_id", d.JobID)
			return nil
		}
		if d.Live == nil || d.Live.DownloadDir == "" {
			return s.abandon(ctx, m)
		}
		s.log.Info("daemon job gone, completing", "code", m.Code, "job_id", d.JobID)
		return s.complete(ctx, m)
	}
	if err != nil {
		return &Error{Op: "check", Code: m.Code, JobID: d.JobID, Err: err}
	}

	live := catalog.LiveStats{
		PercentDone: info.PercentDone,
		Stalled:     info.IsStalled,
		ETA:         info.ETA,
		DownloadDir: info.DownloadDir,
		Files:       info.FileNames(),
		At:          s.now(),
	}
	if err := s.store.UpdateLiveStats(ctx, m.Code, live); err != nil {
		return &Error{Op: "check", Code: m.Code, JobID: d.JobID, Err: err}
	}
	s.log.Debug("download progress", "code", m.Code, "job_id", d.JobID, "percent", info.PercentDone, "stalled", info.IsStalled)
	return nil
}

// Complete runs completion for the movie's download.
func (s *Service) Complete(ctx context.Context, code string) error {
	code = catalog.NormalizeCode(code)
	m, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return &Error{Op: "complete", Code: code, Err: err}
	}
	if m.Download == nil {
		return &Error{Op: "complete", Code: code, Err: ErrNotDownloading}
	}
	if d := m.Download; d.Status() == catalog.StatusStarted && (d.Live == nil || d.Live.DownloadDir == "") {
		return &Error{Op: "complete", Code: code, Quality: d.Quality, Type: d.Type, JobID: d.JobID, Err: ErrNoLiveStats}
	}
	return s.complete(ctx, m)
}

// abandon drops a download whose daemon job vanished before any pass saw
// where it wrote its files, so the movie can be downloaded again.
func (s *Service) abandon(ctx context.Context, m *catalog.Movie) error {
	d := m.Download
	if err := s.store.ReplaceDownload(ctx, m.Code, nil); err != nil {
		return &Error{Op: "check", Code: m.Code, JobID: d.JobID, Err: err}
	}
	s.log.Warn("download abandoned, job gone before progress was recorded", "code", m.Code, "job_id", d.JobID)
	return &Error{Op: "check", Code: m.Code, Quality: d.Quality, Type: d.Type, JobID: d.JobID, Err: ErrNoLiveStats}
}

// complete places the files, confirms them through a library re-scan and
// marks the download Complete. The daemon job is removed however it ends.
func (s *Service) complete(ctx context.Context, m *catalog.Movie) (err error) {
	d := m.Download
	log := s.log.With("code", m.Code, "job_id", d.JobID)
	fail := func(err error) error {
		return &Error{Op: "complete", Code: m.Code, Quality: d.Quality, Type: d.Type, JobID: d.JobID, Err: err}
	}

	defer func() {
		if rmErr := s.daemon.RemoveTorrent(ctx, d.JobID); rmErr != nil && !errors.Is(rmErr, transmission.ErrNotFound) {
			log.Warn("remove daemon job failed", "error", rmErr)
		}
	}()

	if d.Status() == catalog.StatusStarted {
		if d.Live == nil || d.Live.DownloadDir == "" {
			return fail(ErrNoLiveStats)
		}
		if err := s.org.Place(ctx, m.DisplayName(), d.Live.DownloadDir, d.Live.Files); err != nil {
			return fail(fmt.Errorf("place files: %w", err))
		}
		if err := s.store.AppendDownloadStatus(ctx, m.Code, catalog.StatusEvent{Status: catalog.StatusDownloaded, At: s.now()}); err != nil {
			return fail(err)
		}
		log.Info("download placed", "name", m.DisplayName())
	}

	if err := s.confirm.RefreshLibraries(ctx); err != nil {
		log.Warn("library refresh failed", "error", err)
	}
	found, err := s.confirm.ScrapeForMovie(ctx, m.Code)
	if err != nil {
		return fail(fmt.Errorf("confirm: %w", err))
	}
	if !found {
		return fail(ErrNotConfirmed)
	}
	return s.markComplete(ctx, m.Code, d)
}

func (s *Service) markComplete(ctx context.Context, code string, d *catalog.Download) error {
	if err := s.store.AppendDownloadStatus(ctx, code, catalog.StatusEvent{Status: catalog.StatusComplete, At: s.now()}); err != nil {
		return &Error{Op: "complete", Code: code, JobID: d.JobID, Err: err}
	}
	s.publish(ctx, events.NewDownloadCompleted(code))
	s.log.Info("download complete", "code", code, "job_id", d.JobID)

	// The library entry supersedes the download record.
	m, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return &Error{Op: "complete", Code: code, JobID: d.JobID, Err: err}
	}
	if m.Local == nil {
		return nil
	}
	if err := s.store.ReplaceDownload(ctx, code, nil); err != nil {
		return &Error{Op: "complete", Code: code, JobID: d.JobID, Err: err}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, e); err != nil {
		s.log.Warn("publish event failed", "type", e.EventType(), "error", err)
	}
}
