package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/events"
)

// Store is the catalog persistence the orchestrator needs. *catalog.Store
// implements it.
type Store interface {
	LatestSourceTime(ctx context.Context, source string, kind catalog.Kind) (*time.Time, error)
	UpsertMeta(ctx context.Context, code string, meta catalog.Meta, torrents []catalog.Torrent) error
	InsertMetaIfAbsent(ctx context.Context, code string, meta catalog.Meta) error
	SetLocalSource(ctx context.Context, code string, src catalog.LocalSource) error
	CreateScrape(ctx context.Context, sc *catalog.Scrape) error
	GetScrape(ctx context.Context, id string) (*catalog.Scrape, error)
	SaveScrape(ctx context.Context, sc *catalog.Scrape) error
}

// Publisher receives scrape notifications.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Launcher runs detached work in its own cancellation scope.
type Launcher interface {
	Go(name string, fn func(ctx context.Context) error)
}

// Orchestrator drives scrapers through incremental sessions and records each
// run. At most one full run is active at a time.
type Orchestrator struct {
	store    Store
	bus      Publisher
	scrapers []Scraper
	sem      *semaphore.Weighted
	now      func() time.Time
	newID    func() string
	log      *slog.Logger
}

// New creates an orchestrator. Scrapers run in the order given.
func New(store Store, bus Publisher, log *slog.Logger, scrapers ...Scraper) *Orchestrator {
	return &Orchestrator{
		store:    store,
		bus:      bus,
		scrapers: scrapers,
		sem:      semaphore.NewWeighted(1),
		now:      time.Now,
		newID:    uuid.NewString,
		log:      log.With("component", "scrape"),
	}
}

// Start creates a scrape record and runs it detached through launcher, so the
// caller returns immediately with the pending record.
func (o *Orchestrator) Start(ctx context.Context, launcher Launcher) (*catalog.Scrape, error) {
	if !o.sem.TryAcquire(1) {
		return nil, ErrScrapeInProgress
	}

	sc, err := o.create(ctx)
	if err != nil {
		o.sem.Release(1)
		return nil, err
	}
	pending := *sc

	launcher.Go("scrape "+sc.ID, func(ctx context.Context) error {
		defer o.sem.Release(1)
		_, err := o.runStored(ctx, sc.ID)
		return err
	})
	return &pending, nil
}

// Scrape performs a full run on the caller's task.
func (o *Orchestrator) Scrape(ctx context.Context) (*catalog.Scrape, error) {
	if !o.sem.TryAcquire(1) {
		return nil, ErrScrapeInProgress
	}
	defer o.sem.Release(1)

	sc, err := o.create(ctx)
	if err != nil {
		return nil, err
	}
	return o.runStored(ctx, sc.ID)
}

// runStored loads a not yet finished record and runs it. The caller holds the
// run slot.
func (o *Orchestrator) runStored(ctx context.Context, id string) (*catalog.Scrape, error) {
	// Loaded even when ctx is already done, so the run records the cancellation.
	sc, err := o.store.GetScrape(context.WithoutCancel(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load scrape %s: %w", id, err)
	}
	if sc.Finished() {
		return nil, fmt.Errorf("scrape %s: %w", id, ErrScrapeFinished)
	}
	return o.run(ctx, sc)
}

func (o *Orchestrator) create(ctx context.Context) (*catalog.Scrape, error) {
	sc := &catalog.Scrape{ID: o.newID(), StartedAt: o.now()}
	if err := o.store.CreateScrape(ctx, sc); err != nil {
		return nil, fmt.Errorf("create scrape: %w", err)
	}
	return sc, nil
}

// run drives every scraper in order. A source failure is recorded on its
// sub-record and never stops later sources. Only persistence failures of the
// Scrape record itself abort the run. Cancellation fails the current and
// remaining sources, and the record is still finished and announced.
func (o *Orchestrator) run(ctx context.Context, sc *catalog.Scrape) (*catalog.Scrape, error) {
	log := o.log.With("scrape_id", sc.ID)
	log.Info("scrape started", "sources", len(o.scrapers))
	start := o.now()
	persist := context.WithoutCancel(ctx)

	for _, s := range o.scrapers {
		src := catalog.ScrapeSource{Source: s.Name(), Kind: s.Kind(), StartedAt: o.now()}
		sc.Sources = append(sc.Sources, src)
		cur := &sc.Sources[len(sc.Sources)-1]
		if err := o.store.SaveScrape(persist, sc); err != nil {
			return sc, fmt.Errorf("save scrape %s: %w", sc.ID, err)
		}

		var movies, torrents int
		err := ctx.Err()
		if err == nil {
			movies, torrents, err = o.scrapeSource(ctx, s, log)
			if err == nil && ctx.Err() != nil {
				err = ctx.Err()
			}
		}
		end := o.now()
		cur.EndedAt = &end
		cur.Movies = movies
		cur.Torrents = torrents
		cur.Success = err == nil
		if err != nil {
			cur.Error = err.Error()
			log.Warn("source failed", "source", s.Name(), "kind", s.Kind(), "error", err)
		} else {
			log.Info("source scraped", "source", s.Name(), "kind", s.Kind(), "movies", movies, "torrents", torrents)
		}

		if err := o.store.SaveScrape(persist, sc); err != nil {
			return sc, fmt.Errorf("save scrape %s: %w", sc.ID, err)
		}
	}

	finish(sc, o.now())
	if err := o.store.SaveScrape(persist, sc); err != nil {
		return sc, fmt.Errorf("save scrape %s: %w", sc.ID, err)
	}

	o.publishFinished(persist, sc)
	log.Info("scrape finished", "success", sc.Success, "movies", sc.Movies, "torrents", sc.Torrents,
		"duration_ms", o.now().Sub(start).Milliseconds())
	if err := ctx.Err(); err != nil {
		return sc, fmt.Errorf("scrape %s interrupted: %w", sc.ID, err)
	}
	return sc, nil
}

// finish derives the aggregate outcome from the source sub-records.
func finish(sc *catalog.Scrape, at time.Time) {
	sc.Success = true
	sc.Movies = 0
	sc.Torrents = 0
	for _, src := range sc.Sources {
		sc.Success = sc.Success && src.Success
		sc.Movies += src.Movies
		sc.Torrents += src.Torrents
	}
	sc.EndedAt = &at
}

func (o *Orchestrator) publishFinished(ctx context.Context, sc *catalog.Scrape) {
	if o.bus == nil {
		return
	}
	e := &events.ScrapeFinished{
		BaseEvent: events.NewBaseEvent(events.EventScrapeFinished, events.EntityScrape, sc.ID),
		ScrapeID:  sc.ID,
		Success:   sc.Success,
		Movies:    sc.Movies,
		Torrents:  sc.Torrents,
	}
	for _, src := range sc.Sources {
		if !src.Success {
			e.Failures = append(e.Failures, events.SourceFailure{Source: src.Source, Kind: string(src.Kind), Error: src.Error})
		}
	}
	if err := o.bus.Publish(ctx, e); err != nil {
		o.log.Warn("publish scrape finished", "scrape_id", sc.ID, "error", err)
	}
}

// session opens a cursor at the newest item already ingested from s.
func (o *Orchestrator) session(ctx context.Context, s Scraper) (Session, error) {
	from, err := o.store.LatestSourceTime(ctx, s.Name(), s.Kind())
	if err != nil {
		return Session{}, err
	}
	return Session{Source: s.Name(), Kind: s.Kind(), From: from, StartedAt: o.now()}, nil
}

func (o *Orchestrator) scrapeSource(ctx context.Context, s Scraper, log *slog.Logger) (movies, torrents int, err error) {
	sess, err := o.session(ctx, s)
	if err != nil {
		return 0, 0, fmt.Errorf("open session: %w", err)
	}

	switch sc := s.(type) {
	case RemoteScraper:
		return o.ingestRemote(ctx, sc, sess, log)
	case LocalScraper:
		movies, err := o.ingestLocal(ctx, sc, sess, log, nil)
		return movies, 0, err
	default:
		return 0, 0, fmt.Errorf("scraper %s has no scrape capability", s.Name())
	}
}

func (o *Orchestrator) ingestRemote(ctx context.Context, s RemoteScraper, sess Session, log *slog.Logger) (movies, torrents int, err error) {
	invalid := 0
	for item, err := range s.Scrape(ctx, sess) {
		if err != nil {
			return movies, torrents, err
		}
		if !item.Valid() {
			invalid++
			continue
		}
		if err := o.store.UpsertMeta(ctx, item.Code, item.Meta, item.Torrents); err != nil {
			return movies, torrents, fmt.Errorf("upsert %s: %w", item.Code, err)
		}
		movies++
		torrents += len(item.Torrents)
	}
	if invalid > 0 {
		log.Debug("dropped invalid items", "source", s.Name(), "count", invalid)
	}
	return movies, torrents, nil
}

// ingestLocal records every observed item; seen, if non-nil, is called with
// each ingested code.
func (o *Orchestrator) ingestLocal(ctx context.Context, s LocalScraper, sess Session, log *slog.Logger, seen func(code string)) (movies int, err error) {
	invalid := 0
	for item, err := range s.Scrape(ctx, sess) {
		if err != nil {
			return movies, err
		}
		if !item.Valid() {
			invalid++
			continue
		}
		if err := o.store.InsertMetaIfAbsent(ctx, item.Code, item.Meta); err != nil {
			return movies, fmt.Errorf("insert %s: %w", item.Code, err)
		}
		if err := o.store.SetLocalSource(ctx, item.Code, item.Local); err != nil {
			return movies, fmt.Errorf("set local source %s: %w", item.Code, err)
		}
		movies++
		if seen != nil {
			seen(catalog.NormalizeCode(item.Code))
		}
	}
	if invalid > 0 {
		log.Debug("dropped invalid items", "source", s.Name(), "count", invalid)
	}
	return movies, nil
}

// ScrapeForMovie runs every local scraper over its whole library and reports
// whether code was observed. Catalog updates happen as in a full run.
func (o *Orchestrator) ScrapeForMovie(ctx context.Context, code string) (bool, error) {
	code = catalog.NormalizeCode(code)
	log := o.log.With("code", code)
	found := false
	var errs []error

	for _, s := range o.scrapers {
		local, ok := s.(LocalScraper)
		if !ok {
			continue
		}
		sess := Session{Source: s.Name(), Kind: s.Kind(), StartedAt: o.now()}
		_, err := o.ingestLocal(ctx, local, sess, log, func(c string) {
			if c == code {
				found = true
			}
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}

	log.Debug("single movie scrape", "found", found)
	return found, errors.Join(errs...)
}

// RefreshLibraries asks every local library host to re-scan its storage.
func (o *Orchestrator) RefreshLibraries(ctx context.Context) error {
	var errs []error
	for _, s := range o.scrapers {
		local, ok := s.(LocalScraper)
		if !ok {
			continue
		}
		if err := local.Refresh(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
