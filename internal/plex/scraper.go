package plex

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/scrape"
)

// SourceName identifies Plex items in the catalog.
const SourceName = "plex"

// Library is the subset of the Plex API the scraper uses. *Client implements it.
type Library interface {
	Sections(ctx context.Context) ([]Section, error)
	ListItems(ctx context.Context, sectionKey string) ([]Item, error)
	Metadata(ctx context.Context, ratingKey string) (*Detail, error)
	RefreshSection(ctx context.Context, sectionKey string) error
}

// Scraper is the local library scraper.
type Scraper struct {
	lib       Library
	batchSize int
	log       *slog.Logger
}

// NewScraper creates a scraper over lib. Detail requests are issued
// batchSize at a time.
func NewScraper(lib Library, batchSize int, log *slog.Logger) *Scraper {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Scraper{lib: lib, batchSize: batchSize, log: log.With("component", "plex-scraper")}
}

func (s *Scraper) Name() string       { return SourceName }
func (s *Scraper) Kind() catalog.Kind { return catalog.KindLocal }

// Scrape lists every movie section concurrently, keeps items added after the
// session cutoff, and fetches their detail in batches. Items are yielded in
// ascending addedAt order; items without an IMDB code are skipped.
func (s *Scraper) Scrape(ctx context.Context, sess scrape.Session) iter.Seq2[scrape.LocalItem, error] {
	return func(yield func(scrape.LocalItem, error) bool) {
		items, err := s.listNew(ctx, sess)
		if err != nil {
			yield(scrape.LocalItem{}, err)
			return
		}

		unlinked := 0
		for start := 0; start < len(items); start += s.batchSize {
			end := min(start+s.batchSize, len(items))
			details, err := s.details(ctx, items[start:end])
			if err != nil {
				yield(scrape.LocalItem{}, err)
				return
			}
			for _, d := range details {
				code := d.IMDBCode()
				if code == "" {
					unlinked++
					continue
				}
				if !yield(toItem(code, d, sess), nil) {
					return
				}
			}
		}
		if unlinked > 0 {
			s.log.Debug("skipped items without imdb code", "count", unlinked)
		}
	}
}

func (s *Scraper) listNew(ctx context.Context, sess scrape.Session) ([]Item, error) {
	sections, err := s.lib.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	var mu sync.Mutex
	var items []Item
	g, gctx := errgroup.WithContext(ctx)
	for _, sec := range sections {
		if !sec.IsMovie() {
			continue
		}
		g.Go(func() error {
			list, err := s.lib.ListItems(gctx, sec.Key)
			if err != nil {
				return fmt.Errorf("list section %s: %w", sec.Title, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, it := range list {
				if sess.Includes(it.Added()) {
					items = append(items, it)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].AddedAt != items[j].AddedAt {
			return items[i].AddedAt < items[j].AddedAt
		}
		return items[i].RatingKey < items[j].RatingKey
	})
	return items, nil
}

// details fetches one batch concurrently, preserving batch order.
func (s *Scraper) details(ctx context.Context, batch []Item) ([]*Detail, error) {
	out := make([]*Detail, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, it := range batch {
		g.Go(func() error {
			d, err := s.lib.Metadata(gctx, it.RatingKey)
			if err != nil {
				return fmt.Errorf("metadata %s: %w", it.RatingKey, err)
			}
			if d.AddedAt == 0 {
				d.AddedAt = it.AddedAt
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func toItem(code string, d *Detail, sess scrape.Session) scrape.LocalItem {
	added := d.Added()
	return scrape.LocalItem{
		Code: code,
		Meta: catalog.Meta{
			Title:       d.Title,
			Year:        d.Year,
			Rating:      d.Rating,
			Description: d.Summary,
			Genres:      d.GenreNames(),
			Source:      SourceName,
			SourceTime:  added,
			CreatedAt:   sess.StartedAt,
			UpdatedAt:   sess.StartedAt,
		},
		Local: catalog.LocalSource{
			Source:     SourceName,
			SourceTime: added,
			CreatedAt:  sess.StartedAt,
			UpdatedAt:  sess.StartedAt,
		},
	}
}

// Refresh asks Plex to re-scan every movie section.
func (s *Scraper) Refresh(ctx context.Context) error {
	sections, err := s.lib.Sections(ctx)
	if err != nil {
		return fmt.Errorf("list sections: %w", err)
	}
	for _, sec := range sections {
		if !sec.IsMovie() {
			continue
		}
		if err := s.lib.RefreshSection(ctx, sec.Key); err != nil {
			return fmt.Errorf("refresh section %s: %w", sec.Title, err)
		}
		s.log.Debug("library refresh triggered", "section", sec.Title)
	}
	return nil
}
