package yts

import (
	"context"
	"iter"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/scrape"
)

// SourceName identifies YTS items in the catalog.
const SourceName = "yts"

// Lister fetches catalog pages. *Client implements it.
type Lister interface {
	ListMovies(ctx context.Context, page, limit int) (*ListResponse, error)
}

// Options tune pagination and retries.
type Options struct {
	PageSize        int
	MaxAttempts     uint
	RetryDelay      time.Duration
	PageDelay       time.Duration
	DisallowedTypes []string
}

// Scraper is the remote catalog scraper.
type Scraper struct {
	lister     Lister
	opts       Options
	disallowed map[string]bool
	log        *slog.Logger
}

// NewScraper creates a scraper over lister.
func NewScraper(lister Lister, opts Options, log *slog.Logger) *Scraper {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	disallowed := make(map[string]bool, len(opts.DisallowedTypes))
	for _, t := range opts.DisallowedTypes {
		disallowed[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return &Scraper{
		lister:     lister,
		opts:       opts,
		disallowed: disallowed,
		log:        log.With("component", "yts-scraper"),
	}
}

func (s *Scraper) Name() string       { return SourceName }
func (s *Scraper) Kind() catalog.Kind { return catalog.KindRemote }

// Scrape pages through the catalog, newest first, until a page is empty, falls
// entirely before the session cutoff, or is short. Each kept page is yielded
// oldest first.
func (s *Scraper) Scrape(ctx context.Context, sess scrape.Session) iter.Seq2[scrape.RemoteItem, error] {
	return func(yield func(scrape.RemoteItem, error) bool) {
		for page := 1; ; page++ {
			if page > 1 && s.opts.PageDelay > 0 {
				select {
				case <-time.After(s.opts.PageDelay):
				case <-ctx.Done():
					yield(scrape.RemoteItem{}, ctx.Err())
					return
				}
			}

			resp, err := s.fetch(ctx, page)
			if err != nil {
				yield(scrape.RemoteItem{}, err)
				return
			}

			movies := resp.Data.Movies
			if len(movies) == 0 {
				return
			}

			kept := make([]Movie, 0, len(movies))
			for _, m := range movies {
				if sess.Includes(m.Uploaded()) {
					kept = append(kept, m)
				}
			}
			if len(kept) == 0 {
				return
			}
			sort.SliceStable(kept, func(i, j int) bool {
				return kept[i].DateUploadedUnix < kept[j].DateUploadedUnix
			})

			dropped := 0
			for _, m := range kept {
				item, ok := s.toItem(m, sess)
				if !ok {
					dropped++
					continue
				}
				if !yield(item, nil) {
					return
				}
			}
			if dropped > 0 {
				s.log.Debug("dropped invalid movies", "page", page, "count", dropped)
			}

			if len(movies) < s.opts.PageSize {
				return
			}
		}
	}
}

func (s *Scraper) fetch(ctx context.Context, page int) (*ListResponse, error) {
	var resp *ListResponse
	err := retry.Do(
		func() error {
			r, err := s.lister.ListMovies(ctx, page, s.opts.PageSize)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Attempts(s.opts.MaxAttempts),
		retry.Delay(s.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warn("page request failed", "page", page, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// toItem maps a catalog entry, dropping malformed movies and torrents.
func (s *Scraper) toItem(m Movie, sess scrape.Session) (scrape.RemoteItem, bool) {
	if m.ID <= 0 {
		return scrape.RemoteItem{}, false
	}

	item := scrape.RemoteItem{
		Code: catalog.NormalizeCode(m.IMDBCode),
		Meta: catalog.Meta{
			Title:       strings.TrimSpace(m.Title),
			Year:        m.Year,
			Language:    m.Language,
			Rating:      m.Rating,
			Description: m.DescriptionFull,
			Trailer:     m.YTTrailerCode,
			Genres:      m.Genres,
			Source:      SourceName,
			SourceTime:  m.Uploaded(),
			CreatedAt:   sess.StartedAt,
			UpdatedAt:   sess.StartedAt,
		},
	}

	for _, t := range m.Torrents {
		if !s.validTorrent(t) {
			continue
		}
		item.Torrents = append(item.Torrents, catalog.Torrent{
			Source:    SourceName,
			URL:       t.URL,
			Hash:      catalog.NormalizeHash(t.Hash),
			Quality:   t.Quality,
			Type:      t.Type,
			SizeBytes: t.SizeBytes,
		})
	}

	return item, item.Valid()
}

func (s *Scraper) validTorrent(t Torrent) bool {
	if strings.TrimSpace(t.Hash) == "" || strings.TrimSpace(t.Quality) == "" || strings.TrimSpace(t.Type) == "" {
		return false
	}
	return !s.disallowed[strings.ToLower(t.Quality)] && !s.disallowed[strings.ToLower(t.Type)]
}
