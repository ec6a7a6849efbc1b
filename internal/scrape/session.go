// Package scrape drives catalog scrapers through incremental sessions and
// records each run as an auditable Scrape.
package scrape

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/vmunix/reelarr/internal/catalog"
)

// Session is the per-source incremental cursor for one scraper invocation.
type Session struct {
	Source    string
	Kind      catalog.Kind
	From      *time.Time // newest previously ingested item; nil on a first run
	StartedAt time.Time  // stamps every item the session produces
}

// Includes reports whether an item with the given source time is newer than
// the session cutoff.
func (s Session) Includes(t time.Time) bool {
	return s.From == nil || t.After(*s.From)
}

// RemoteItem is a movie and its torrents from a remote catalog.
type RemoteItem struct {
	Code     string
	Meta     catalog.Meta
	Torrents []catalog.Torrent
}

// Valid reports whether the item can be ingested.
func (it RemoteItem) Valid() bool {
	return validMeta(it.Code, it.Meta) && len(it.Torrents) > 0
}

// LocalItem is a movie observed in the local media library.
type LocalItem struct {
	Code  string
	Meta  catalog.Meta // used only when the movie is not yet cataloged
	Local catalog.LocalSource
}

// Valid reports whether the item can be ingested.
func (it LocalItem) Valid() bool {
	return strings.TrimSpace(it.Code) != "" && strings.TrimSpace(it.Meta.Title) != ""
}

// MinYear and the current year plus MaxYearAhead bound plausible release years.
const (
	MinYear      = 1870
	MaxYearAhead = 5
)

func validMeta(code string, m catalog.Meta) bool {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(m.Title) == "" {
		return false
	}
	if m.Year < MinYear || m.Year > time.Now().Year()+MaxYearAhead {
		return false
	}
	return m.Rating >= 0
}

// Scraper is implemented by every catalog scraper.
type Scraper interface {
	Name() string
	Kind() catalog.Kind
}

// RemoteScraper yields movies with torrents from a paginated catalog.
type RemoteScraper interface {
	Scraper
	Scrape(ctx context.Context, sess Session) iter.Seq2[RemoteItem, error]
}

// LocalScraper yields movies present in the local media library and can ask
// the library host to re-scan its storage.
type LocalScraper interface {
	Scraper
	Scrape(ctx context.Context, sess Session) iter.Seq2[LocalItem, error]
	Refresh(ctx context.Context) error
}
