// Package catalog holds the unified movie catalog: movies, their torrents, local
// library presence, download records, and scrape audit records.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes remote catalogs from the local media library.
type Kind string

const (
	KindRemote Kind = "remote"
	KindLocal  Kind = "local"
)

// NormalizeCode canonicalizes an external catalog code (e.g. "  TT0111161 " -> "tt0111161").
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Meta is the descriptive metadata of a movie.
type Meta struct {
	Title       string
	Year        int
	Language    string
	Rating      float64
	Description string
	Trailer     string
	Genres      []string
	Source      string
	// SourceTime is the timestamp the source reports for the item (upload or
	// library-add time). It drives the incremental scrape cursor.
	SourceTime time.Time
	CreatedAt  time.Time // first seen
	UpdatedAt  time.Time // last scraped
}

// Torrent is one downloadable release of a movie.
type Torrent struct {
	Source    string
	URL       string
	Hash      string
	Quality   string
	Type      string
	SizeBytes int64
}

// NormalizeHash canonicalizes an info-hash for set-union comparisons.
func NormalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

// LocalSource marks a movie as present in the local media library.
type LocalSource struct {
	Source     string
	SourceTime time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DownloadStatus is totally ordered: Started < Downloaded < Complete.
type DownloadStatus int

const (
	StatusStarted DownloadStatus = iota + 1
	StatusDownloaded
	StatusComplete
)

func (s DownloadStatus) String() string {
	switch s {
	case StatusStarted:
		return "started"
	case StatusDownloaded:
		return "downloaded"
	case StatusComplete:
		return "complete"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s DownloadStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DownloadStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "started":
		*s = StatusStarted
	case "downloaded":
		*s = StatusDownloaded
	case "complete":
		*s = StatusComplete
	default:
		return fmt.Errorf("unknown download status %q", string(b))
	}
	return nil
}

// StatusEvent is one entry of a download's append-only status log.
type StatusEvent struct {
	Status DownloadStatus
	At     time.Time
}

// LiveStats is the last view of the job the daemon reported.
type LiveStats struct {
	PercentDone float64
	Stalled     bool
	ETA         int64
	DownloadDir string
	Files       []string
	At          time.Time
}

// Download tracks an in-flight acquisition of a movie.
type Download struct {
	JobID   int64 // daemon job id
	Name    string
	Magnet  string
	Source  string
	Quality string
	Type    string
	Events  []StatusEvent
	Live    *LiveStats // nil until the first poll
}

// Status is derived from the status log: the most recent event wins, and ties
// resolve to the higher status.
func (d *Download) Status() DownloadStatus {
	var cur StatusEvent
	for i, e := range d.Events {
		if i == 0 || e.At.After(cur.At) || (e.At.Equal(cur.At) && e.Status > cur.Status) {
			cur = e
		}
	}
	return cur.Status
}

// StartedAt returns the time of the first status event.
func (d *Download) StartedAt() time.Time {
	if len(d.Events) == 0 {
		return time.Time{}
	}
	first := d.Events[0].At
	for _, e := range d.Events[1:] {
		if e.At.Before(first) {
			first = e.At
		}
	}
	return first
}

// Movie is the unified catalog record for one title.
type Movie struct {
	Code     string
	Meta     Meta
	Torrents []Torrent
	Local    *LocalSource // nil when not in the local library
	Download *Download    // nil when not downloading
}

// DisplayName is the canonical "{title} ({year})" name used for daemon jobs and library folders.
func (m *Movie) DisplayName() string {
	return fmt.Sprintf("%s (%d)", m.Meta.Title, m.Meta.Year)
}

// Scrape is the audit record of one orchestration run.
type Scrape struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	Success   bool
	Movies    int
	Torrents  int
	Sources   []ScrapeSource
}

// ScrapeSource is the audit record of one scraper invocation within a run.
type ScrapeSource struct {
	Source    string
	Kind      Kind
	StartedAt time.Time
	EndedAt   *time.Time
	Success   bool
	Error     string
	Movies    int
	Torrents  int
}

// Finished reports whether the run has ended.
func (s *Scrape) Finished() bool {
	return s.EndedAt != nil
}
