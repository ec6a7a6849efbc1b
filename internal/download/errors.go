package download

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the download package.
var (
	// ErrAlreadyDownloaded is returned when the movie is already in the local library.
	ErrAlreadyDownloaded = errors.New("movie already downloaded")

	// ErrAlreadyDownloading is returned when the movie already has a download.
	ErrAlreadyDownloading = errors.New("movie already downloading")

	// ErrNoAcceptableTorrent is returned when no torrent matches the quality and type preferences.
	ErrNoAcceptableTorrent = errors.New("no acceptable torrent")

	// ErrNoTrackers is returned when no tracker URLs are configured for magnet links.
	ErrNoTrackers = errors.New("no trackers configured")

	// ErrInvalidHash is returned when a torrent's info-hash cannot be used in a magnet link.
	ErrInvalidHash = errors.New("invalid info-hash")

	// ErrDuplicateTorrent is returned when the daemon already has a torrent with the same name.
	ErrDuplicateTorrent = errors.New("torrent already in daemon")

	// ErrNotDownloading is returned when the movie has no download record.
	ErrNotDownloading = errors.New("movie not downloading")

	// ErrNoLiveStats is returned when completion has no recorded download directory or files.
	ErrNoLiveStats = errors.New("no live stats recorded")

	// ErrNotConfirmed is returned when the library re-scan did not find the movie.
	ErrNotConfirmed = errors.New("download not confirmed in library")
)

// Error is a download lifecycle failure with enough context to describe it.
type Error struct {
	Op      string // start, complete, status
	Code    string
	Quality string
	Type    string
	JobID   int64
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Op, e.Code)
	if e.Quality != "" || e.Type != "" {
		fmt.Fprintf(&b, " [%s/%s]", orAny(e.Quality), orAny(e.Type))
	}
	if e.JobID != 0 {
		fmt.Fprintf(&b, " (job %d)", e.JobID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}
