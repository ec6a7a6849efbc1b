package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEventType is returned by Decode for a type it has no decoder for.
var ErrUnknownEventType = errors.New("unknown event type")

var decoders = map[string]func(payload []byte) (Event, error){
	EventDownloadStarted:   decodeAs[DownloadStarted, *DownloadStarted],
	EventDownloadCompleted: decodeAs[DownloadCompleted, *DownloadCompleted],
	EventScrapeFinished:    decodeAs[ScrapeFinished, *ScrapeFinished],
}

func decodeAs[T any, P interface {
	*T
	Event
}](payload []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return P(&v), nil
}

// Decode restores the concrete event persisted as raw.
func Decode(raw RawEvent) (Event, error) {
	decode, ok := decoders[raw.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, raw.EventType)
	}
	e, err := decode([]byte(raw.Payload))
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", raw.EventType, err)
	}
	return e, nil
}

// Describe renders e as a single line for logs and listings.
func Describe(e Event) string {
	switch e := e.(type) {
	case *DownloadStarted:
		return fmt.Sprintf("%s: downloading %s (%s %s, job %d)", e.Code, e.Name, e.Quality, e.TorrentType, e.JobID)
	case *DownloadCompleted:
		return fmt.Sprintf("%s: in the library", e.Code)
	case *ScrapeFinished:
		if e.Success {
			return fmt.Sprintf("scrape %s: %d movies, %d torrents", e.ScrapeID, e.Movies, e.Torrents)
		}
		failed := make([]string, len(e.Failures))
		for i, f := range e.Failures {
			failed[i] = f.Source
		}
		return fmt.Sprintf("scrape %s: %d movies, %d torrents, failed: %s",
			e.ScrapeID, e.Movies, e.Torrents, strings.Join(failed, ", "))
	default:
		return fmt.Sprintf("%s %s/%s", e.EventType(), e.EntityType(), e.EntityID())
	}
}
