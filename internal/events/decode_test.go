package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ScrapeFinished(t *testing.T) {
	raw := RawEvent{
		EventType: EventScrapeFinished,
		Payload:   `{"type":"scrape.finished","entity_type":"scrape","entity_id":"run-1","occurred_at":"2024-01-01T00:00:00Z","scrape_id":"run-1","success":false,"movies":4,"torrents":9,"failures":[{"source":"plex","kind":"local","error":"connection refused"}]}`,
	}

	e, err := Decode(raw)
	require.NoError(t, err)

	finished, ok := e.(*ScrapeFinished)
	require.True(t, ok)
	assert.Equal(t, "run-1", finished.ScrapeID)
	assert.Equal(t, "run-1", finished.EntityID())
	assert.Equal(t, 4, finished.Movies)
	require.Len(t, finished.Failures, 1)
	assert.Equal(t, "plex", finished.Failures[0].Source)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(RawEvent{EventType: "movie.deleted", Payload: `{}`})
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = Decode(RawEvent{EventType: EventDownloadCompleted, Payload: `{invalid json`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode download.completed payload")
}

func TestDecode_LoggedEvents(t *testing.T) {
	log := NewEventLog(setupTestDB(t))
	ctx := context.Background()

	_, err := log.Append(ctx, NewDownloadStarted("tt1", 3, "Foo (2020)", "720p", "bluray"))
	require.NoError(t, err)
	_, err = log.Append(ctx, NewDownloadCompleted("tt1"))
	require.NoError(t, err)

	stored, err := log.ForEntity(ctx, EntityMovie, "tt1")
	require.NoError(t, err)
	require.Len(t, stored, 2)

	first, err := Decode(stored[0])
	require.NoError(t, err)
	started, ok := first.(*DownloadStarted)
	require.True(t, ok)
	assert.Equal(t, int64(3), started.JobID)
	assert.Equal(t, "bluray", started.TorrentType)

	second, err := Decode(stored[1])
	require.NoError(t, err)
	assert.IsType(t, &DownloadCompleted{}, second)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"started", NewDownloadStarted("tt1", 3, "Foo (2020)", "720p", "bluray"), "tt1: downloading Foo (2020) (720p bluray, job 3)"},
		{"completed", NewDownloadCompleted("tt1"), "tt1: in the library"},
		{"scrape ok", &ScrapeFinished{ScrapeID: "run-1", Success: true, Movies: 2, Torrents: 5}, "scrape run-1: 2 movies, 5 torrents"},
		{"scrape failed", &ScrapeFinished{ScrapeID: "run-2", Movies: 1, Failures: []SourceFailure{{Source: "yts"}, {Source: "plex"}}},
			"scrape run-2: 1 movies, 0 torrents, failed: yts, plex"},
		{"other", BaseEvent{Type: "movie.seen", Entity: EntityMovie, ID: "tt9"}, "movie.seen movie/tt9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.event))
		})
	}
}
