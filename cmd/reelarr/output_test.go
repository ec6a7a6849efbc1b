package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a long ...", truncate("a long title here", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{2 * 1024 * 1024 * 1024, "2.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.in))
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "-", formatTimeAgo(time.Time{}, now))
	assert.Equal(t, "just now", formatTimeAgo(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", formatTimeAgo(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", formatTimeAgo(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", formatTimeAgo(now.Add(-50*time.Hour), now))
}

func TestMovieState(t *testing.T) {
	assert.Equal(t, "available", movieState(MovieResponse{}))
	assert.Equal(t, "downloaded", movieState(MovieResponse{Download: &DownloadResponse{Status: "downloaded"}}))

	inLib := MovieResponse{Download: &DownloadResponse{Status: "complete"}}
	inLib.Local = &struct {
		Source     string    `json:"source"`
		SourceTime time.Time `json:"source_time"`
	}{Source: "plex"}
	assert.Equal(t, "library", movieState(inLib))
}

func TestPrintScrape(t *testing.T) {
	ended := time.Now()
	var buf bytes.Buffer
	printScrape(&buf, &ScrapeResponse{
		ID:       "abc",
		Finished: true,
		Movies:   3,
		Sources: []ScrapeSourceResponse{
			{Source: "yts", Kind: "remote", EndedAt: &ended, Success: true, Movies: 3},
			{Source: "plex", Kind: "local", EndedAt: &ended, Error: "plex unavailable"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Scrape abc: failed, 3 movies")
	assert.Contains(t, out, "failed: plex unavailable")
}

func TestPrintLiveStatus(t *testing.T) {
	var buf bytes.Buffer
	printLiveStatus(&buf, &LiveStatusResponse{
		Code: "tt0000001", Name: "Foo (2020)", JobID: 4, Status: "started",
		PercentDone: 0.25, Stalled: true, ETASeconds: 90,
	})

	out := buf.String()
	assert.Contains(t, out, "25.0% (stalled)")
	assert.Contains(t, out, "1m30s")
}

func TestPrintMovies_Empty(t *testing.T) {
	var buf bytes.Buffer
	printMovies(&buf, nil, false)
	assert.Equal(t, "No movies\n", buf.String())
}
