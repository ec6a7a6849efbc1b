package plex

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Sections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("X-Plex-Token"))

		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer>
  <Directory key="1" title="Movies" type="movie">
    <Location path="/movies"/>
  </Directory>
  <Directory key="2" title="TV Shows" type="show">
    <Location path="/tv"/>
  </Directory>
</MediaContainer>`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second, testLogger())
	sections, err := client.Sections(context.Background())
	require.NoError(t, err)

	require.Len(t, sections, 2)
	assert.Equal(t, "1", sections[0].Key)
	assert.True(t, sections[0].IsMovie())
	assert.False(t, sections[1].IsMovie())
	assert.Equal(t, "/movies", sections[0].Locations[0].Path)
}

func TestClient_ListItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections/1/all", r.URL.Path)
		_, _ = w.Write([]byte(`<MediaContainer size="2">
  <Video ratingKey="100" title="The Matrix" year="1999" type="movie" addedAt="1700000000"/>
  <Video ratingKey="101" title="Heat" year="1995" type="movie" addedAt="1700000500"/>
</MediaContainer>`))
	}))
	defer server.Close()

	items, err := NewClient(server.URL, "tok", time.Second, testLogger()).ListItems(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "100", items[0].RatingKey)
	assert.Equal(t, time.Unix(1700000500, 0), items[1].Added())
}

func TestClient_Metadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/metadata/100", r.URL.Path)
		_, _ = w.Write([]byte(`<MediaContainer size="1">
  <Video ratingKey="100" title="The Matrix" year="1999" summary="A hacker learns the truth." rating="8.7" addedAt="1700000000" guid="plex://movie/5d776">
    <Genre tag="Action"/>
    <Genre tag="Science Fiction"/>
    <Guid id="tmdb://603"/>
    <Guid id="imdb://tt0133093"/>
  </Video>
</MediaContainer>`))
	}))
	defer server.Close()

	d, err := NewClient(server.URL, "tok", time.Second, testLogger()).Metadata(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", d.Title)
	assert.Equal(t, 1999, d.Year)
	assert.InDelta(t, 8.7, d.Rating, 0.001)
	assert.Equal(t, []string{"Action", "Science Fiction"}, d.GenreNames())
	assert.Equal(t, "tt0133093", d.IMDBCode())
}

func TestClient_Metadata_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<MediaContainer size="0"></MediaContainer>`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "tok", time.Second, testLogger()).Metadata(context.Background(), "9")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestDetail_IMDBCode(t *testing.T) {
	tests := []struct {
		name   string
		detail Detail
		want   string
	}{
		{"guid element", Detail{GUIDs: []Tag{{ID: "imdb://tt0111161"}}}, "tt0111161"},
		{"legacy agent", Detail{GUID: "com.plexapp.agents.imdb://tt0111161?lang=en"}, "tt0111161"},
		{"uppercase", Detail{GUIDs: []Tag{{ID: "IMDB://TT0111161"}}}, "tt0111161"},
		{"tmdb only", Detail{GUID: "plex://movie/abc", GUIDs: []Tag{{ID: "tmdb://278"}}}, ""},
		{"none", Detail{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.detail.IMDBCode())
		})
	}
}

func TestClient_RefreshSection(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections/3/refresh", r.URL.Path)
		called = true
	}))
	defer server.Close()

	require.NoError(t, NewClient(server.URL, "tok", time.Second, testLogger()).RefreshSection(context.Background(), "3"))
	assert.True(t, called)
}

func TestClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/library/sections":
			w.WriteHeader(http.StatusUnauthorized)
		case "/library/sections/1/all":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`not xml <`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", time.Second, testLogger())
	_, err := client.Sections(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = client.ListItems(context.Background(), "1")
	assert.ErrorIs(t, err, ErrBadResponse)

	_, err = client.Metadata(context.Background(), "1")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestClient_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewClient(server.URL, "secret-token", time.Second, testLogger()).Sections(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotContains(t, err.Error(), "secret-token")
}
