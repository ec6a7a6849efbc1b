package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ScrapeLifecycle(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	sc := &Scrape{ID: "run-1", StartedAt: baseTime}
	require.NoError(t, store.CreateScrape(ctx, sc))

	got, err := store.GetScrape(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, got.Finished())
	assert.Empty(t, got.Sources)

	end := baseTime.Add(time.Minute)
	sc.Sources = []ScrapeSource{
		{Source: "yts", Kind: KindRemote, StartedAt: baseTime, EndedAt: &end, Success: true, Movies: 3, Torrents: 7},
		{Source: "plex", Kind: KindLocal, StartedAt: baseTime, EndedAt: &end, Error: "connection refused"},
	}
	sc.EndedAt = &end
	sc.Movies = 3
	sc.Torrents = 7
	require.NoError(t, store.SaveScrape(ctx, sc))

	got, err = store.GetScrape(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.False(t, got.Success)
	assert.Equal(t, 3, got.Movies)
	require.Len(t, got.Sources, 2)
	assert.Equal(t, "yts", got.Sources[0].Source)
	assert.Equal(t, KindRemote, got.Sources[0].Kind)
	assert.True(t, got.Sources[0].Success)
	assert.Equal(t, 7, got.Sources[0].Torrents)
	assert.Equal(t, KindLocal, got.Sources[1].Kind)
	assert.Equal(t, "connection refused", got.Sources[1].Error)
	require.NotNil(t, got.Sources[1].EndedAt)
	assert.True(t, got.Sources[1].EndedAt.Equal(end))
}

func TestStore_GetScrape_NotFound(t *testing.T) {
	store := NewStore(setupTestDB(t))
	_, err := store.GetScrape(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.SaveScrape(context.Background(), &Scrape{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListScrapes_NewestFirst(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.CreateScrape(ctx, &Scrape{ID: id, StartedAt: baseTime.Add(time.Duration(i) * time.Hour)}))
	}

	list, err := store.ListScrapes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}
