package catalog

import (
	"database/sql"
	"testing"
	"time"

	"github.com/vmunix/reelarr/internal/migrations"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testMeta(title string, year int, sourceAt time.Time) Meta {
	return Meta{
		Title:      title,
		Year:       year,
		Language:   "en",
		Rating:     7.5,
		Genres:     []string{"Drama"},
		Source:     "yts",
		SourceTime: sourceAt,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
}

func testTorrent(hash, quality, typ string) Torrent {
	return Torrent{
		Source:    "yts",
		URL:       "https://yts.example/torrent/" + hash,
		Hash:      hash,
		Quality:   quality,
		Type:      typ,
		SizeBytes: 1 << 30,
	}
}
