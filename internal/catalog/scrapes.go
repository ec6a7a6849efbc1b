package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateScrape inserts a new pending scrape record.
func (s *Store) CreateScrape(ctx context.Context, sc *Scrape) error {
	if sc.ID == "" {
		return errors.New("scrape id required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrapes (id, started_at, ended_at, success, movies, torrents)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sc.ID, nanos(sc.StartedAt), nullNanos(sc.EndedAt), sc.Success, sc.Movies, sc.Torrents,
	)
	if err != nil {
		return fmt.Errorf("insert scrape %s: %w", sc.ID, err)
	}
	return nil
}

// SaveScrape overwrites the scrape record and all its source sub-records.
func (s *Store) SaveScrape(ctx context.Context, sc *Scrape) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE scrapes SET started_at = ?, ended_at = ?, success = ?, movies = ?, torrents = ?
			WHERE id = ?`,
			nanos(sc.StartedAt), nullNanos(sc.EndedAt), sc.Success, sc.Movies, sc.Torrents, sc.ID,
		)
		if err != nil {
			return fmt.Errorf("update scrape %s: %w", sc.ID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("scrape %s: %w", sc.ID, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM scrape_sources WHERE scrape_id = ?`, sc.ID); err != nil {
			return fmt.Errorf("clear scrape sources %s: %w", sc.ID, err)
		}
		for i, src := range sc.Sources {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO scrape_sources (scrape_id, position, source, kind, started_at, ended_at, success, error, movies, torrents)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sc.ID, i, src.Source, string(src.Kind), nanos(src.StartedAt), nullNanos(src.EndedAt),
				src.Success, src.Error, src.Movies, src.Torrents,
			)
			if err != nil {
				return fmt.Errorf("insert scrape source %s/%s: %w", sc.ID, src.Source, err)
			}
		}
		return nil
	})
}

// GetScrape loads a scrape record with its sources.
func (s *Store) GetScrape(ctx context.Context, id string) (*Scrape, error) {
	sc := &Scrape{ID: id}
	var startedAt int64
	var endedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT started_at, ended_at, success, movies, torrents FROM scrapes WHERE id = ?`, id,
	).Scan(&startedAt, &endedAt, &sc.Success, &sc.Movies, &sc.Torrents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scrape %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", id, err)
	}
	sc.StartedAt = fromNanos(startedAt)
	sc.EndedAt = fromNullNanos(endedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, kind, started_at, ended_at, success, error, movies, torrents
		FROM scrape_sources WHERE scrape_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("scrape sources %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var src ScrapeSource
		var kind string
		var started int64
		var ended sql.NullInt64
		if err := rows.Scan(&src.Source, &kind, &started, &ended, &src.Success, &src.Error, &src.Movies, &src.Torrents); err != nil {
			return nil, fmt.Errorf("scan scrape source: %w", err)
		}
		src.Kind = Kind(kind)
		src.StartedAt = fromNanos(started)
		src.EndedAt = fromNullNanos(ended)
		sc.Sources = append(sc.Sources, src)
	}
	return sc, rows.Err()
}

// ListScrapes returns the most recent scrape records, newest first.
func (s *Store) ListScrapes(ctx context.Context, limit int) ([]*Scrape, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM scrapes ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scrapes: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan scrape id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate scrapes: %w", err)
	}
	_ = rows.Close()

	out := make([]*Scrape, 0, len(ids))
	for _, id := range ids {
		sc, err := s.GetScrape(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}
