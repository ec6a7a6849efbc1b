package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store persists the catalog in SQLite. Every mutation is addressed by a
// movie's catalog code.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a catalog store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64)
	return &t
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func movieExists(ctx context.Context, q querier, code string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies WHERE code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check movie %s: %w", code, err)
	}
	return n > 0, nil
}

// UpsertMeta inserts or replaces a movie's metadata and merges torrents into its
// torrent set by info-hash. First-seen time is preserved on replace.
func (s *Store) UpsertMeta(ctx context.Context, code string, meta Meta, torrents []Torrent) error {
	code = NormalizeCode(code)
	if code == "" {
		return ErrInvalidCode
	}
	genres, err := json.Marshal(nonNil(meta.Genres))
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO movies (code, title, year, language, rating, description, trailer, genres, source, source_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(code) DO UPDATE SET
				title = excluded.title,
				year = excluded.year,
				language = excluded.language,
				rating = excluded.rating,
				description = excluded.description,
				trailer = excluded.trailer,
				genres = excluded.genres,
				source = excluded.source,
				source_at = excluded.source_at,
				updated_at = excluded.updated_at`,
			code, meta.Title, meta.Year, meta.Language, meta.Rating, meta.Description, meta.Trailer,
			string(genres), meta.Source, nanos(meta.SourceTime), nanos(meta.CreatedAt), nanos(meta.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert movie %s: %w", code, err)
		}

		for _, t := range torrents {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO torrents (code, hash, source, url, quality, type, size_bytes)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(code, hash) DO UPDATE SET
					source = excluded.source,
					url = excluded.url,
					quality = excluded.quality,
					type = excluded.type,
					size_bytes = excluded.size_bytes`,
				code, NormalizeHash(t.Hash), t.Source, t.URL, t.Quality, t.Type, t.SizeBytes,
			)
			if err != nil {
				return fmt.Errorf("merge torrent %s/%s: %w", code, t.Hash, err)
			}
		}
		return nil
	})
}

// InsertMetaIfAbsent creates the movie with the given metadata only if it does
// not exist yet. Existing metadata is left untouched.
func (s *Store) InsertMetaIfAbsent(ctx context.Context, code string, meta Meta) error {
	code = NormalizeCode(code)
	if code == "" {
		return ErrInvalidCode
	}
	genres, err := json.Marshal(nonNil(meta.Genres))
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO movies (code, title, year, language, rating, description, trailer, genres, source, source_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO NOTHING`,
		code, meta.Title, meta.Year, meta.Language, meta.Rating, meta.Description, meta.Trailer,
		string(genres), meta.Source, nanos(meta.SourceTime), nanos(meta.CreatedAt), nanos(meta.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert movie %s: %w", code, err)
	}
	return nil
}

// SetLocalSource records that the movie is present in the local library. A
// download that has already reached Complete is superseded and removed.
func (s *Store) SetLocalSource(ctx context.Context, code string, src LocalSource) error {
	code = NormalizeCode(code)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := movieExists(ctx, tx, code)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("set local source %s: %w", code, ErrNotFound)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO local_sources (code, source, source_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(code) DO UPDATE SET
				source = excluded.source,
				source_at = excluded.source_at,
				updated_at = excluded.updated_at`,
			code, src.Source, nanos(src.SourceTime), nanos(src.CreatedAt), nanos(src.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("set local source %s: %w", code, err)
		}

		d, err := getDownload(ctx, tx, code)
		if err != nil {
			return err
		}
		if d != nil && d.Status() == StatusComplete {
			return deleteDownload(ctx, tx, code)
		}
		return nil
	})
}

// LatestSourceTime returns the newest item timestamp ingested from source, or
// nil if nothing has been ingested from it yet.
func (s *Store) LatestSourceTime(ctx context.Context, source string, kind Kind) (*time.Time, error) {
	query := `SELECT MAX(source_at) FROM movies WHERE source = ? AND source_at > 0`
	if kind == KindLocal {
		query = `SELECT MAX(source_at) FROM local_sources WHERE source = ? AND source_at > 0`
	}

	var latest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, source).Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest source time %s/%s: %w", kind, source, err)
	}
	return fromNullNanos(latest), nil
}

// FindByCode loads a movie with its torrents, local source, and download.
// Returns ErrNotFound if the movie does not exist.
func (s *Store) FindByCode(ctx context.Context, code string) (*Movie, error) {
	return findByCode(ctx, s.db, NormalizeCode(code))
}

// FindByJobID loads the movie whose download is tracked under the daemon job id.
func (s *Store) FindByJobID(ctx context.Context, jobID int64) (*Movie, error) {
	var code string
	err := s.db.QueryRowContext(ctx, `SELECT code FROM downloads WHERE job_id = ?`, jobID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("download job %d: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("download job %d: %w", jobID, err)
	}
	return findByCode(ctx, s.db, code)
}

func findByCode(ctx context.Context, q querier, code string) (*Movie, error) {
	m := &Movie{Code: code}
	var genres string
	var sourceAt, createdAt, updatedAt int64
	err := q.QueryRowContext(ctx, `
		SELECT title, year, language, rating, description, trailer, genres, source, source_at, created_at, updated_at
		FROM movies WHERE code = ?`, code,
	).Scan(&m.Meta.Title, &m.Meta.Year, &m.Meta.Language, &m.Meta.Rating, &m.Meta.Description, &m.Meta.Trailer,
		&genres, &m.Meta.Source, &sourceAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movie %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("movie %s: %w", code, err)
	}
	m.Meta.SourceTime = fromNanos(sourceAt)
	m.Meta.CreatedAt = fromNanos(createdAt)
	m.Meta.UpdatedAt = fromNanos(updatedAt)
	if err := json.Unmarshal([]byte(genres), &m.Meta.Genres); err != nil {
		return nil, fmt.Errorf("movie %s genres: %w", code, err)
	}

	if m.Torrents, err = getTorrents(ctx, q, code); err != nil {
		return nil, err
	}
	if m.Local, err = getLocalSource(ctx, q, code); err != nil {
		return nil, err
	}
	if m.Download, err = getDownload(ctx, q, code); err != nil {
		return nil, err
	}
	return m, nil
}

func getTorrents(ctx context.Context, q querier, code string) ([]Torrent, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT source, url, hash, quality, type, size_bytes
		FROM torrents WHERE code = ? ORDER BY rowid`, code)
	if err != nil {
		return nil, fmt.Errorf("list torrents %s: %w", code, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Torrent
	for rows.Next() {
		var t Torrent
		if err := rows.Scan(&t.Source, &t.URL, &t.Hash, &t.Quality, &t.Type, &t.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan torrent: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func getLocalSource(ctx context.Context, q querier, code string) (*LocalSource, error) {
	var l LocalSource
	var sourceAt, createdAt, updatedAt int64
	err := q.QueryRowContext(ctx, `
		SELECT source, source_at, created_at, updated_at FROM local_sources WHERE code = ?`, code,
	).Scan(&l.Source, &sourceAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("local source %s: %w", code, err)
	}
	l.SourceTime = fromNanos(sourceAt)
	l.CreatedAt = fromNanos(createdAt)
	l.UpdatedAt = fromNanos(updatedAt)
	return &l, nil
}

func getDownload(ctx context.Context, q querier, code string) (*Download, error) {
	d := &Download{}
	var stalled bool
	var files string
	var liveAt sql.NullInt64
	var live LiveStats
	err := q.QueryRowContext(ctx, `
		SELECT job_id, name, magnet, source, quality, type, percent_done, stalled, eta, download_dir, files, live_at
		FROM downloads WHERE code = ?`, code,
	).Scan(&d.JobID, &d.Name, &d.Magnet, &d.Source, &d.Quality, &d.Type,
		&live.PercentDone, &stalled, &live.ETA, &live.DownloadDir, &files, &liveAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", code, err)
	}
	if liveAt.Valid {
		live.Stalled = stalled
		live.At = time.Unix(0, liveAt.Int64)
		if err := json.Unmarshal([]byte(files), &live.Files); err != nil {
			return nil, fmt.Errorf("download %s files: %w", code, err)
		}
		d.Live = &live
	}

	rows, err := q.QueryContext(ctx, `
		SELECT status, at FROM download_events WHERE code = ? ORDER BY id`, code)
	if err != nil {
		return nil, fmt.Errorf("download events %s: %w", code, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var e StatusEvent
		var at int64
		if err := rows.Scan(&e.Status, &at); err != nil {
			return nil, fmt.Errorf("scan download event: %w", err)
		}
		e.At = fromNanos(at)
		d.Events = append(d.Events, e)
	}
	return d, rows.Err()
}

func deleteDownload(ctx context.Context, q querier, code string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM download_events WHERE code = ?`, code); err != nil {
		return fmt.Errorf("delete download events %s: %w", code, err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM downloads WHERE code = ?`, code); err != nil {
		return fmt.Errorf("delete download %s: %w", code, err)
	}
	return nil
}

// ReplaceDownload sets the movie's download record; nil removes it.
func (s *Store) ReplaceDownload(ctx context.Context, code string, d *Download) error {
	code = NormalizeCode(code)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := movieExists(ctx, tx, code)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("replace download %s: %w", code, ErrNotFound)
		}

		if err := deleteDownload(ctx, tx, code); err != nil {
			return err
		}
		if d == nil {
			return nil
		}

		live := LiveStats{}
		var liveAt sql.NullInt64
		if d.Live != nil {
			live = *d.Live
			liveAt = sql.NullInt64{Int64: live.At.UnixNano(), Valid: true}
		}
		files, err := json.Marshal(nonNil(live.Files))
		if err != nil {
			return fmt.Errorf("marshal files: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO downloads (code, job_id, name, magnet, source, quality, type, percent_done, stalled, eta, download_dir, files, live_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			code, d.JobID, d.Name, d.Magnet, d.Source, d.Quality, d.Type,
			live.PercentDone, live.Stalled, live.ETA, live.DownloadDir, string(files), liveAt,
		)
		if err != nil {
			return fmt.Errorf("insert download %s: %w", code, err)
		}

		var last DownloadStatus
		for _, e := range d.Events {
			if e.Status < last {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, last, e.Status)
			}
			last = e.Status
			if err := insertEvent(ctx, tx, code, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertEvent(ctx context.Context, q querier, code string, e StatusEvent) error {
	_, err := q.ExecContext(ctx, `INSERT INTO download_events (code, status, at) VALUES (?, ?, ?)`,
		code, int(e.Status), nanos(e.At))
	if err != nil {
		return fmt.Errorf("insert download event %s: %w", code, err)
	}
	return nil
}

// AppendDownloadStatus appends a status event. Events never move a download
// backwards; an older status returns ErrInvalidTransition.
func (s *Store) AppendDownloadStatus(ctx context.Context, code string, e StatusEvent) error {
	code = NormalizeCode(code)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		d, err := getDownload(ctx, tx, code)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("append status %s: %w", code, ErrNotFound)
		}
		if cur := d.Status(); e.Status < cur {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, e.Status)
		}
		return insertEvent(ctx, tx, code, e)
	})
}

// UpdateLiveStats records the daemon's latest view of a download without
// touching its status log.
func (s *Store) UpdateLiveStats(ctx context.Context, code string, live LiveStats) error {
	code = NormalizeCode(code)
	files, err := json.Marshal(nonNil(live.Files))
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE downloads SET percent_done = ?, stalled = ?, eta = ?, download_dir = ?, files = ?, live_at = ?
		WHERE code = ?`,
		live.PercentDone, live.Stalled, live.ETA, live.DownloadDir, string(files), nanos(live.At), code,
	)
	if err != nil {
		return fmt.Errorf("update live stats %s: %w", code, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update live stats %s: %w", code, ErrNotFound)
	}
	return nil
}

// ListDownloads returns every movie that currently has a download record,
// ordered by catalog code.
func (s *Store) ListDownloads(ctx context.Context) ([]*Movie, error) {
	return s.listByQuery(ctx, `SELECT code FROM downloads ORDER BY code`)
}

func (s *Store) listByQuery(ctx context.Context, query string, args ...any) ([]*Movie, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	_ = rows.Close()

	movies := make([]*Movie, 0, len(codes))
	for _, code := range codes {
		m, err := findByCode(ctx, s.db, code)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
