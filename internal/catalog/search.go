package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MovieFilter narrows ListMovies.
type MovieFilter string

const (
	FilterAll         MovieFilter = ""
	FilterDownloading MovieFilter = "downloading"
	FilterInLibrary   MovieFilter = "library"
	FilterAvailable   MovieFilter = "available" // neither downloading nor in the library
)

// ParseMovieFilter validates a filter name.
func ParseMovieFilter(s string) (MovieFilter, error) {
	switch f := MovieFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterAll, FilterDownloading, FilterInLibrary, FilterAvailable:
		return f, nil
	default:
		return "", fmt.Errorf("unknown movie filter %q", s)
	}
}

// ListMovies returns cataloged movies, newest source time first.
func (s *Store) ListMovies(ctx context.Context, filter MovieFilter, limit int) ([]*Movie, error) {
	query := `SELECT m.code FROM movies m`
	switch filter {
	case FilterDownloading:
		query += ` JOIN downloads d ON d.code = m.code`
	case FilterInLibrary:
		query += ` JOIN local_sources l ON l.code = m.code`
	case FilterAvailable:
		query += ` WHERE NOT EXISTS (SELECT 1 FROM downloads d WHERE d.code = m.code)
			AND NOT EXISTS (SELECT 1 FROM local_sources l WHERE l.code = m.code)`
	}
	query += ` ORDER BY m.source_at DESC, m.code`
	if limit <= 0 {
		limit = -1
	}
	query += ` LIMIT ?`
	return s.listByQuery(ctx, query, limit)
}

// SearchResult is one ranked title match.
type SearchResult struct {
	Movie *Movie
	Score float64
}

// minSearchScore drops matches too weak to be useful.
const minSearchScore = 0.70

// Search ranks cataloged movies by Jaro-Winkler similarity of their normalized
// titles to the query. Substring matches always score 1.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q := NormalizeTitle(query)
	if q == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT code, title FROM movies`)
	if err != nil {
		return nil, fmt.Errorf("search movies: %w", err)
	}
	type hit struct {
		code  string
		score float64
	}
	var hits []hit
	for rows.Next() {
		var code, title string
		if err := rows.Scan(&code, &title); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan title: %w", err)
		}
		if score := titleScore(q, NormalizeTitle(title)); score >= minSearchScore {
			hits = append(hits, hit{code: code, score: score})
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	_ = rows.Close()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].code < hits[j].code
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		m, err := findByCode(ctx, s.db, h.code)
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Movie: m, Score: h.score})
	}
	return out, nil
}

func titleScore(query, title string) float64 {
	if title == "" {
		return 0
	}
	if strings.Contains(title, query) {
		return 1
	}
	return float64(edlib.JaroWinklerSimilarity(query, title))
}

// NormalizeTitle folds a title for matching: lowercase, accents removed,
// punctuation dropped, leading article stripped, whitespace collapsed.
func NormalizeTitle(title string) string {
	s := strings.ToLower(title)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	s = strings.NewReplacer("&", " and ", "-", " ", "'", "", ".", " ", ":", " ").Replace(s)

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	fields := strings.Fields(b.String())
	if len(fields) > 1 {
		switch fields[0] {
		case "the", "a", "an":
			fields = fields[1:]
		}
	}
	return strings.Join(fields, " ")
}
