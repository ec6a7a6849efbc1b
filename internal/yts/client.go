// Package yts scrapes the YTS movie catalog.
package yts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnavailable indicates the catalog API could not be reached.
	ErrUnavailable = errors.New("yts unavailable")

	// ErrBadResponse indicates a non-ok status or an undecodable body.
	ErrBadResponse = errors.New("yts bad response")
)

// ListResponse is the list_movies envelope.
type ListResponse struct {
	Status        string   `json:"status"`
	StatusMessage string   `json:"status_message"`
	Data          ListData `json:"data"`
}

// ListData is the paginated payload.
type ListData struct {
	MovieCount int     `json:"movie_count"`
	Limit      int     `json:"limit"`
	PageNumber int     `json:"page_number"`
	Movies     []Movie `json:"movies"`
}

// Movie is one catalog entry.
type Movie struct {
	ID               int       `json:"id"`
	IMDBCode         string    `json:"imdb_code"`
	Title            string    `json:"title"`
	Year             int       `json:"year"`
	Rating           float64   `json:"rating"`
	Genres           []string  `json:"genres"`
	DescriptionFull  string    `json:"description_full"`
	YTTrailerCode    string    `json:"yt_trailer_code"`
	Language         string    `json:"language"`
	DateUploadedUnix int64     `json:"date_uploaded_unix"`
	Torrents         []Torrent `json:"torrents"`
}

// Uploaded returns the upload time.
func (m Movie) Uploaded() time.Time {
	return time.Unix(m.DateUploadedUnix, 0)
}

// Torrent is one release of a catalog entry.
type Torrent struct {
	URL       string `json:"url"`
	Hash      string `json:"hash"`
	Quality   string `json:"quality"`
	Type      string `json:"type"`
	SizeBytes int64  `json:"size_bytes"`
}

// Client is a YTS API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. "https://yts.mx/api/v2").
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("component", "yts"),
	}
}

// ListMovies fetches one page, newest uploads first.
func (c *Client) ListMovies(ctx context.Context, page, limit int) (*ListResponse, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort_by", "date_added")
	params.Set("order_by", "desc")
	reqURL := c.baseURL + "/list_movies.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", ErrBadResponse, resp.StatusCode)
	}

	var out ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrBadResponse, err)
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("%w: status %q: %s", ErrBadResponse, out.Status, out.StatusMessage)
	}

	c.log.Debug("page fetched", "page", page, "movies", len(out.Data.Movies), "duration_ms", time.Since(start).Milliseconds())
	return &out, nil
}
