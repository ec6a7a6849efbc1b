// Package plex reads the local Plex library and triggers library scans.
package plex

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrUnavailable indicates the media server could not be reached.
	ErrUnavailable = errors.New("plex unavailable")

	// ErrUnauthorized indicates the token was rejected.
	ErrUnauthorized = errors.New("plex unauthorized")

	// ErrBadResponse indicates an unexpected status or undecodable XML.
	ErrBadResponse = errors.New("plex bad response")
)

// Client interacts with the Plex Media Server API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a new Plex client.
func NewClient(baseURL, token string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("component", "plex"),
	}
}

// Section represents a Plex library section.
type Section struct {
	Key       string     `xml:"key,attr"`
	Title     string     `xml:"title,attr"`
	Type      string     `xml:"type,attr"`
	Locations []Location `xml:"Location"`
}

// IsMovie reports whether the section holds movies.
func (s Section) IsMovie() bool {
	return s.Type == "movie"
}

// Location represents a library section's filesystem location.
type Location struct {
	Path string `xml:"path,attr"`
}

type sectionsResponse struct {
	XMLName  xml.Name  `xml:"MediaContainer"`
	Sections []Section `xml:"Directory"`
}

// Item is the lightweight listing of a library item.
type Item struct {
	RatingKey string `xml:"ratingKey,attr"`
	Title     string `xml:"title,attr"`
	Year      int    `xml:"year,attr"`
	Type      string `xml:"type,attr"`
	AddedAt   int64  `xml:"addedAt,attr"`
}

// Added returns the time the item was added to the library.
func (it Item) Added() time.Time {
	return time.Unix(it.AddedAt, 0)
}

type itemsResponse struct {
	XMLName xml.Name `xml:"MediaContainer"`
	Videos  []Item   `xml:"Video"`
}

// Tag is a Genre or Guid child element.
type Tag struct {
	Tag string `xml:"tag,attr"`
	ID  string `xml:"id,attr"`
}

// Detail is the full metadata of one item.
type Detail struct {
	RatingKey string  `xml:"ratingKey,attr"`
	Title     string  `xml:"title,attr"`
	Year      int     `xml:"year,attr"`
	Summary   string  `xml:"summary,attr"`
	Rating    float64 `xml:"rating,attr"`
	AddedAt   int64   `xml:"addedAt,attr"`
	GUID      string  `xml:"guid,attr"`
	Genres    []Tag   `xml:"Genre"`
	GUIDs     []Tag   `xml:"Guid"`
}

// Added returns the time the item was added to the library.
func (d Detail) Added() time.Time {
	return time.Unix(d.AddedAt, 0)
}

// GenreNames returns the genre tags.
func (d Detail) GenreNames() []string {
	out := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		if g.Tag != "" {
			out = append(out, g.Tag)
		}
	}
	return out
}

var imdbCode = regexp.MustCompile(`(?i)imdb://(tt\d+)`)

// IMDBCode extracts the IMDB code from the item's external ids, accepting both
// the current agent form (<Guid id="imdb://tt..."/>) and the legacy agent guid
// attribute (com.plexapp.agents.imdb://tt...?lang=en). Returns "" when absent.
func (d Detail) IMDBCode() string {
	for _, g := range d.GUIDs {
		if m := imdbCode.FindStringSubmatch(g.ID); m != nil {
			return strings.ToLower(m[1])
		}
	}
	if m := imdbCode.FindStringSubmatch(d.GUID); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

type metadataResponse struct {
	XMLName xml.Name `xml:"MediaContainer"`
	Videos  []Detail `xml:"Video"`
}

// Sections returns all library sections.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	var result sectionsResponse
	if err := c.get(ctx, "/library/sections", nil, &result); err != nil {
		return nil, err
	}
	return result.Sections, nil
}

// ListItems returns every item in a library section.
func (c *Client) ListItems(ctx context.Context, sectionKey string) ([]Item, error) {
	var result itemsResponse
	path := fmt.Sprintf("/library/sections/%s/all", url.PathEscape(sectionKey))
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Videos, nil
}

// Metadata returns the full detail of one item.
func (c *Client) Metadata(ctx context.Context, ratingKey string) (*Detail, error) {
	var result metadataResponse
	path := fmt.Sprintf("/library/metadata/%s", url.PathEscape(ratingKey))
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	if len(result.Videos) == 0 {
		return nil, fmt.Errorf("%w: no metadata for item %s", ErrBadResponse, ratingKey)
	}
	return &result.Videos[0], nil
}

// RefreshSection triggers a full scan of a library section.
func (c *Client) RefreshSection(ctx context.Context, sectionKey string) error {
	path := fmt.Sprintf("/library/sections/%s/refresh", url.PathEscape(sectionKey))
	return c.get(ctx, path, nil, nil)
}

// get issues an authenticated GET and decodes the XML body into out if non-nil.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("X-Plex-Token", c.token)
	reqURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, path, redact(err, c.token))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s: status %d", ErrBadResponse, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrBadResponse, path, err)
	}
	return nil
}

// redact keeps the token out of transport errors, which embed the request URL.
func redact(err error, token string) string {
	if token == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), token, "REDACTED")
}
