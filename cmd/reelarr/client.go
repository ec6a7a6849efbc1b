package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client wraps HTTP calls to the reelarr server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new reelarr API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	var e struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		apiErr.Code, apiErr.Message = e.Code, e.Error
	}
	return apiErr
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) get(path string, result any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(path string, body any, result any) error {
	var r io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		r = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

// API response types (mirror server types)

type StatusResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
	Tasks     []string  `json:"tasks"`
}

type TorrentResponse struct {
	Source    string `json:"source"`
	Hash      string `json:"hash"`
	Quality   string `json:"quality"`
	Type      string `json:"type"`
	SizeBytes int64  `json:"size_bytes"`
}

type StatusEventResponse struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

type DownloadResponse struct {
	JobID     int64                 `json:"job_id"`
	Name      string                `json:"name"`
	Quality   string                `json:"quality"`
	Type      string                `json:"type"`
	Status    string                `json:"status"`
	StartedAt time.Time             `json:"started_at"`
	Events    []StatusEventResponse `json:"events"`
}

type MovieResponse struct {
	Code        string            `json:"code"`
	Title       string            `json:"title"`
	Year        int               `json:"year"`
	Language    string            `json:"language,omitempty"`
	Rating      float64           `json:"rating,omitempty"`
	Description string            `json:"description,omitempty"`
	Genres      []string          `json:"genres,omitempty"`
	Source      string            `json:"source"`
	SourceTime  time.Time         `json:"source_time"`
	Torrents    []TorrentResponse `json:"torrents"`
	Local       *struct {
		Source     string    `json:"source"`
		SourceTime time.Time `json:"source_time"`
	} `json:"local,omitempty"`
	Download *DownloadResponse `json:"download,omitempty"`
	Score    float64           `json:"score,omitempty"`
}

type ListMoviesResponse struct {
	Items []MovieResponse `json:"items"`
	Total int             `json:"total"`
}

type LiveStatusResponse struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	JobID       int64     `json:"job_id"`
	Quality     string    `json:"quality"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	Finished    bool      `json:"finished"`
	PercentDone float64   `json:"percent_done"`
	Stalled     bool      `json:"stalled"`
	ETASeconds  int64     `json:"eta_seconds,omitempty"`
	Files       []string  `json:"files,omitempty"`
}

type ScrapeSourceResponse struct {
	Source    string     `json:"source"`
	Kind      string     `json:"kind"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
	Movies    int        `json:"movies"`
	Torrents  int        `json:"torrents"`
}

type ScrapeResponse struct {
	ID        string                 `json:"id"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
	Finished  bool                   `json:"finished"`
	Success   bool                   `json:"success"`
	Movies    int                    `json:"movies"`
	Torrents  int                    `json:"torrents"`
	Sources   []ScrapeSourceResponse `json:"sources"`
}

type ListScrapesResponse struct {
	Items []ScrapeResponse `json:"items"`
}

type DownloadRequest struct {
	Quality string `json:"quality,omitempty"`
	Type    string `json:"type,omitempty"`
}

// API methods

func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Movies(filter string, limit int) (*ListMoviesResponse, error) {
	params := url.Values{}
	if filter != "" {
		params.Set("filter", filter)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/movies"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp ListMoviesResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Search(query string, limit int) (*ListMoviesResponse, error) {
	params := url.Values{"q": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp ListMoviesResponse
	if err := c.get("/api/v1/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Movie(code string) (*MovieResponse, error) {
	var resp MovieResponse
	if err := c.get("/api/v1/movies/"+url.PathEscape(code), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Download(code string, req DownloadRequest) (*DownloadResponse, error) {
	var resp DownloadResponse
	if err := c.post("/api/v1/movies/"+url.PathEscape(code)+"/download", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) LiveStatus(code string) (*LiveStatusResponse, error) {
	var resp LiveStatusResponse
	if err := c.get("/api/v1/movies/"+url.PathEscape(code)+"/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Complete(code string) (*MovieResponse, error) {
	var resp MovieResponse
	if err := c.post("/api/v1/movies/"+url.PathEscape(code)+"/complete", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MovieByJob(id int64) (*MovieResponse, error) {
	var resp MovieResponse
	if err := c.get("/api/v1/jobs/"+strconv.FormatInt(id, 10), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) StartScrape() (*ScrapeResponse, error) {
	var resp ScrapeResponse
	if err := c.post("/api/v1/scrapes", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Scrape(id string) (*ScrapeResponse, error) {
	var resp ScrapeResponse
	if err := c.get("/api/v1/scrapes/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Scrapes(limit int) (*ListScrapesResponse, error) {
	path := "/api/v1/scrapes"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp ListScrapesResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
