// Package transmission implements the Transmission JSON-RPC protocol, including
// the X-Transmission-Session-Id handshake.
package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// SessionHeader carries the daemon's CSRF token.
const SessionHeader = "X-Transmission-Session-Id"

const (
	methodGet    = "torrent-get"
	methodAdd    = "torrent-add"
	methodRemove = "torrent-remove"

	resultSuccess = "success"
)

// TorrentInfo is the subset of torrent fields the client requests.
// The JSON tags double as the requested field names.
type TorrentInfo struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	PercentDone float64 `json:"percentDone"` // 0..1
	IsStalled   bool    `json:"isStalled"`
	ETA         int64   `json:"eta"` // seconds, <= 0 when unknown
	DownloadDir string  `json:"downloadDir"`
	Files       []File  `json:"files"`
}

// File is a single file inside a torrent, relative to DownloadDir.
type File struct {
	Name string `json:"name"`
}

// FileNames returns the relative paths of all files in the torrent.
func (t *TorrentInfo) FileNames() []string {
	names := make([]string, len(t.Files))
	for i, f := range t.Files {
		names[i] = f.Name
	}
	return names
}

// NewTorrentInfo is returned by AddTorrent.
type NewTorrentInfo struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	HashString string `json:"hashString"`
	// Duplicate is true when the daemon already had the torrent.
	Duplicate bool `json:"-"`
}

// torrentFields is derived once from TorrentInfo so the wire payload is deterministic.
var torrentFields = fieldNames(reflect.TypeOf(TorrentInfo{}))

func fieldNames(t reflect.Type) []string {
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields returns the field list sent with torrent-get requests.
func Fields() []string {
	out := make([]string, len(torrentFields))
	copy(out, torrentFields)
	return out
}

// Session holds the most recent session token. It is shared by every request
// made through a Client and may be shared across clients.
type Session struct {
	mu    sync.RWMutex
	token string
}

// Token returns the cached token, or "" before the first handshake.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the cached token.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Client talks to a Transmission daemon.
type Client struct {
	endpoint   string
	session    *Session
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSession injects a shared session token cache.
func WithSession(s *Session) Option {
	return func(c *Client) {
		c.session = s
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. A client passed to WithHTTPClient
// is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// NewClient creates a client for the daemon at baseURL. Requests are posted to baseURL + "/rpc".
func NewClient(baseURL string, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/rpc",
		session:  &Session{},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With("component", "transmission"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type getArguments struct {
	IDs    []int64  `json:"ids,omitempty"`
	Fields []string `json:"fields"`
}

type getResult struct {
	Torrents []TorrentInfo `json:"torrents"`
}

// ListTorrents returns every torrent known to the daemon.
func (c *Client) ListTorrents(ctx context.Context) ([]TorrentInfo, error) {
	var res getResult
	if err := c.call(ctx, methodGet, getArguments{Fields: torrentFields}, &res); err != nil {
		return nil, err
	}
	return res.Torrents, nil
}

// GetTorrent returns a single torrent. Returns ErrNotFound if the daemon no longer knows the id.
func (c *Client) GetTorrent(ctx context.Context, id int64) (*TorrentInfo, error) {
	var res getResult
	if err := c.call(ctx, methodGet, getArguments{IDs: []int64{id}, Fields: torrentFields}, &res); err != nil {
		return nil, err
	}
	for i := range res.Torrents {
		if res.Torrents[i].ID == id {
			return &res.Torrents[i], nil
		}
	}
	return nil, fmt.Errorf("torrent %d: %w", id, ErrNotFound)
}

type addArguments struct {
	Filename string `json:"filename"`
}

type addResult struct {
	Added     *NewTorrentInfo `json:"torrent-added"`
	Duplicate *NewTorrentInfo `json:"torrent-duplicate"`
}

// AddTorrent submits a magnet URI or a .torrent URL.
func (c *Client) AddTorrent(ctx context.Context, uri string) (*NewTorrentInfo, error) {
	c.log.Debug("adding torrent")

	var res addResult
	if err := c.call(ctx, methodAdd, addArguments{Filename: uri}, &res); err != nil {
		return nil, err
	}

	switch {
	case res.Added != nil:
		c.log.Debug("torrent added", "id", res.Added.ID, "name", res.Added.Name)
		return res.Added, nil
	case res.Duplicate != nil:
		dup := *res.Duplicate
		dup.Duplicate = true
		c.log.Debug("torrent duplicate", "id", dup.ID, "name", dup.Name)
		return &dup, nil
	default:
		return nil, fmt.Errorf("%w: torrent-add returned neither torrent-added nor torrent-duplicate", ErrProtocol)
	}
}

type removeArguments struct {
	IDs             []int64 `json:"ids"`
	DeleteLocalData bool    `json:"delete-local-data"`
}

// RemoveTorrent removes the torrent from the daemon. Downloaded data is kept.
func (c *Client) RemoveTorrent(ctx context.Context, id int64) error {
	c.log.Debug("removing torrent", "id", id)
	return c.call(ctx, methodRemove, removeArguments{IDs: []int64{id}, DeleteLocalData: false}, nil)
}

type request struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments"`
}

type response struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

// call performs one RPC, transparently completing the session handshake.
func (c *Client) call(ctx context.Context, method string, args any, result any) error {
	start := time.Now()

	body, err := json.Marshal(request{Method: method, Arguments: args})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	raw, err := c.post(ctx, body)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &RPCError{Request: string(body), Response: string(raw), Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.Result != resultSuccess {
		return &RPCError{Request: string(body), Response: string(raw)}
	}

	if result != nil && len(resp.Arguments) > 0 {
		if err := json.Unmarshal(resp.Arguments, result); err != nil {
			return &RPCError{Request: string(body), Response: string(raw), Err: fmt.Errorf("decode arguments: %w", err)}
		}
	}

	c.log.Debug("rpc complete", "method", method, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// post sends body and returns the raw response. A 409 stores the new token and
// retries the same body once.
func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json-rpc")
		req.Header.Set("Accept", "application/json")
		if token := c.session.Token(); token != "" {
			req.Header.Set(SessionHeader, token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Debug("rpc request failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		data, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusConflict {
			token := resp.Header.Get(SessionHeader)
			if token == "" {
				return nil, fmt.Errorf("%w: 409 without %s header", ErrProtocol, SessionHeader)
			}
			c.session.SetToken(token)
			if attempt == 0 {
				c.log.Debug("session token refreshed")
				continue
			}
			return nil, fmt.Errorf("%w: session token rejected twice", ErrProtocol)
		}

		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: unexpected status %d", ErrProtocol, resp.StatusCode)
		}
		return data, nil
	}
}
