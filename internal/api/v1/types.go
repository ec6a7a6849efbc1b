// internal/api/v1/types.go
package v1

import "time"

type torrentResponse struct {
	Source    string `json:"source"`
	Hash      string `json:"hash"`
	Quality   string `json:"quality"`
	Type      string `json:"type"`
	SizeBytes int64  `json:"size_bytes"`
}

type localResponse struct {
	Source     string    `json:"source"`
	SourceTime time.Time `json:"source_time"`
}

type statusEventResponse struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

type downloadResponse struct {
	JobID     int64                 `json:"job_id"`
	Name      string                `json:"name"`
	Quality   string                `json:"quality"`
	Type      string                `json:"type"`
	Status    string                `json:"status"`
	StartedAt time.Time             `json:"started_at"`
	Events    []statusEventResponse `json:"events"`
}

// movieResponse is the API representation of a catalog movie.
type movieResponse struct {
	Code        string            `json:"code"`
	Title       string            `json:"title"`
	Year        int               `json:"year"`
	Language    string            `json:"language,omitempty"`
	Rating      float64           `json:"rating,omitempty"`
	Description string            `json:"description,omitempty"`
	Genres      []string          `json:"genres,omitempty"`
	Source      string            `json:"source"`
	SourceTime  time.Time         `json:"source_time"`
	Torrents    []torrentResponse `json:"torrents"`
	Local       *localResponse    `json:"local,omitempty"`
	Download    *downloadResponse `json:"download,omitempty"`
	Score       float64           `json:"score,omitempty"`
}

type listMoviesResponse struct {
	Items []movieResponse `json:"items"`
	Total int             `json:"total"`
}

type downloadRequest struct {
	Quality string `json:"quality,omitempty"`
	Type    string `json:"type,omitempty"`
}

type liveStatusResponse struct {
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

type scrapeSourceResponse struct {
	Source    string     `json:"source"`
	Kind      string     `json:"kind"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
	Movies    int        `json:"movies"`
	Torrents  int        `json:"torrents"`
}

type scrapeResponse struct {
	ID        string                 `json:"id"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
	Finished  bool                   `json:"finished"`
	Success   bool                   `json:"success"`
	Movies    int                    `json:"movies"`
	Torrents  int                    `json:"torrents"`
	Sources   []scrapeSourceResponse `json:"sources"`
}

type listScrapesResponse struct {
	Items []scrapeResponse `json:"items"`
}

// EventResponse is the API representation of a persisted event.
type EventResponse struct {
	ID         int64     `json:"id"`
	EventType  string    `json:"event_type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Payload    string    `json:"payload"`
	Summary    string    `json:"summary,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type listEventsResponse struct {
	Items []EventResponse `json:"items"`
}

type statusResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
	Tasks     []string  `json:"tasks"`
}
