package events

// Entity types
const (
	EntityMovie  = "movie"
	EntityScrape = "scrape"
)

// Event type constants
const (
	EventDownloadStarted   = "download.started"
	EventDownloadCompleted = "download.completed"
	EventScrapeFinished    = "scrape.finished"
)

// DownloadStarted is emitted when a torrent is handed to the daemon.
type DownloadStarted struct {
	BaseEvent
	Code        string `json:"code"`
	JobID       int64  `json:"job_id"`
	Name        string `json:"name"`
	Quality     string `json:"quality"`
	TorrentType string `json:"torrent_type"`
}

// NewDownloadStarted builds a DownloadStarted event for the movie code.
func NewDownloadStarted(code string, jobID int64, name, quality, typ string) *DownloadStarted {
	return &DownloadStarted{
		BaseEvent:   NewBaseEvent(EventDownloadStarted, EntityMovie, code),
		Code:        code,
		JobID:       jobID,
		Name:        name,
		Quality:     quality,
		TorrentType: typ,
	}
}

// DownloadCompleted is emitted once a download is confirmed in the library.
type DownloadCompleted struct {
	BaseEvent
	Code string `json:"code"`
}

// NewDownloadCompleted builds a DownloadCompleted event for the movie code.
func NewDownloadCompleted(code string) *DownloadCompleted {
	return &DownloadCompleted{
		BaseEvent: NewBaseEvent(EventDownloadCompleted, EntityMovie, code),
		Code:      code,
	}
}

// SourceFailure names a scrape source that failed during a run.
type SourceFailure struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// ScrapeFinished is emitted at the end of every scrape run.
type ScrapeFinished struct {
	BaseEvent
	ScrapeID string          `json:"scrape_id"`
	Success  bool            `json:"success"`
	Movies   int             `json:"movies"`
	Torrents int             `json:"torrents"`
	Failures []SourceFailure `json:"failures,omitempty"`
}
