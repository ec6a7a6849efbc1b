package scrape

import "errors"

var (
	// ErrScrapeInProgress indicates a full scrape run is already active.
	ErrScrapeInProgress = errors.New("scrape already in progress")

	// ErrScrapeFinished indicates the scrape record has already run.
	ErrScrapeFinished = errors.New("scrape already finished")
)
