package v1

import (
	"context"
	"errors"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/download"
	"github.com/vmunix/reelarr/internal/events"
	"github.com/vmunix/reelarr/internal/scrape"
)

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// Catalog is the read side of the catalog store.
type Catalog interface {
	FindByCode(ctx context.Context, code string) (*catalog.Movie, error)
	FindByJobID(ctx context.Context, jobID int64) (*catalog.Movie, error)
	ListMovies(ctx context.Context, filter catalog.MovieFilter, limit int) ([]*catalog.Movie, error)
	Search(ctx context.Context, query string, limit int) ([]catalog.SearchResult, error)
	GetScrape(ctx context.Context, id string) (*catalog.Scrape, error)
	ListScrapes(ctx context.Context, limit int) ([]*catalog.Scrape, error)
}

// Downloads starts downloads, reports their progress and completes them on request.
type Downloads interface {
	Start(ctx context.Context, code string, req download.Request) (*catalog.Download, error)
	Complete(ctx context.Context, code string) error
	LiveStatus(ctx context.Context, code string) (*download.LiveStatus, error)
}

// Scraper starts detached scrape runs.
type Scraper interface {
	Start(ctx context.Context, launcher scrape.Launcher) (*catalog.Scrape, error)
}

// TaskRunner runs detached work and reports what is still running.
type TaskRunner interface {
	scrape.Launcher
	Running() []string
}

// EventReader reads the persisted event log.
type EventReader interface {
	Recent(ctx context.Context, limit int) ([]events.RawEvent, error)
	ForEntity(ctx context.Context, entityType, entityID string) ([]events.RawEvent, error)
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Catalog Catalog

	// Optional dependencies (nil if not configured)
	Downloads Downloads
	Scraper   Scraper
	Tasks     TaskRunner
	EventLog  EventReader

	Version string
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Catalog == nil {
		return errors.New("catalog store is required")
	}
	if d.Scraper != nil && d.Tasks == nil {
		return errors.New("scraper requires a task runner")
	}
	return nil
}
