package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid). Entries containing
// "warning:" are advisory.
func (c *Config) Validate() []string {
	var errs []string

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Library validation
	if c.Library.Movies == "" {
		errs = append(errs, "library.movies: required")
	}
	if c.Library.Downloads == "" {
		errs = append(errs, "library.downloads: required")
	}
	if c.Library.Movies != "" && c.Library.Downloads != "" &&
		filepath.Clean(c.Library.Movies) == filepath.Clean(c.Library.Downloads) {
		errs = append(errs, "library: movies and downloads must be different directories")
	}

	// Upstream URLs
	errs = appendURLError(errs, "transmission.url", c.Transmission.URL)
	errs = appendURLError(errs, "yts.url", c.YTS.URL)
	errs = appendURLError(errs, "plex.url", c.Plex.URL)
	if c.Plex.Token == "" {
		errs = append(errs, "plex.token: required")
	}

	// Scraper tuning
	if c.YTS.PageSize < 0 || c.YTS.PageSize > 50 {
		errs = append(errs, fmt.Sprintf("yts.page_size: must be between 1 and 50, got %d", c.YTS.PageSize))
	}
	if c.YTS.MaxAttempts < 0 {
		errs = append(errs, fmt.Sprintf("yts.max_attempts: must be positive, got %d", c.YTS.MaxAttempts))
	}
	if c.Plex.BatchSize < 0 {
		errs = append(errs, fmt.Sprintf("plex.batch_size: must be positive, got %d", c.Plex.BatchSize))
	}

	// Download validation
	if len(c.Download.Trackers) == 0 {
		errs = append(errs, "download.trackers: at least one tracker must be configured")
	}
	for i, tr := range c.Download.Trackers {
		if strings.TrimSpace(tr) == "" {
			errs = append(errs, fmt.Sprintf("download.trackers[%d]: empty", i))
		}
	}
	if c.Download.GracePeriod < 0 {
		errs = append(errs, "download.grace_period: must not be negative")
	}

	// Schedule validation
	if c.Schedule.Tick < 0 || c.Schedule.ScrapeInterval < 0 || c.Schedule.DownloadInterval < 0 {
		errs = append(errs, "schedule: intervals must not be negative")
	}

	// Library path warnings (non-fatal)
	for _, p := range []struct{ key, dir string }{
		{"library.movies", c.Library.Movies},
		{"library.downloads", c.Library.Downloads},
	} {
		if p.dir == "" {
			continue
		}
		if _, err := os.Stat(p.dir); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("%s: warning: directory %q does not exist", p.key, p.dir))
		}
	}

	return errs
}

func appendURLError(errs []string, key, raw string) []string {
	if raw == "" {
		return append(errs, key+": required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return append(errs, fmt.Sprintf("%s: must be an http(s) URL, got %q", key, raw))
	}
	return errs
}
