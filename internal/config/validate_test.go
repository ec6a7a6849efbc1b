package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func minimalValid(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		Library: LibraryConfig{Movies: t.TempDir(), Downloads: t.TempDir()},
		Plex:    PlexConfig{Token: "tok"},
		Download: DownloadConfig{
			Trackers: []string{"udp://tracker.example:1337/announce"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate_MinimalValid(t *testing.T) {
	assert.Empty(t, minimalValid(t).Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "server.port"},
		{"invalid log level", func(c *Config) { c.Server.LogLevel = "verbose" }, "server.log_level"},
		{"no movies root", func(c *Config) { c.Library.Movies = "" }, "library.movies: required"},
		{"no downloads root", func(c *Config) { c.Library.Downloads = "" }, "library.downloads: required"},
		{"same roots", func(c *Config) { c.Library.Downloads = c.Library.Movies + "/" }, "must be different"},
		{"bad transmission url", func(c *Config) { c.Transmission.URL = "localhost:9091" }, "transmission.url"},
		{"bad plex url", func(c *Config) { c.Plex.URL = "ftp://plex" }, "plex.url"},
		{"no plex token", func(c *Config) { c.Plex.Token = "" }, "plex.token"},
		{"page size too large", func(c *Config) { c.YTS.PageSize = 51 }, "yts.page_size"},
		{"negative attempts", func(c *Config) { c.YTS.MaxAttempts = -1 }, "yts.max_attempts"},
		{"no trackers", func(c *Config) { c.Download.Trackers = nil }, "download.trackers"},
		{"blank tracker", func(c *Config) { c.Download.Trackers = []string{" "} }, "download.trackers[0]"},
		{"negative grace", func(c *Config) { c.Download.GracePeriod = -1 }, "download.grace_period"},
		{"negative interval", func(c *Config) { c.Schedule.Tick = -1 }, "schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValid(t)
			tt.mutate(cfg)
			errs := cfg.Validate()
			assert.True(t, containsError(errs, tt.want), "expected %q in %v", tt.want, errs)
		})
	}
}

func TestValidate_MissingDirectoryIsWarning(t *testing.T) {
	cfg := minimalValid(t)
	cfg.Library.Movies = "/nonexistent/reelarr/movies"

	errs := cfg.Validate()
	assert.Len(t, errs, 1)
	assert.True(t, containsError(errs, "library.movies: warning:"), "got %v", errs)
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
