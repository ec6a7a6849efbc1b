package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	empty := &ConfigError{Path: "/etc/reelarr/config.toml"}
	assert.Empty(t, empty.Error())
	assert.False(t, empty.HasErrors())

	e := &ConfigError{
		Path:    "/etc/reelarr/config.toml",
		Missing: []string{"PLEX_TOKEN", "TRANSMISSION_URL"},
		Errors:  []string{"server.port: invalid", "download.trackers: at least one tracker must be configured"},
	}
	assert.True(t, e.HasErrors())
	got := e.Error()
	assert.Contains(t, got, "missing environment variables: PLEX_TOKEN, TRANSMISSION_URL")
	assert.Contains(t, got, "validation failed:")
	assert.Contains(t, got, "  - server.port: invalid")
	assert.Contains(t, got, "  - download.trackers")
}
