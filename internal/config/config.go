// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Database     DatabaseConfig     `toml:"database"`
	Library      LibraryConfig      `toml:"library"`
	Transmission TransmissionConfig `toml:"transmission"`
	YTS          YTSConfig          `toml:"yts"`
	Plex         PlexConfig         `toml:"plex"`
	Download     DownloadConfig     `toml:"download"`
	Schedule     ScheduleConfig     `toml:"schedule"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LibraryConfig struct {
	Movies    string `toml:"movies"`    // library root, one folder per movie
	Downloads string `toml:"downloads"` // where the daemon writes torrents
}

type TransmissionConfig struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

type YTSConfig struct {
	URL             string        `toml:"url"`
	PageSize        int           `toml:"page_size"`
	MaxAttempts     int           `toml:"max_attempts"`
	RetryDelay      time.Duration `toml:"retry_delay"`
	PageDelay       time.Duration `toml:"page_delay"`
	Timeout         time.Duration `toml:"timeout"`
	DisallowedTypes []string      `toml:"disallowed_types"`
}

type PlexConfig struct {
	URL       string        `toml:"url"`
	Token     string        `toml:"token"`
	BatchSize int           `toml:"batch_size"`
	Timeout   time.Duration `toml:"timeout"`
}

type DownloadConfig struct {
	Qualities   []string      `toml:"qualities"` // most preferred first
	Types       []string      `toml:"types"`
	Trackers    []string      `toml:"trackers"`
	GracePeriod time.Duration `toml:"grace_period"`
}

type ScheduleConfig struct {
	Tick             time.Duration `toml:"tick"`
	ScrapeInterval   time.Duration `toml:"scrape_interval"`
	DownloadInterval time.Duration `toml:"download_interval"`
}

// Load reads, parses and validates the configuration file. Unresolved
// environment variables and validation failures are returned as *ConfigError.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cfgErr := &ConfigError{Path: path, Missing: missing}
	for _, e := range cfg.Validate() {
		// Warnings are reported by the daemon at startup, not treated as fatal.
		if !strings.Contains(e, "warning:") {
			cfgErr.Errors = append(cfgErr.Errors, e)
		}
	}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file, applying
// defaults but skipping validation and missing-variable checks.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8485
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/reelarr.db"
	}

	if c.Transmission.URL == "" {
		c.Transmission.URL = "http://localhost:9091/transmission"
	}
	if c.Transmission.Timeout == 0 {
		c.Transmission.Timeout = 30 * time.Second
	}

	if c.YTS.URL == "" {
		c.YTS.URL = "https://yts.mx/api/v2"
	}
	if c.YTS.PageSize == 0 {
		c.YTS.PageSize = 50
	}
	if c.YTS.MaxAttempts == 0 {
		c.YTS.MaxAttempts = 5
	}
	if c.YTS.RetryDelay == 0 {
		c.YTS.RetryDelay = 10 * time.Second
	}
	if c.YTS.Timeout == 0 {
		c.YTS.Timeout = 30 * time.Second
	}
	if c.YTS.DisallowedTypes == nil {
		c.YTS.DisallowedTypes = []string{"3D"}
	}

	if c.Plex.URL == "" {
		c.Plex.URL = "http://localhost:32400"
	}
	if c.Plex.BatchSize == 0 {
		c.Plex.BatchSize = 10
	}
	if c.Plex.Timeout == 0 {
		c.Plex.Timeout = 30 * time.Second
	}

	if len(c.Download.Qualities) == 0 {
		c.Download.Qualities = []string{"1080p", "720p"}
	}
	if len(c.Download.Types) == 0 {
		c.Download.Types = []string{"bluray", "web"}
	}
	if c.Download.GracePeriod == 0 {
		c.Download.GracePeriod = 2 * time.Minute
	}

	if c.Schedule.Tick == 0 {
		c.Schedule.Tick = time.Minute
	}
	if c.Schedule.ScrapeInterval == 0 {
		c.Schedule.ScrapeInterval = 6 * time.Hour
	}
	if c.Schedule.DownloadInterval == 0 {
		c.Schedule.DownloadInterval = time.Minute
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// With :- or :?, an empty value counts as unset. Unresolved references are
// left in place and reported, :? ones with their message.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	seen := map[string]bool{}
	report := func(s string) {
		if !seen[s] {
			seen[s] = true
			missing = append(missing, s)
		}
	}

	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case ":-":
			if ok && value != "" {
				return value
			}
			return arg
		case ":?":
			if ok && value != "" {
				return value
			}
			report(name + ": " + arg)
			return match
		default:
			if ok {
				return value
			}
			report(name)
			return match
		}
	})
	return out, missing
}
