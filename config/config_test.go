package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// clearEnv unsets every override variable for the duration of the test.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"LISTWATCH_PROXY",
		"LISTWATCH_STORAGE_TYPE",
		"LISTWATCH_STORAGE_DSN",
		"LISTWATCH_STORAGE_PATH",
		"LISTWATCH_END_PAGE",
		"LISTWATCH_API_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad_NoFile verifies defaults when the file doesn't exist
func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "https://atolin.ru/anketa/search", cfg.Search.BaseURL)
	assert.Equal(t, 18, cfg.Search.AgeFrom)
	assert.Equal(t, 35, cfg.Search.AgeTo)
	assert.Equal(t, 140, cfg.Search.LocationID)
	assert.Equal(t, 1, cfg.Search.EndPage)
	assert.Equal(t, time.Hour, cfg.Schedule.Interval.Std())
	assert.Equal(t, 5*time.Minute, cfg.Schedule.RetryInterval.Std())
	assert.Equal(t, 2*time.Second, cfg.Notify.Pace.Std())
	assert.Equal(t, 10*time.Second, cfg.Transport.Timeout.Std())
	assert.Equal(t, "json", cfg.Storage.Type)
}

// TestLoad_ValidConfig verifies file values are merged over defaults
func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `search:
  age_from: 20
  age_to: 30
  end_page: 3
  location: Moscow
scoring:
  threshold: 4.5
  weights:
    description: 2
transport:
  timeout: 30s
  proxy: "socks5://127.0.0.1:9050"
  delay:
    min: 1s
    max: 3s
  backoff:
    min: 1m
    max: 2m
storage:
  type: sqlite
  path: /var/lib/listwatch/records.db
schedule:
  interval: 1d
notify:
  jsonl_path: /tmp/outbox.jsonl
site:
  listing:
    container_selectors: [".results"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Search.AgeFrom)
	assert.Equal(t, 30, cfg.Search.AgeTo)
	assert.Equal(t, 3, cfg.Search.EndPage)
	assert.Equal(t, 140, cfg.Search.LocationID, "location name should resolve")
	assert.Equal(t, "https://atolin.ru/anketa/search", cfg.Search.BaseURL, "unset keys keep defaults")

	assert.Equal(t, 4.5, cfg.Scoring.Threshold)
	assert.Equal(t, 2.0, cfg.Scoring.Weights.Description)
	assert.Equal(t, 0.8, cfg.Scoring.Weights.Photo)

	tc := cfg.TransportConfig()
	assert.Equal(t, 30*time.Second, tc.Timeout)
	assert.Equal(t, "socks5://127.0.0.1:9050", tc.Proxy)
	assert.Equal(t, time.Second, tc.Delay.Min)
	assert.Equal(t, 3*time.Second, tc.Delay.Max)
	assert.Equal(t, time.Minute, tc.Backoff.Min)
	assert.Equal(t, 3, tc.MaxAttempts)

	assert.Equal(t, "sqlite", cfg.BackendConfig().Type)
	assert.Equal(t, "/var/lib/listwatch/records.db", cfg.BackendConfig().Path)

	assert.Equal(t, 24*time.Hour, cfg.ServiceConfig().Interval)
	assert.Equal(t, "/tmp/outbox.jsonl", cfg.Notify.JSONLinesPath)
	assert.True(t, cfg.Notify.Log)

	collectorConfig := cfg.CollectorConfig()
	assert.Equal(t, []string{".results"}, collectorConfig.Listing.ContainerSelectors)
	assert.Equal(t, "[data-key]", collectorConfig.Listing.ItemSelector)
	assert.Equal(t, 4.5, collectorConfig.Threshold)
}

// TestLoad_InvalidYAML verifies parse errors are reported
func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `storage:
  - this is invalid because storage should be an object not a list
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// TestLoad_InvalidDuration verifies bad durations are parse errors
func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "schedule:\n  interval: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

// TestLoad_EnvOverrides verifies LISTWATCH_* variables win over the file
func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTWATCH_PROXY", "http://proxy:3128")
	t.Setenv("LISTWATCH_STORAGE_TYPE", "postgres")
	t.Setenv("LISTWATCH_STORAGE_DSN", "postgres://localhost/listwatch")
	t.Setenv("LISTWATCH_END_PAGE", "5")
	t.Setenv("LISTWATCH_API_ADDR", "127.0.0.1:9000")

	cfg, err := Load(writeConfig(t, "search:\n  end_page: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://proxy:3128", cfg.Transport.Proxy)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "postgres://localhost/listwatch", cfg.Storage.DSN)
	assert.Equal(t, 5, cfg.Search.EndPage)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Addr)
}

// TestLoad_InvalidEndPageEnv verifies a non-numeric override is rejected
func TestLoad_InvalidEndPageEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTWATCH_END_PAGE", "many")

	_, err := Load("")
	assert.Error(t, err)
}

// TestLoad_UnknownLocation verifies unknown location names are rejected
func TestLoad_UnknownLocation(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "search:\n  location: atlantis\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atlantis")
}

// TestLoad_CustomLocation verifies the locations table can be extended
func TestLoad_CustomLocation(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "locations:\n  tver: 77\nsearch:\n  location: Tver\n"))
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.Search.LocationID)
	assert.Equal(t, 140, cfg.Locations["moscow"], "defaults stay in the table")
}

// TestValidate verifies rejected configurations
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"relative base url", func(c *Config) { c.Search.BaseURL = "/anketa/search" }},
		{"zero end page", func(c *Config) { c.Search.EndPage = 0 }},
		{"inverted ages", func(c *Config) { c.Search.AgeFrom = 40 }},
		{"negative threshold", func(c *Config) { c.Scoring.Threshold = -1 }},
		{"no attempts", func(c *Config) { c.Transport.MaxAttempts = 0 }},
		{"inverted backoff", func(c *Config) { c.Transport.Backoff = Range{Min: Duration(time.Minute), Max: Duration(time.Second)} }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "redis" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = "postgres" }},
		{"json without path", func(c *Config) { c.Storage.Path = "" }},
		{"zero interval", func(c *Config) { c.Schedule.Interval = 0 }},
		{"negative pace", func(c *Config) { c.Notify.Pace = Duration(-time.Second) }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestParseDuration verifies the day and week extensions
func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"90s", 90 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"2d", 48 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{" 3d ", 72 * time.Hour, false},
		{"xd", 0, true},
		{"1.5d", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestDuration_YAML verifies durations marshal back to strings
func TestDuration_YAML(t *testing.T) {
	out, err := yaml.Marshal(ScheduleConfig{Interval: Duration(2 * time.Hour), RetryInterval: Duration(5 * time.Minute)})
	require.NoError(t, err)
	assert.Contains(t, string(out), "interval: 2h0m0s")
	assert.Contains(t, string(out), "retry_interval: 5m0s")

	var decoded ScheduleConfig
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, Duration(2*time.Hour), decoded.Interval)
}
