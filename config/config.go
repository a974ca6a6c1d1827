package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pevans/listwatch/collector"
	"github.com/pevans/listwatch/scoring"
	"github.com/pevans/listwatch/scraper"
	"github.com/pevans/listwatch/store"
	"github.com/pevans/listwatch/transport"
	"gopkg.in/yaml.v3"
)

// SiteConfig holds the page selectors of the target site.
type SiteConfig struct {
	Listing scraper.ListingConfig `yaml:"listing"`
	Detail  scraper.DetailConfig  `yaml:"detail"`
}

// SearchConfig holds the listing query. Location, when set, is looked up
// in the locations table and overrides LocationID.
type SearchConfig struct {
	collector.Search `yaml:",inline"`
	Location         string `yaml:"location"`
}

// ScoringConfig holds the score weights and the qualifying threshold.
type ScoringConfig struct {
	Weights   scoring.Weights `yaml:"weights"`
	Threshold float64         `yaml:"threshold"`
}

// TransportConfig holds the request layer settings.
type TransportConfig struct {
	Timeout     Duration `yaml:"timeout"`
	Proxy       string   `yaml:"proxy"`
	MaxAttempts int      `yaml:"max_attempts"`
	Delay       Range    `yaml:"delay"`
	Backoff     Range    `yaml:"backoff"`
	InsecureTLS bool     `yaml:"insecure_tls"`
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Type       string `yaml:"type"`
	Path       string `yaml:"path"`
	DSN        string `yaml:"dsn"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// ScheduleConfig holds the watch loop timing.
type ScheduleConfig struct {
	Interval         Duration `yaml:"interval"`
	RetryInterval    Duration `yaml:"retry_interval"`
	SuppressFirstRun bool     `yaml:"suppress_first_run"`
}

// NotifyConfig selects the notification sinks.
type NotifyConfig struct {
	Pace Duration `yaml:"pace"`
	// Log writes one log line per qualifying record.
	Log bool `yaml:"log"`
	// JSONLinesPath appends one JSON object per qualifying record.
	JSONLinesPath string `yaml:"jsonl_path"`
}

// APIConfig holds the inspection API settings.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the complete configuration of the watcher.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Search    SearchConfig    `yaml:"search"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Transport TransportConfig `yaml:"transport"`
	Storage   StorageConfig   `yaml:"storage"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Notify    NotifyConfig    `yaml:"notify"`
	API       APIConfig       `yaml:"api"`
	Locations map[string]int  `yaml:"locations"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	tc := transport.DefaultConfig()
	sc := collector.DefaultServiceConfig()

	return &Config{
		Site: SiteConfig{
			Listing: scraper.NewListingConfig(),
			Detail:  scraper.NewDetailConfig(),
		},
		Search: SearchConfig{Search: collector.DefaultSearch()},
		Scoring: ScoringConfig{
			Weights:   scoring.DefaultWeights(),
			Threshold: collector.DefaultConfig().Threshold,
		},
		Transport: TransportConfig{
			Timeout:     Duration(tc.Timeout),
			MaxAttempts: tc.MaxAttempts,
			Delay:       Range{Min: Duration(tc.Delay.Min), Max: Duration(tc.Delay.Max)},
			Backoff:     Range{Min: Duration(tc.Backoff.Min), Max: Duration(tc.Backoff.Max)},
			InsecureTLS: tc.InsecureTLS,
		},
		Storage: StorageConfig{
			Type:       store.TypeJSON,
			Path:       "records.json",
			Database:   "listwatch",
			Collection: "snapshots",
		},
		Schedule: ScheduleConfig{
			Interval:         Duration(sc.Interval),
			RetryInterval:    Duration(sc.RetryInterval),
			SuppressFirstRun: sc.SuppressFirstRun,
		},
		Notify: NotifyConfig{
			Pace: Duration(sc.Pace),
			Log:  true,
		},
		API: APIConfig{
			Addr: ":8080",
		},
		Locations: map[string]int{
			"moscow": 140,
		},
	}
}

// DefaultPath returns ~/.listwatch/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".listwatch", "config.yaml"), nil
}

// Load builds the configuration: defaults, then the YAML file at path, then
// a .env file in the working directory, then LISTWATCH_* environment
// variables. A missing config file is not an error. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.resolveLocation(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFile merges the YAML file at path over cfg.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist -- not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyEnv overrides settings from LISTWATCH_* variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("LISTWATCH_PROXY"); v != "" {
		c.Transport.Proxy = v
	}
	if v := os.Getenv("LISTWATCH_STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("LISTWATCH_STORAGE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("LISTWATCH_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("LISTWATCH_END_PAGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LISTWATCH_END_PAGE %q: %w", v, err)
		}
		c.Search.EndPage = n
	}
	if v := os.Getenv("LISTWATCH_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	return nil
}

// resolveLocation turns a location name into its site id.
func (c *Config) resolveLocation() error {
	if c.Search.Location == "" {
		return nil
	}
	id, ok := c.Locations[strings.ToLower(c.Search.Location)]
	if !ok {
		return fmt.Errorf("unknown location %q", c.Search.Location)
	}
	c.Search.LocationID = id
	return nil
}

// Validate checks the configuration for values the watcher cannot run
// with.
func (c *Config) Validate() error {
	base, err := url.Parse(c.Search.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("search base_url %q is not an absolute URL", c.Search.BaseURL)
	}
	if c.Search.EndPage < 1 {
		return errors.New("search end_page must be at least 1")
	}
	if c.Search.AgeFrom > c.Search.AgeTo {
		return fmt.Errorf("search age range %d-%d is inverted", c.Search.AgeFrom, c.Search.AgeTo)
	}
	if c.Scoring.Threshold < 0 {
		return errors.New("scoring threshold must not be negative")
	}

	if err := c.TransportConfig().Validate(); err != nil {
		return fmt.Errorf("transport: %w", err)
	}

	switch c.Storage.Type {
	case store.TypeJSON, store.TypeSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for %s", c.Storage.Type)
		}
	case store.TypePostgres, store.TypeMongo:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage dsn is required for %s", c.Storage.Type)
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	if c.Schedule.Interval <= 0 || c.Schedule.RetryInterval <= 0 {
		return errors.New("schedule intervals must be positive")
	}
	if c.Notify.Pace < 0 {
		return errors.New("notify pace must not be negative")
	}
	return nil
}

// CollectorConfig returns the settings of a collection cycle.
func (c *Config) CollectorConfig() collector.Config {
	return collector.Config{
		Search:    c.Search.Search,
		Listing:   c.Site.Listing,
		Detail:    c.Site.Detail,
		Weights:   c.Scoring.Weights,
		Threshold: c.Scoring.Threshold,
	}
}

// TransportConfig returns the request layer settings.
func (c *Config) TransportConfig() transport.Config {
	return transport.Config{
		Timeout:     c.Transport.Timeout.Std(),
		Proxy:       c.Transport.Proxy,
		MaxAttempts: c.Transport.MaxAttempts,
		Delay:       transport.Range{Min: c.Transport.Delay.Min.Std(), Max: c.Transport.Delay.Max.Std()},
		Backoff:     transport.Range{Min: c.Transport.Backoff.Min.Std(), Max: c.Transport.Backoff.Max.Std()},
		InsecureTLS: c.Transport.InsecureTLS,
	}
}

// ServiceConfig returns the watch loop settings.
func (c *Config) ServiceConfig() collector.ServiceConfig {
	return collector.ServiceConfig{
		Interval:         c.Schedule.Interval.Std(),
		RetryInterval:    c.Schedule.RetryInterval.Std(),
		Pace:             c.Notify.Pace.Std(),
		SuppressFirstRun: c.Schedule.SuppressFirstRun,
	}
}

// BackendConfig returns the store backend settings.
func (c *Config) BackendConfig() store.BackendConfig {
	return store.BackendConfig{
		Type:       c.Storage.Type,
		Path:       c.Storage.Path,
		DSN:        c.Storage.DSN,
		Database:   c.Storage.Database,
		Collection: c.Storage.Collection,
	}
}
