// Package config loads the dashboard configuration: built-in Pierce County
// defaults, optionally overridden by a TOML file and environment variables.
//
// Resolution order, later wins:
//  1. Default()
//  2. ~/.config/acsdash/config.toml (or an explicit path)
//  3. ACS_API_KEY environment variable
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/piercedata/acsdash/pkg/errors"
)

// Census API defaults for the Pierce County deployment.
const (
	defaultBaseURL = "https://api.census.gov/data"
	defaultAPIKey  = "f6ba77c8a37e5c068c2d7a0020f3b56899318771"
	defaultYear    = 2023
	defaultState   = "53"  // Washington
	defaultCounty  = "053" // Pierce
)

// Config is the full application configuration.
type Config struct {
	Census  Census  `toml:"census"`
	Cache   Cache   `toml:"cache"`
	History History `toml:"history"`
	Server  Server  `toml:"server"`
}

// Census configures the upstream API client.
type Census struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Year    int    `toml:"year"`
	State   string `toml:"state"`
	County  string `toml:"county"`
}

// Cache selects and tunes the response-cache backend.
type Cache struct {
	Backend   string   `toml:"backend"` // "memory", "file", "redis", or "none"
	Capacity  int      `toml:"capacity"`
	TTL       Duration `toml:"ttl"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
}

// Duration decodes TOML strings like "24h" or "30m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// History selects the run-history backend.
type History struct {
	Backend  string `toml:"backend"` // "file", "mongo", or "none"
	Dir      string `toml:"dir"`
	MongoURI string `toml:"mongo_uri"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Census: Census{
			BaseURL: defaultBaseURL,
			APIKey:  defaultAPIKey,
			Year:    defaultYear,
			State:   defaultState,
			County:  defaultCounty,
		},
		Cache: Cache{
			Backend:  "memory",
			Capacity: 256,
			TTL:      Duration(24 * time.Hour),
		},
		History: History{
			Backend: "file",
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// DefaultPath returns the standard config file location,
// ~/.config/acsdash/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "acsdash", "config.toml")
}

// Load builds the configuration. With path empty, the default location is
// used and a missing file is not an error; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if explicit || !os.IsNotExist(err) {
				return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "loading config %s", path)
			}
		}
	}

	if key := os.Getenv("ACS_API_KEY"); key != "" {
		cfg.Census.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Census.APIKey == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "census api key is required")
	}
	if c.Census.Year < 2010 {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid ACS year %d", c.Census.Year)
	}
	switch c.Cache.Backend {
	case "memory", "file", "redis", "none":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch c.History.Backend {
	case "file", "mongo", "none":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown history backend %q", c.History.Backend)
	}
	return nil
}
