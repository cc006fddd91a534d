// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the watchtower viewer configuration.
//
// Configuration comes from a single YAML file named by:
//   - the WATCHTOWER_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// There are no fallback locations and environment variables never
// override file values; the only expansion performed is ${VAR} and
// ${VAR:-default} in the handful of fields that carry paths or URLs.
// A missing file is not an error for the viewer — the defaults point
// at a local mock gate.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads from YAML as a unit string
// ("5s", "600ms"). Bare numbers are rejected so a config value can
// never be misread by an order of magnitude.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (duration *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a string like \"5s\"")
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*duration = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (duration Duration) MarshalYAML() (any, error) {
	return time.Duration(duration).String(), nil
}

// Config is the viewer's full configuration.
type Config struct {
	// Gate configures the realm gate connection.
	Gate GateConfig `yaml:"gate"`

	// Sync configures the presence synchronizer.
	Sync SyncConfig `yaml:"sync"`

	// Realms lists the realms offered by the picker. The --realm
	// flag can name a realm outside this list.
	Realms []RealmConfig `yaml:"realms"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// GateConfig configures the gate HTTP client.
type GateConfig struct {
	// BaseURL is the root of the gate API.
	// Default: http://localhost:7420 (the local mock gate).
	BaseURL string `yaml:"base_url"`

	// RequestTimeout bounds a gate request end to end. Zero means
	// no overall bound (the synchronizer's fetch timeout still
	// applies). Default: 10s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// Encoding selects the wire format: "cbor" (default) or "json".
	Encoding string `yaml:"encoding"`

	// DisableCompression turns off zstd transport compression.
	DisableCompression bool `yaml:"disable_compression"`
}

// SyncConfig configures poll cadence and feed shape. The defaults
// match the synchronizer's own.
type SyncConfig struct {
	// DisplayLimit caps the feed length. Default: 5.
	DisplayLimit int `yaml:"display_limit"`

	// FetchSlack is how many sightings beyond the display limit
	// each fetch requests. Default: 5.
	FetchSlack int `yaml:"fetch_slack"`

	// BaseInterval and MaxInterval bound the poll cadence.
	// Defaults: 5s and 15s.
	BaseInterval Duration `yaml:"base_interval"`
	MaxInterval  Duration `yaml:"max_interval"`

	// GrowthFactor stretches the interval after IdleThreshold
	// consecutive quiet polls. Defaults: 1.5 and 3.
	GrowthFactor  float64 `yaml:"growth_factor"`
	IdleThreshold int     `yaml:"idle_threshold"`

	// TrickleDelay is the pause between consecutive feed
	// insertions. Default: 600ms.
	TrickleDelay Duration `yaml:"trickle_delay"`

	// FetchTimeout bounds a single poll's fetch. Default: 4s, so a
	// stalled gate cannot hold a poll slot past the base interval.
	FetchTimeout Duration `yaml:"fetch_timeout"`
}

// RealmConfig is one entry in the picker's realm list.
type RealmConfig struct {
	// ID is the realm identifier the gate knows.
	ID string `yaml:"id"`

	// Name is the label the picker shows. Defaults to ID.
	Name string `yaml:"name"`
}

// Label returns the picker label for the realm.
func (realm RealmConfig) Label() string {
	if realm.Name != "" {
		return realm.Name
	}
	return realm.ID
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is the minimum record level: debug, info, warn, error.
	// Default: info.
	Level string `yaml:"level"`

	// Format selects the handler: "text", "json", or "auto" (text
	// on a terminal, JSON otherwise). Default: auto.
	Format string `yaml:"format"`

	// File redirects log output. Empty logs to stderr; the viewer
	// discards stderr logging while the full-screen UI is active
	// unless a file is configured.
	File string `yaml:"file"`
}

// SlogLevel parses Level into a slog.Level.
func (logConfig LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logConfig.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", logConfig.Level)
	}
	return level, nil
}

// Default returns the default configuration: a local mock gate and
// the synchronizer's stock cadence.
func Default() *Config {
	return &Config{
		Gate: GateConfig{
			BaseURL:        "http://localhost:7420",
			RequestTimeout: Duration(10 * time.Second),
			Encoding:       "cbor",
		},
		Sync: SyncConfig{
			DisplayLimit:  5,
			FetchSlack:    5,
			BaseInterval:  Duration(5 * time.Second),
			MaxInterval:   Duration(15 * time.Second),
			GrowthFactor:  1.5,
			IdleThreshold: 3,
			TrickleDelay:  Duration(600 * time.Millisecond),
			FetchTimeout:  Duration(4 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by WATCHTOWER_CONFIG.
// An unset variable yields the defaults; a set-but-unreadable file is
// an error.
func Load() (*Config, error) {
	configPath := os.Getenv("WATCHTOWER_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging the
// file over the defaults and expanding ${VAR} references.
func LoadFile(path string) (*Config, error) {
	configuration := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, configuration); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	configuration.expandVariables()
	return configuration, nil
}

// expandVariables expands ${VAR} references in the fields that carry
// URLs or paths. Only these fields; sync numbers and names stay
// literal.
func (c *Config) expandVariables() {
	c.Gate.BaseURL = expandVars(c.Gate.BaseURL)
	c.Log.File = expandVars(c.Log.File)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the process
// environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration and reports every fault at once.
func (c *Config) Validate() error {
	var faults []error

	if c.Gate.BaseURL == "" {
		faults = append(faults, errors.New("gate.base_url is required"))
	}
	switch c.Gate.Encoding {
	case "", "cbor", "json":
	default:
		faults = append(faults, fmt.Errorf("gate.encoding must be cbor or json, got %q", c.Gate.Encoding))
	}
	if c.Gate.RequestTimeout < 0 {
		faults = append(faults, errors.New("gate.request_timeout must not be negative"))
	}

	if c.Sync.DisplayLimit < 1 {
		faults = append(faults, fmt.Errorf("sync.display_limit must be positive, got %d", c.Sync.DisplayLimit))
	}
	if c.Sync.FetchSlack < 0 {
		faults = append(faults, fmt.Errorf("sync.fetch_slack must not be negative, got %d", c.Sync.FetchSlack))
	}
	if c.Sync.BaseInterval <= 0 {
		faults = append(faults, errors.New("sync.base_interval must be positive"))
	}
	if c.Sync.MaxInterval < c.Sync.BaseInterval {
		faults = append(faults, fmt.Errorf("sync.max_interval %s must not be below sync.base_interval %s",
			time.Duration(c.Sync.MaxInterval), time.Duration(c.Sync.BaseInterval)))
	}
	if c.Sync.GrowthFactor < 1 {
		faults = append(faults, fmt.Errorf("sync.growth_factor must be at least 1, got %g", c.Sync.GrowthFactor))
	}
	if c.Sync.IdleThreshold < 1 {
		faults = append(faults, fmt.Errorf("sync.idle_threshold must be positive, got %d", c.Sync.IdleThreshold))
	}
	if c.Sync.TrickleDelay < 0 {
		faults = append(faults, errors.New("sync.trickle_delay must not be negative"))
	}
	if c.Sync.FetchTimeout < 0 {
		faults = append(faults, errors.New("sync.fetch_timeout must not be negative"))
	}

	seen := make(map[string]bool, len(c.Realms))
	for index, realm := range c.Realms {
		if realm.ID == "" {
			faults = append(faults, fmt.Errorf("realms[%d]: id is required", index))
			continue
		}
		if seen[realm.ID] {
			faults = append(faults, fmt.Errorf("realms[%d]: duplicate realm id %q", index, realm.ID))
		}
		seen[realm.ID] = true
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		faults = append(faults, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "", "auto", "text", "json":
	default:
		faults = append(faults, fmt.Errorf("log.format must be auto, text, or json, got %q", c.Log.Format))
	}

	return errors.Join(faults...)
}
