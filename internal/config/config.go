// Package config defines the trackstats application configuration.
//
// Values are layered, lowest precedence first:
//  1. defaults (New)
//  2. the YAML file named by TRACKSTATS_CONFIG, if set
//  3. environment variables prefixed TRACKSTATS_ (TRACKSTATS_DB_PATH -> db_path)
//
// Command line flags override the loaded values in the cli package.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/logger"
	"github.com/pfrederiksen/trackstats/internal/normalize"
)

// ErrInvalidConfig is returned for configuration values that fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	// EnvPrefix prefixes every configuration environment variable.
	EnvPrefix = "TRACKSTATS_"
	// EnvFile names the optional YAML configuration file.
	EnvFile = EnvPrefix + "CONFIG"

	// DefaultDBPath is the store location when none is configured.
	DefaultDBPath = "~/.trackstats/trackstats.db"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text (colored console) or json.
	LogFormat string `koanf:"log_format"`

	// DBPath is the SQLite database file. A leading ~/ expands to the home
	// directory.
	DBPath string `koanf:"db_path"`
	// DataDir resolves relative source paths of meet documents.
	DataDir string `koanf:"data_dir"`
	// MeetDir is searched for meet documents when load gets no paths.
	MeetDir string `koanf:"meet_dir"`

	// EventsDict and SchoolsDict replace the built-in dictionaries.
	EventsDict  string `koanf:"events_dict"`
	SchoolsDict string `koanf:"schools_dict"`

	// MetricsFile receives the run metrics in Prometheus text format.
	MetricsFile string `koanf:"metrics_file"`

	// RelayPolicy is drop or keep, for relays with no resolvable member.
	RelayPolicy string `koanf:"relay_policy"`
	// Workers bounds parallel source parsing.
	Workers int `koanf:"workers"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   string(logger.FormatText),
		DBPath:      DefaultDBPath,
		RelayPolicy: string(normalize.RelayDrop),
		Workers:     runtime.NumCPU(),
	}
}

// Load builds a Config by layering defaults, the optional file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
		}
	}

	// Keys stay flat: TRACKSTATS_DB_PATH -> db_path.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: reading environment: %v", ErrInvalidConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	if _, err := logger.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: log_format: %v", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if _, err := normalize.ParseRelayPolicy(c.RelayPolicy); err != nil {
		return fmt.Errorf("%w: relay_policy: %v", ErrInvalidConfig, err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Events loads the configured event dictionary, or the built-in one.
func (c *Config) Events() (*dictionary.Events, error) {
	if c.EventsDict == "" {
		return dictionary.DefaultEvents()
	}
	return dictionary.LoadEvents(c.EventsDict)
}

// Schools loads the configured school dictionary, or the built-in one.
func (c *Config) Schools() (*dictionary.Schools, error) {
	if c.SchoolsDict == "" {
		return dictionary.DefaultSchools()
	}
	return dictionary.LoadSchools(c.SchoolsDict)
}

// Logger builds the configured logger writing to out.
func (c *Config) Logger(out io.Writer) (*logger.Logger, error) {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	format, err := logger.ParseFormat(c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: log_format: %v", ErrInvalidConfig, err)
	}
	return logger.New(level, format, out), nil
}
