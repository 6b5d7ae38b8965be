// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Player  PlayerConfig  `yaml:"player"`
	Search  SearchConfig  `yaml:"search"`
	Input   InputConfig   `yaml:"input"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig represents playlist storage configuration.
type StorageConfig struct {
	// Dir is where the playlist index and documents live. Empty means
	// ~/.tunebeats, resolved at load time.
	Dir string `yaml:"dir"`
}

// PlayerConfig represents playback engine configuration.
type PlayerConfig struct {
	Type     string         `yaml:"type" default:"mpv" validate:"required"`
	Settings map[string]any `yaml:"settings"`

	// GracePeriodSec is how long completion events are ignored after a
	// track starts, so a trailing event from the previous track cannot
	// skip the new one.
	GracePeriodSec int `yaml:"grace_period_sec" default:"3" validate:"gte=0,lte=30"`
}

// SearchConfig represents track search configuration.
type SearchConfig struct {
	Binary     string `yaml:"binary" default:"yt-dlp" validate:"required"`
	MaxResults int    `yaml:"max_results" default:"50" validate:"gte=1,lte=200"`
}

// InputConfig represents input loop configuration.
type InputConfig struct {
	TickMs int `yaml:"tick_ms" default:"100" validate:"gte=10,lte=1000"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`

	// File receives log output. The terminal is owned by the interface,
	// so logs never go to stdout or stderr while running. Empty means
	// <storage dir>/tunebeats.log.
	File string `yaml:"file"`
}

// Load loads configuration from a YAML file. A missing file is not an
// error; the configuration is then defaults plus environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// Run on defaults.
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.applyDerived(); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TUNEBEATS_DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("TUNEBEATS_PLAYER_SOCKET"); v != "" {
		if c.Player.Settings == nil {
			c.Player.Settings = map[string]any{}
		}
		c.Player.Settings["socket_path"] = v
	}
	if v := os.Getenv("TUNEBEATS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// applyDerived fills in values that depend on the environment rather
// than on fixed defaults.
func (c *Config) applyDerived() error {
	if c.Storage.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to resolve home directory")
		}
		c.Storage.Dir = filepath.Join(home, ".tunebeats")
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(c.Storage.Dir, "tunebeats.log")
	}
	return nil
}

// GracePeriod returns the completion grace window as a duration.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Player.GracePeriodSec) * time.Second
}

// Tick returns the input loop cadence as a duration.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Input.TickMs) * time.Millisecond
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
