// Package config loads match and server settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/resolve"
)

type Config struct {
	Port          string `yaml:"port"`
	GridSize      int    `yaml:"grid_size"`
	Players       int    `yaml:"players"`
	RoundLength   string `yaml:"round_length"`
	Seed          int64  `yaml:"seed"`
	Map           string `yaml:"map"`
	Reattempt     string `yaml:"reattempt"`
	LogLevel      string `yaml:"log_level"`
	StartingUnits int    `yaml:"starting_units"`
}

// Default mirrors a standard match: four players on a 50x50 generated map with 100 second turns.
func Default() Config {
	return Config{
		Port:          "8000",
		GridSize:      50,
		Players:       4,
		RoundLength:   "100s",
		Map:           "generated",
		Reattempt:     string(resolve.Hold),
		LogLevel:      "info",
		StartingUnits: 3,
	}
}

// Load reads path over the defaults. An empty path keeps the defaults. PORT in the environment
// wins over the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.DisallowUnknownField()); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.GridSize < 5 || c.GridSize > grid.MaxSize {
		errs = append(errs, fmt.Errorf("grid_size must be 5..%d, got %d", grid.MaxSize, c.GridSize))
	}
	if c.Players < 1 || c.Players > 4 {
		errs = append(errs, fmt.Errorf("players must be 1..4, got %d", c.Players))
	}
	if d, err := time.ParseDuration(c.RoundLength); err != nil {
		errs = append(errs, fmt.Errorf("round_length: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("round_length must be positive, got %s", d))
	}
	if c.StartingUnits < 0 {
		errs = append(errs, fmt.Errorf("starting_units must not be negative, got %d", c.StartingUnits))
	}
	if _, err := resolve.ParsePolicy(c.Reattempt); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RoundDuration is the parsed round_length. Call Validate first.
func (c Config) RoundDuration() time.Duration {
	d, _ := time.ParseDuration(c.RoundLength)
	return d
}

func (c Config) Policy() resolve.Policy {
	p, _ := resolve.ParsePolicy(c.Reattempt)
	return p
}

func (c Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}
