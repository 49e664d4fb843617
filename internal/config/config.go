// Package config loads service configuration from a TOML file with
// struct-tag defaults and a couple of environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mcuadros/go-defaults"
)

// Config is the full service configuration.
type Config struct {
	Addr        string  `toml:"addr" default:":9090"`
	DataDir     string  `toml:"data_dir" default:""`
	LogFile     string  `toml:"log_file" default:""` // rotatelogs pattern, e.g. logs/faceid.%Y%m%d.log
	EncodingDim int     `toml:"encoding_dim" default:"512"`
	Threshold   float64 `toml:"threshold" default:"0.85"`
	StatsWindow int     `toml:"stats_window" default:"100"`
	Timezone    string  `toml:"timezone" default:"UTC"`
	AtRestKey   string  `toml:"at_rest_key" default:""` // hex, 16/24/32 bytes

	Recognizer Recognizer `toml:"recognizer"`
}

// Recognizer configures the external face recognition service boundary.
type Recognizer struct {
	Endpoint   string `toml:"endpoint" default:"http://localhost:5000"`
	OracleMode string `toml:"oracle_mode" default:"cosine"` // "cosine" or "remote"
	TimeoutMS  int    `toml:"timeout_ms" default:"2000"`
}

// Timeout is the per-request bound for recognizer calls.
func (r Recognizer) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// Load reads path (skipped when empty), applies defaults and env overrides,
// and validates the result. PORT and FACEID_ADDR override the listen address.
func Load(path string) (Config, error) {
	var cfg Config
	defaults.SetDefaults(&cfg)

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if v := os.Getenv("FACEID_ADDR"); v != "" {
		cfg.Addr = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := os.Getenv("FACEID_AT_REST_KEY"); v != "" {
		cfg.AtRestKey = v
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.EncodingDim <= 0 {
		return fmt.Errorf("config: encoding_dim must be positive, got %d", c.EncodingDim)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("config: threshold must be in [0,1], got %g", c.Threshold)
	}
	if c.StatsWindow <= 0 {
		return fmt.Errorf("config: stats_window must be positive, got %d", c.StatsWindow)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone: %w", err)
	}
	switch c.Recognizer.OracleMode {
	case "cosine", "remote":
	default:
		return fmt.Errorf("config: oracle_mode must be cosine or remote, got %q", c.Recognizer.OracleMode)
	}
	return nil
}

// Location returns the parsed reference timezone. Call after Load.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
