// Package config implements TOML configuration loading and validation for
// depot-go, with a defaults -> config file -> environment -> CLI flags
// override chain.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Default values, the "layer 0" of the override chain.
const (
	defaultParallelMoves = 8
	defaultTimeout       = "60s"
	defaultLogLevel      = "info"
	defaultLogFormat     = "auto"
)

// Config is the top-level structure parsed from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Transfers TransfersConfig `toml:"transfers"`
	Network   NetworkConfig   `toml:"network"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig identifies the repository server and how to authenticate.
// The access token is injected as a bearer header on every request; token
// acquisition is outside this tool's scope.
type ServerConfig struct {
	URL         string `toml:"url"`
	AccessToken string `toml:"access_token"`
}

// TransfersConfig controls transfer and relocation behavior.
type TransfersConfig struct {
	ParallelMoves   int  `toml:"parallel_moves"`
	VerifyDownloads bool `toml:"verify_downloads"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	Timeout string `toml:"timeout"`
}

// LoggingConfig controls log output: level and format. Format "auto" picks
// text on a terminal and JSON otherwise.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// EnvOverrides holds values read from the environment (layer 2).
type EnvOverrides struct {
	ConfigPath  string // DEPOT_CONFIG
	ServerURL   string // DEPOT_URL
	AccessToken string // DEPOT_TOKEN
}

// CLIOverrides holds values from CLI flags (layer 3, highest priority).
type CLIOverrides struct {
	ConfigPath string // --config
	ServerURL  string // --server
}

// Resolved is the effective configuration after the full override chain,
// with durations parsed and defaults applied.
type Resolved struct {
	ServerURL       string
	AccessToken     string
	ParallelMoves   int
	VerifyDownloads bool
	Timeout         time.Duration
	LogLevel        string
	LogFormat       string
}

// DefaultConfig returns a Config populated with all default values. Used as
// the TOML decode target so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		Transfers: TransfersConfig{ParallelMoves: defaultParallelMoves},
		Network:   NetworkConfig{Timeout: defaultTimeout},
		Logging:   LoggingConfig{LogLevel: defaultLogLevel, LogFormat: defaultLogFormat},
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}

// Validate checks a parsed Config for values that can never work. The server
// URL is checked at resolve time because it may arrive via env or flag.
func Validate(cfg *Config) error {
	if cfg.Transfers.ParallelMoves < 0 {
		return fmt.Errorf("parallel_moves must not be negative (got %d)", cfg.Transfers.ParallelMoves)
	}

	if _, err := time.ParseDuration(cfg.Network.Timeout); err != nil {
		return fmt.Errorf("invalid timeout %q: %w", cfg.Network.Timeout, err)
	}

	if !validLogLevels[cfg.Logging.LogLevel] {
		return fmt.Errorf("invalid log_level %q (debug, info, warn, error)", cfg.Logging.LogLevel)
	}

	if !validLogFormats[cfg.Logging.LogFormat] {
		return fmt.Errorf("invalid log_format %q (auto, text, json)", cfg.Logging.LogFormat)
	}

	return nil
}

// validateServerURL requires an absolute http(s) URL.
func validateServerURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("no server URL configured (set [server] url, DEPOT_URL, or --server)")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server URL %q must use http or https", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("server URL %q has no host", raw)
	}

	return nil
}
