package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// appName is the directory name used under the platform config dir.
const appName = "depot"

// DefaultConfigPath returns the platform-default config file location
// ($XDG_CONFIG_HOME/depot/config.toml or the OS equivalent). Falls back to a
// relative path when the platform config dir cannot be determined.
func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(appName, "config.toml")
	}

	return filepath.Join(base, appName, "config.toml")
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal — silently ignoring a typo in a
// config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		sort.Strings(keys)

		return nil, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with defaults. Supports the zero-config first run: a
// server URL from env or flag is enough.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// ReadEnvOverrides reads the environment layer of the override chain.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv("DEPOT_CONFIG"),
		ServerURL:   os.Getenv("DEPOT_URL"),
		AccessToken: os.Getenv("DEPOT_TOKEN"),
	}
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment -> CLI flags. CLI flags always win,
// matching user expectations for one-off overrides.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	resolved := &Resolved{
		ServerURL:       cfg.Server.URL,
		AccessToken:     cfg.Server.AccessToken,
		ParallelMoves:   cfg.Transfers.ParallelMoves,
		VerifyDownloads: cfg.Transfers.VerifyDownloads,
		LogLevel:        cfg.Logging.LogLevel,
		LogFormat:       cfg.Logging.LogFormat,
	}

	resolved.Timeout, err = time.ParseDuration(cfg.Network.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", cfg.Network.Timeout, err)
	}

	if env.ServerURL != "" {
		resolved.ServerURL = env.ServerURL
	}

	if env.AccessToken != "" {
		resolved.AccessToken = env.AccessToken
	}

	if cli.ServerURL != "" {
		resolved.ServerURL = cli.ServerURL
	}

	if err := validateServerURL(resolved.ServerURL); err != nil {
		return nil, err
	}

	return resolved, nil
}
