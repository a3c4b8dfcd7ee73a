// Package config loads toolchain settings from the environment, with
// an optional .env file for local overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the toolchain.
type Config struct {
	// Home is the local state directory (download cache, index).
	// Defaults to ~/.nanoscope.
	Home string `env:"NANOSCOPE_HOME"`

	// AdbPath is the adb binary to drive devices with.
	AdbPath string `env:"NANOSCOPE_ADB" envDefault:"adb"`

	// DeviceSerial selects a device when several are connected.
	DeviceSerial string `env:"NANOSCOPE_SERIAL"`

	// RomURL is the archive for the device ROM package.
	RomURL string `env:"NANOSCOPE_ROM_URL" envDefault:"https://github.com/uber/nanoscope-art/releases/latest/download/nanoscope-rom.tar.gz"`

	// PollInterval is how often to check the device for the finished
	// trace file.
	PollInterval time.Duration `env:"NANOSCOPE_POLL_INTERVAL" envDefault:"500ms"`

	// PollTimeout bounds how long to wait for the trace file.
	PollTimeout time.Duration `env:"NANOSCOPE_POLL_TIMEOUT" envDefault:"2m"`

	// CachePruneSchedule is a cron expression for sweeping stale
	// downloads during long sessions. Empty disables sweeping.
	CachePruneSchedule string `env:"NANOSCOPE_CACHE_PRUNE_SCHEDULE" envDefault:"@every 30m"`

	// CacheTTL is how long a cached download stays valid.
	CacheTTL time.Duration `env:"NANOSCOPE_CACHE_TTL" envDefault:"720h"`
}

// Load builds a Config from the environment. A .env file in the
// working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		cfg.Home = filepath.Join(home, ".nanoscope")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.AdbPath == "" {
		return fmt.Errorf("adb path must not be empty")
	}
	if c.RomURL == "" {
		return fmt.Errorf("rom url must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %s", c.PollTimeout)
	}
	if c.PollTimeout < c.PollInterval {
		return fmt.Errorf("poll timeout %s is shorter than the poll interval %s", c.PollTimeout, c.PollInterval)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL)
	}
	return nil
}

// CacheDir returns the download cache directory under Home.
func (c *Config) CacheDir() string {
	return filepath.Join(c.Home, "cache")
}
