// Package config loads ecshimctl's JSONC configuration file and turns it
// into an ecshim.Config, layering defaults, an optional config file, and
// CLI flag overrides the same way as tailscale/hujson-based config
// loaders elsewhere in this ecosystem: defaults first, file second, CLI
// flags win last.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ecshim/ecshim"
	"github.com/spf13/pflag"
	"github.com/tailscale/hujson"
)

// FileConfig is the on-disk shape of an ecshimctl config file. Durations
// are expressed in milliseconds so the JSONC stays free of Go duration
// string parsing.
type FileConfig struct {
	BlockSize           int   `json:"block_size,omitempty"`
	CacheSize           int   `json:"cache_size,omitempty"`
	CacheTimeMillis     int64 `json:"cache_time_ms,omitempty"`
	MinWriteDelayMillis int64 `json:"min_write_delay_ms,omitempty"`
	BackendLagMillis    int64 `json:"backend_lag_ms,omitempty"`
}

// Default returns the FileConfig equivalent of ecshim.DefaultConfig.
func Default() FileConfig {
	d := ecshim.DefaultConfig()
	return FileConfig{
		BlockSize:           d.BlockSize,
		CacheSize:           d.CacheSize,
		CacheTimeMillis:     d.CacheTime.Milliseconds(),
		MinWriteDelayMillis: d.MinWriteDelay.Milliseconds(),
		BackendLagMillis:    d.MinWriteDelay.Milliseconds() / 2,
	}
}

var (
	errBlockSize     = errors.New("block_size must be > 0")
	errCacheSize     = errors.New("cache_size must be >= 1")
	errCacheVsDelay  = errors.New("cache_time_ms must be >= min_write_delay_ms")
	errBackendLagNeg = errors.New("backend_lag_ms must be >= 0")
)

// Validate checks the structural constraints the shim itself enforces,
// so a bad config file is rejected before ecshim.New ever sees it.
func (c FileConfig) Validate() error {
	if c.BlockSize <= 0 {
		return errBlockSize
	}
	if c.CacheSize < 1 {
		return errCacheSize
	}
	if c.CacheTimeMillis < c.MinWriteDelayMillis {
		return errCacheVsDelay
	}
	if c.BackendLagMillis < 0 {
		return errBackendLagNeg
	}
	return nil
}

// ShimConfig converts the file representation into an ecshim.Config.
func (c FileConfig) ShimConfig() ecshim.Config {
	cfg := ecshim.DefaultConfig()
	cfg.BlockSize = c.BlockSize
	cfg.CacheSize = c.CacheSize
	cfg.CacheTime = time.Duration(c.CacheTimeMillis) * time.Millisecond
	cfg.MinWriteDelay = time.Duration(c.MinWriteDelayMillis) * time.Millisecond
	return cfg
}

// Load reads and parses a JSONC config file at path, merging it over
// Default(). An empty path, or a path that does not exist, yields the
// defaults unchanged.
func Load(path string) (FileConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied by design
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return FileConfig{}, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config JSON in %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyFlags overrides cfg with any flags the operator actually set on
// fs, leaving fields untouched for flags left at their defaults. This
// mirrors the "only override what was explicitly passed" precedence
// used for CLI overrides across the config-loading pattern this is
// modeled on.
func ApplyFlags(cfg FileConfig, fs *pflag.FlagSet) (FileConfig, error) {
	if fs.Changed("block-size") {
		v, err := fs.GetInt("block-size")
		if err != nil {
			return cfg, err
		}
		cfg.BlockSize = v
	}
	if fs.Changed("cache-size") {
		v, err := fs.GetInt("cache-size")
		if err != nil {
			return cfg, err
		}
		cfg.CacheSize = v
	}
	if fs.Changed("cache-time") {
		v, err := fs.GetDuration("cache-time")
		if err != nil {
			return cfg, err
		}
		cfg.CacheTimeMillis = v.Milliseconds()
	}
	if fs.Changed("min-write-delay") {
		v, err := fs.GetDuration("min-write-delay")
		if err != nil {
			return cfg, err
		}
		cfg.MinWriteDelayMillis = v.Milliseconds()
	}
	if fs.Changed("backend-lag") {
		v, err := fs.GetDuration("backend-lag")
		if err != nil {
			return cfg, err
		}
		cfg.BackendLagMillis = v.Milliseconds()
	}
	return cfg, cfg.Validate()
}
