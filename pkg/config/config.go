// Package config loads seqlane.toml, the optional project configuration the
// CLI and serve surfaces read before applying their flags. Flags always win
// over file values; file values win over the defaults here.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/layout"
)

// DefaultFile is the config file name searched in the working directory.
const DefaultFile = "seqlane.toml"

// Config is the full file schema.
type Config struct {
	Layout LayoutConfig `toml:"layout"`
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Serve  ServeConfig  `toml:"serve"`
}

// LayoutConfig holds layout engine settings.
type LayoutConfig struct {
	// Strict makes unresolved references fatal instead of dropping rows.
	Strict bool `toml:"strict"`
	// Gap is the spacer between consecutive sequences of a bin.
	Gap int `toml:"gap"`
	// Marginal is the policy for rows spanning outside their window:
	// trim, drop, or keep.
	Marginal string `toml:"marginal"`
	// ZeroStart extends inferred sequences back to coordinate zero.
	ZeroStart bool `toml:"zero_start"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	// Backend is one of file, redis, none.
	Backend string `toml:"backend"`
	// Dir is the file backend's root directory.
	Dir string `toml:"dir"`
	// RedisAddr is the redis backend's host:port.
	RedisAddr string `toml:"redis_addr"`
}

// StoreConfig selects and configures the saved-layout store.
type StoreConfig struct {
	// Backend is one of memory, mongo.
	Backend string `toml:"backend"`
	// MongoURI is the mongo connection string.
	MongoURI string `toml:"mongo_uri"`
	// MongoDatabase defaults to seqlane.
	MongoDatabase string `toml:"mongo_database"`
}

// ServeConfig holds the HTTP surface settings.
type ServeConfig struct {
	// Addr is the listen address, default :8080.
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Layout: LayoutConfig{Marginal: string(layout.MarginalTrim)},
		Cache:  CacheConfig{Backend: "file", Dir: defaultCacheDir()},
		Store:  StoreConfig{Backend: "memory"},
		Serve:  ServeConfig{Addr: ":8080"},
	}
}

// Load reads a config file into the defaults. A missing file at the default
// path is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return cfg, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", path)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := layout.ParseMarginalPolicy(c.Layout.Marginal); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case "", "file", "redis", "none":
	default:
		return errors.New(errors.ErrCodeValidation, "invalid cache backend %q (file|redis|none)", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case "", "memory", "mongo":
	default:
		return errors.New(errors.ErrCodeValidation, "invalid store backend %q (memory|mongo)", c.Store.Backend)
	}
	if c.Layout.Gap < 0 {
		return errors.New(errors.ErrCodeValidation, "gap must be non-negative, got %d", c.Layout.Gap)
	}
	return nil
}

// LayoutOptions converts the file settings into engine options.
func (c Config) LayoutOptions() layout.Options {
	policy, _ := layout.ParseMarginalPolicy(c.Layout.Marginal)
	return layout.Options{
		Strict:    c.Layout.Strict,
		Gap:       c.Layout.Gap,
		Marginal:  policy,
		ZeroStart: c.Layout.ZeroStart,
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "seqlane")
	}
	return ".seqlane-cache"
}
