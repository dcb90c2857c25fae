package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/layout"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seqlane.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[layout]
strict = true
gap = 25
marginal = "drop"

[cache]
backend = "redis"
redis_addr = "cache.internal:6379"

[store]
backend = "mongo"
mongo_uri = "mongodb://db.internal:27017"

[serve]
addr = ":9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Layout.Strict || cfg.Layout.Gap != 25 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "cache.internal:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Store.Backend != "mongo" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Serve.Addr != ":9000" {
		t.Errorf("serve = %+v", cfg.Serve)
	}

	opts := cfg.LayoutOptions()
	if !opts.Strict || opts.Gap != 25 || opts.Marginal != layout.MarginalDrop {
		t.Errorf("options = %+v", opts)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[layout]
gap = 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Gap != 5 {
		t.Errorf("gap = %d, want 5", cfg.Layout.Gap)
	}
	if cfg.Cache.Backend != "file" || cfg.Serve.Addr != ":8080" {
		t.Errorf("defaults lost: cache=%+v serve=%+v", cfg.Cache, cfg.Serve)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("ExplicitMissing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, errors.ErrCodeFileNotFound) {
			t.Errorf("error = %v, want FILE_NOT_FOUND", err)
		}
	})

	t.Run("BadTOML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[layout\ngap = "))
		if !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("error = %v, want INVALID_FORMAT", err)
		}
	})

	t.Run("BadMarginal", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[layout]\nmarginal = \"snip\""))
		if !errors.Is(err, errors.ErrCodeValidation) {
			t.Errorf("error = %v, want VALIDATION", err)
		}
	})

	t.Run("BadBackend", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[cache]\nbackend = \"s3\""))
		if !errors.Is(err, errors.ErrCodeValidation) {
			t.Errorf("error = %v, want VALIDATION", err)
		}
	})

	t.Run("NegativeGap", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[layout]\ngap = -1"))
		if !errors.Is(err, errors.ErrCodeValidation) {
			t.Errorf("error = %v, want VALIDATION", err)
		}
	})
}
