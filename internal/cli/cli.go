// Package cli implements the seqlane command-line interface.
//
// This package provides commands for laying out comparative-genomics data,
// applying transforms, serving the accessor tables over HTTP, and managing
// the local cache. The CLI is built using cobra and supports verbose logging
// via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - layout: Ingest tables, compute the layout, apply transforms, export JSON
//   - inspect: Interactive bin browser with flip and reorder keys
//   - serve: HTTP surface exposing accessor tables and saved layouts
//   - cache: Manage the parsed-table and document cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/seqlane/seqlane/pkg/buildinfo"
	"github.com/seqlane/seqlane/pkg/cache"
	"github.com/seqlane/seqlane/pkg/config"
)

// appName is the application name used for directories and display.
const appName = "seqlane"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Seqlane lays out comparative-genomics data on shared coordinates",
		Long: `Seqlane is a layout engine for comparative genomics: it places sequences,
annotated features, and pairwise links (synteny blocks, alignments) into a
shared two-dimensional coordinate space that renderers can draw directly.

Typical flow: ingest tables (TSV, GFF3, BED, PAF), compute the layout, apply
flip/pick/focus transforms, and export the laid-out state as JSON.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./"+config.DefaultFile+")")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newCache builds the configured cache backend. Failures fall back to the
// null cache: caching is an optimization, never a requirement.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache || c.cfg.Cache.Backend == "none" {
		return cache.NewNullCache()
	}

	if c.cfg.Cache.Backend == "redis" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.cfg.Cache.RedisAddr})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "err", err)
			return cache.NewNullCache()
		}
		return rc
	}

	fc, err := cache.NewFileCache(c.cfg.Cache.Dir)
	if err != nil {
		c.Logger.Debug("cache disabled", "err", err)
		return cache.NewNullCache()
	}
	return fc
}
