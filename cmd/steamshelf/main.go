// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Command steamshelf enriches a local Steam catalog database with store
// metadata, completion times, compatibility tiers, deck verification
// status, and age ratings.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/steamshelf/steamshelf/internal/cache"
	"github.com/steamshelf/steamshelf/internal/catalog"
	"github.com/steamshelf/steamshelf/internal/config"
	"github.com/steamshelf/steamshelf/internal/deckverify"
	"github.com/steamshelf/steamshelf/internal/enrich"
	"github.com/steamshelf/steamshelf/internal/hltb"
	"github.com/steamshelf/steamshelf/internal/logging"
	"github.com/steamshelf/steamshelf/internal/protondb"
	"github.com/steamshelf/steamshelf/internal/steamapi"
	"github.com/steamshelf/steamshelf/internal/storefront"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "steamshelf",
		Usage: "enrich a local Steam catalog with store and community metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the configuration file",
			},
		},
		Commands: []*cli.Command{
			enrichCommand(),
			sweepCommand(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		logging.Error().Err(err).Msg("steamshelf failed")
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by --config (or the default
// search path) and initializes the global logger from it.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	return cfg, nil
}

func enrichCommand() *cli.Command {
	return &cli.Command{
		Name:  "enrich",
		Usage: "run every eligible enrichment track against the catalog",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "refresh-age-ratings",
				Usage: "discard cached age-rating responses before running",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Bool("refresh-age-ratings") {
				if err := os.RemoveAll(filepath.Join(cfg.Cache.Dir, "age_ratings")); err != nil {
					return fmt.Errorf("clear age rating cache: %w", err)
				}
			}

			ctx = logging.ContextWithRunID(ctx, logging.GenerateRunID())

			if cfg.Metrics.Enabled {
				startMetricsListener(cfg.Metrics.ListenAddr)
			}

			deps, err := buildDeps(cfg)
			if err != nil {
				return err
			}

			coord := enrich.New(cfg, deps)
			go func() {
				<-ctx.Done()
				logging.Warn().Msg("interrupt received, finishing current items")
				coord.Cancel()
			}()

			start := time.Now()
			results, err := coord.Run(ctx)
			if err != nil {
				return err
			}
			printSummary(os.Stdout, results, time.Since(start))
			return nil
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "remove expired cache entries from the catalog and file caches",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.SweepExpired(ctx)
			if err != nil {
				return err
			}

			var files int
			for _, sub := range []string{"deck", "age_ratings"} {
				fc, err := cache.NewFile(filepath.Join(cfg.Cache.Dir, sub), config.FileCacheTTL)
				if err != nil {
					return err
				}
				n, err := fc.Sweep()
				if err != nil {
					return err
				}
				files += n
			}

			logging.Info().Int64("rows", rows).Int("files", files).Msg("sweep finished")
			fmt.Printf("removed %d expired rows and %d expired cache files\n", rows, files)
			return nil
		},
	}
}

// buildDeps assembles the per-source clients. Sources without their
// prerequisites stay nil and their tracks are skipped.
func buildDeps(cfg *config.Config) (enrich.Deps, error) {
	deckCache, err := cache.NewFile(filepath.Join(cfg.Cache.Dir, "deck"), config.FileCacheTTL)
	if err != nil {
		return enrich.Deps{}, fmt.Errorf("init deck cache: %w", err)
	}
	ageCache, err := cache.NewFile(filepath.Join(cfg.Cache.Dir, "age_ratings"), config.FileCacheTTL)
	if err != nil {
		return enrich.Deps{}, fmt.Errorf("init age rating cache: %w", err)
	}

	deps := enrich.Deps{
		OpenStore:  func() (*catalog.Store, error) { return catalog.Open(cfg.Catalog.Path) },
		Deck:       deckverify.New(deckCache),
		Storefront: storefront.New(cfg.Steam.Language, ageCache),
		Listener:   newProgressPrinter(os.Stdout),
	}
	if cfg.Steam.APIKey != "" {
		deps.Steam = steamapi.New(cfg.Steam.APIKey)
	}
	if cfg.ProtonDB.Enabled {
		deps.ProtonDB = protondb.New()
	}
	if cfg.HLTB.Enabled {
		deps.HLTB = hltb.New(cfg.HLTB.SearchPath)
	}
	if cfg.Steam.TagDumpPath != "" {
		deps.Tags = enrich.JSONTagDump{Path: cfg.Steam.TagDumpPath}
	}
	return deps, nil
}

func startMetricsListener(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info().Str("addr", addr).Msg("metrics listener started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error().Err(err).Msg("metrics listener failed")
		}
	}()
}
