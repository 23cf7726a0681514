// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package config loads and validates Steamshelf configuration.
//
// Configuration is layered via koanf v2 (highest priority wins):
//
//  1. Environment variables (prefix STEAMSHELF_, "__" maps to nesting)
//  2. Config file (config.yaml)
//  3. Built-in defaults
//
// The resulting *Config is passed explicitly into the coordinator and the
// source clients; nothing reads configuration through package globals.
package config

import "time"

// Config is the root configuration for the tool.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Cache    CacheConfig    `koanf:"cache"`
	Steam    SteamConfig    `koanf:"steam"`
	HLTB     HLTBConfig     `koanf:"hltb"`
	ProtonDB ProtonDBConfig `koanf:"protondb"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

// CatalogConfig locates the local catalog database.
type CatalogConfig struct {
	// Path is the SQLite database file holding the game catalog.
	Path string `koanf:"path" validate:"required"`
}

// CacheConfig locates the on-disk JSON cache.
type CacheConfig struct {
	// Dir is the root directory for per-source file caches.
	Dir string `koanf:"dir" validate:"required"`
}

// SteamConfig holds the Steam credentials and install metadata consumed by
// the store-metadata, achievement, deck, and tag-import tracks. Absence of
// APIKey or SteamID skips the tracks that need them; it is not an error.
type SteamConfig struct {
	// APIKey is the Steam Web API key. Empty skips the store-metadata and
	// achievement tracks.
	APIKey string `koanf:"api_key"`

	// SteamID is the 64-bit account ID. Empty skips the achievement phase
	// of the store-metadata track.
	SteamID string `koanf:"steam_id" validate:"omitempty,numeric,len=17"`

	// TagDumpPath points at the exported app→tag dump consumed by the
	// tag-import track. Empty skips tag import.
	TagDumpPath string `koanf:"tag_dump_path"`

	// Language is the storefront language code used for tag resolution and
	// age-rating lookups.
	Language string `koanf:"language" validate:"omitempty,oneof=en de fr es it pt ru zh ja ko"`
}

// HLTBConfig tunes the completion-time source.
type HLTBConfig struct {
	// Enabled turns the completion-time track on or off.
	Enabled bool `koanf:"enabled"`

	// SearchPath is the HLTB search API path. The upstream rotates this
	// occasionally; a stale value surfaces as transport failures.
	SearchPath string `koanf:"search_path"`
}

// ProtonDBConfig tunes the compatibility-tier source.
type ProtonDBConfig struct {
	Enabled bool `koanf:"enabled"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	ListenAddr string `koanf:"listen_addr" validate:"omitempty,hostname_port"`
}

// Default returns a Config with all built-in defaults applied.
// These are applied first, then overridden by the config file and env vars.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Catalog: CatalogConfig{
			Path: "steamshelf.db",
		},
		Cache: CacheConfig{
			Dir: "cache",
		},
		Steam: SteamConfig{
			Language: "en",
		},
		HLTB: HLTBConfig{
			Enabled:    true,
			SearchPath: "/api/search",
		},
		ProtonDB: ProtonDBConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9090",
		},
	}
}

// Per-source pacing and freshness constants. These mirror the upstream
// services' documented tolerances and are deliberately not configurable.
const (
	// StoreBatchDelay is the pause between store-metadata batch chunks.
	StoreBatchDelay = 1 * time.Second

	// AchievementDelay is the pause between per-game achievement fetches.
	AchievementDelay = 1 * time.Second

	// HLTBDelay is the pause between completion-time searches.
	HLTBDelay = 200 * time.Millisecond

	// ProtonDBDelay is the pause between compatibility-tier fetches.
	ProtonDBDelay = 500 * time.Millisecond

	// DeckDelay is the pause between deck-compatibility fetches.
	DeckDelay = 1 * time.Second

	// AgeRatingDelay is the pause between age-rating fetches.
	AgeRatingDelay = 500 * time.Millisecond

	// ProtonDBTTL is the freshness window for cached compatibility tiers.
	ProtonDBTTL = 7 * 24 * time.Hour

	// HLTBTTL is the freshness window for cached completion times and the
	// steam→hltb ID mapping cache.
	HLTBTTL = 30 * 24 * time.Hour

	// FileCacheTTL is the freshness window for the per-app JSON file caches
	// (deck compatibility, age ratings).
	FileCacheTTL = 30 * 24 * time.Hour
)
