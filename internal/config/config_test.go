// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Log.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Log.Level)
	}
	if !cfg.ProtonDB.Enabled {
		t.Error("protondb should be enabled by default")
	}
	if cfg.HLTB.SearchPath != "/api/search" {
		t.Errorf("default hltb search path = %q", cfg.HLTB.SearchPath)
	}
	if cfg.Steam.APIKey != "" {
		t.Error("no API key should be configured by default")
	}
}

func TestLoadFileAndEnvLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
log:
  level: debug
steam:
  api_key: FILEKEY
  language: de
catalog:
  path: /tmp/test.db
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	// Env beats file.
	t.Setenv("STEAMSHELF_STEAM__API_KEY", "ENVKEY")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("file should override default level, got %q", cfg.Log.Level)
	}
	if cfg.Steam.APIKey != "ENVKEY" {
		t.Errorf("env should override file, got %q", cfg.Steam.APIKey)
	}
	if cfg.Steam.Language != "de" {
		t.Errorf("language = %q, want de", cfg.Steam.Language)
	}
	if cfg.Catalog.Path != "/tmp/test.db" {
		t.Errorf("catalog path = %q", cfg.Catalog.Path)
	}
	// Untouched defaults survive.
	if !cfg.HLTB.Enabled {
		t.Error("hltb default should survive partial file config")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad language", func(c *Config) { c.Steam.Language = "xx" }},
		{"short steam id", func(c *Config) { c.Steam.SteamID = "1234" }},
		{"non-numeric steam id", func(c *Config) { c.Steam.SteamID = "7656119796127361x" }},
		{"empty catalog path", func(c *Config) { c.Catalog.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsMissingCredentials(t *testing.T) {
	// Absent credentials skip tracks; they must not fail validation.
	cfg := Default()
	cfg.Steam.APIKey = ""
	cfg.Steam.SteamID = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("missing credentials should validate, got %v", err)
	}
}

func TestEnvToKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"STEAMSHELF_LOG__LEVEL", "log.level"},
		{"STEAMSHELF_STEAM__API_KEY", "steam.api_key"},
		{"STEAMSHELF_HLTB__SEARCH_PATH", "hltb.search_path"},
	}

	for _, tt := range tests {
		if got := envToKey(tt.input); got != tt.expected {
			t.Errorf("envToKey(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
