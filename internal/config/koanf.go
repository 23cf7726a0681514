// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// EnvPrefix is the prefix for environment variable overrides.
// STEAMSHELF_STEAM__API_KEY maps to steam.api_key.
const EnvPrefix = "STEAMSHELF_"

// Load builds the effective configuration: defaults, then the config file
// (explicit path, or the first DefaultConfigPaths hit), then environment
// variables. The result is validated before being returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envToKey maps STEAMSHELF_STEAM__API_KEY to steam.api_key. A double
// underscore separates nesting levels so single underscores survive inside
// key names.
func envToKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

// findConfigFile returns the first existing default config path, or "".
func findConfigFile() string {
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
