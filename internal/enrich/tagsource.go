// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package enrich

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
)

// Tag is one store tag as delivered by a tag source.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TagSource delivers the app→tag associations consumed by the tag import
// prerequisite. The desktop application exports these from the vendor
// metadata; this tool only reads the export.
type TagSource interface {
	// Load returns tags keyed by app ID.
	Load(ctx context.Context) (map[int64][]Tag, error)
}

// JSONTagDump reads a tag export in JSON form: an object mapping app IDs to
// tag arrays.
type JSONTagDump struct {
	Path string
}

// Load implements TagSource.
func (d JSONTagDump) Load(_ context.Context) (map[int64][]Tag, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("read tag dump %s: %w", d.Path, err)
	}

	var raw map[string][]Tag
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse tag dump %s: %w", d.Path, err)
	}

	out := make(map[int64][]Tag, len(raw))
	for key, tags := range raw {
		appID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse tag dump %s: bad app id %q", d.Path, key)
		}
		out[appID] = tags
	}
	return out, nil
}
