// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package enrich

import "github.com/steamshelf/steamshelf/internal/models"

// Listener observes enrichment progress. Methods are invoked synchronously
// from worker goroutines, possibly from several at once; implementations
// must be cheap and safe for concurrent use.
type Listener interface {
	// TrackProgress fires once per processed item.
	TrackProgress(track string, current, total int, label string)

	// TrackFinished fires exactly once per track that was started.
	TrackFinished(track string, result models.TrackResult)

	// AllFinished fires exactly once per run, after the last track
	// finished. The map holds an entry for every configured track,
	// including skipped ones.
	AllFinished(results map[string]models.TrackResult)
}

// NopListener discards all events. It is the default when no listener is
// configured.
type NopListener struct{}

func (NopListener) TrackProgress(string, int, int, string)    {}
func (NopListener) TrackFinished(string, models.TrackResult)  {}
func (NopListener) AllFinished(map[string]models.TrackResult) {}
