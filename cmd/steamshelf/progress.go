// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package main

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/steamshelf/steamshelf/internal/enrich"
	"github.com/steamshelf/steamshelf/internal/models"
)

// progressPrinter renders enrichment progress as plain console lines. It
// receives events from several track goroutines at once, so every write
// goes through the mutex.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) TrackProgress(track string, current, total int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if label == "" {
		fmt.Fprintf(p.w, "[%s] %d/%d\n", track, current, total)
		return
	}
	fmt.Fprintf(p.w, "[%s] %d/%d  %s\n", track, current, total, label)
}

func (p *progressPrinter) TrackFinished(track string, result models.TrackResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case result.Success == models.SkippedSentinel:
		fmt.Fprintf(p.w, "[%s] skipped\n", track)
	case result.Failed == models.ErroredSentinel:
		fmt.Fprintf(p.w, "[%s] failed before processing any items\n", track)
	default:
		fmt.Fprintf(p.w, "[%s] done: %d ok, %d failed\n", track, result.Success, result.Failed)
	}
}

func (p *progressPrinter) AllFinished(map[string]models.TrackResult) {}

var _ enrich.Listener = (*progressPrinter)(nil)

// printSummary writes the end-of-run table, tracks in stable order.
func printSummary(w io.Writer, results map[string]models.TrackResult, elapsed time.Duration) {
	tracks := make([]string, 0, len(results))
	for track := range results {
		tracks = append(tracks, track)
	}
	sort.Strings(tracks)

	fmt.Fprintf(w, "\nenrichment finished in %s\n", elapsed.Round(time.Second))
	for _, track := range tracks {
		result := results[track]
		switch {
		case result.Success == models.SkippedSentinel:
			fmt.Fprintf(w, "  %-10s skipped\n", track)
		case result.Failed == models.ErroredSentinel:
			fmt.Fprintf(w, "  %-10s failed\n", track)
		default:
			fmt.Fprintf(w, "  %-10s %d ok, %d failed\n", track, result.Success, result.Failed)
		}
	}
}
