// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/steamshelf/steamshelf/internal/models"
)

func TestProgressPrinterTrackFinished(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := newProgressPrinter(&buf)

	p.TrackFinished("hltb", models.TrackResult{Success: 10, Failed: 2})
	p.TrackFinished("deck", models.TrackResult{Success: models.SkippedSentinel})
	p.TrackFinished("steam", models.TrackResult{Failed: models.ErroredSentinel})

	out := buf.String()
	for _, want := range []string{
		"[hltb] done: 10 ok, 2 failed",
		"[deck] skipped",
		"[steam] failed before processing any items",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printSummary(&buf, map[string]models.TrackResult{
		"protondb": {Success: 5, Failed: 1},
		"hltb":     {Success: models.SkippedSentinel},
	}, 90*time.Second)

	out := buf.String()
	if !strings.Contains(out, "1m30s") {
		t.Errorf("output missing elapsed time:\n%s", out)
	}
	// Tracks print in sorted order.
	if strings.Index(out, "hltb") > strings.Index(out, "protondb") {
		t.Errorf("tracks out of order:\n%s", out)
	}
}
