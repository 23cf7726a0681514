// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package metrics provides Prometheus instrumentation for the enrichment
// engine: per-track item outcomes and durations, upstream API behavior, and
// cache efficiency. Collectors register on the default registry via promauto
// and are exposed by the optional metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsProcessed counts enrichment items per track and outcome
	// ("success" or "failed").
	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamshelf_items_processed_total",
			Help: "Total enrichment items processed, by track and outcome",
		},
		[]string{"track", "outcome"},
	)

	// TrackDuration observes wall-clock runtime of each track.
	TrackDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "steamshelf_track_duration_seconds",
			Help:    "Wall-clock duration of enrichment tracks in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"track"},
	)

	// TracksFinished counts terminal track states ("completed", "failed",
	// "skipped", "cancelled").
	TracksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamshelf_tracks_finished_total",
			Help: "Total tracks reaching a terminal state, by track and state",
		},
		[]string{"track", "state"},
	)

	// APIRequests counts upstream requests per source and status class
	// ("ok", "rate_limited", "not_found", "error").
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamshelf_api_requests_total",
			Help: "Total upstream API requests, by source and result",
		},
		[]string{"source", "result"},
	)

	// APIRetries counts rate-limit backoff retries per source.
	APIRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamshelf_api_retries_total",
			Help: "Total rate-limit retries performed, by source",
		},
		[]string{"source"},
	)

	// CacheHits counts cache hits per cache tier ("catalog", "file").
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamshelf_cache_hits_total",
			Help: "Total cache hits, by source",
		},
		[]string{"source"},
	)

	// CacheMisses counts cache misses per cache tier.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamshelf_cache_misses_total",
			Help: "Total cache misses, by source",
		},
		[]string{"source"},
	)

	// ActiveTracks gauges how many tracks are currently running.
	ActiveTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "steamshelf_active_tracks",
			Help: "Number of enrichment tracks currently running",
		},
	)
)
