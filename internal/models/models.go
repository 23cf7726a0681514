// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package models defines the shared data types exchanged between the catalog
// store, the external source clients, and the enrichment engine.
package models

import (
	"regexp"
	"strings"
	"time"
)

// WorkItem is one unit of enrichment work: a catalog entry identifier plus
// its display label. Immutable; the enrichment engine never mutates or
// persists it.
type WorkItem struct {
	ID    int64
	Label string
}

// placeholderPattern matches the fallback names generated when the vendor
// metadata carries no real title for an app ("App 123", localized variants).
var placeholderPattern = regexp.MustCompile(`^(App \d+|Unknown App \d+|Unbekannte App \d+)$`)

// IsPlaceholderName reports whether a game name is a placeholder/fallback.
// Empty and whitespace-only names count as placeholders. A stored
// non-placeholder name must never be overwritten by one of these.
func IsPlaceholderName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return true
	}
	return placeholderPattern.MatchString(trimmed)
}

// StoreDetails holds metadata for one app as returned by the Steam Web API
// batch endpoint.
type StoreDetails struct {
	AppID               int64
	Name                string
	Developers          []string
	Publishers          []string
	SteamReleaseDate    int64
	OriginalReleaseDate int64
	Genres              []string
	Tags                []string
	Languages           []string
	ReviewScore         int
	ReviewDesc          string
	IsFree              bool
}

// ProtonDBRating is a compatibility-tier summary for one app.
type ProtonDBRating struct {
	Tier         string
	Confidence   string
	TrendingTier string
	Score        float64
	BestReported string
}

// TierUnknown is the negative-cache sentinel stored when ProtonDB has no
// data for an app, so the next run does not immediately re-query it.
const TierUnknown = "unknown"

// HLTBTimes holds completion-time estimates (hours) for one game.
type HLTBTimes struct {
	GameName      string
	MainStory     float64
	MainExtras    float64
	Completionist float64
}

// HasTimes reports whether any of the three estimates is non-zero.
// A match with all-zero times is persisted (so it is not re-fetched) but
// counted as a miss by the enrichment loop.
func (h HLTBTimes) HasTimes() bool {
	return h.MainStory > 0 || h.MainExtras > 0 || h.Completionist > 0
}

// Deck compatibility categories as resolved by the Valve report endpoint.
const (
	DeckUnknown     = "unknown"
	DeckUnsupported = "unsupported"
	DeckPlayable    = "playable"
	DeckVerified    = "verified"
)

// DeckStatusFromCategory maps the numeric resolved_category field to its
// status string. Unrecognized categories map to DeckUnknown.
func DeckStatusFromCategory(category int) string {
	switch category {
	case 1:
		return DeckUnsupported
	case 2:
		return DeckPlayable
	case 3:
		return DeckVerified
	default:
		return DeckUnknown
	}
}

// AchievementStats summarizes one game's achievement state for the
// configured account.
type AchievementStats struct {
	Total         int
	Unlocked      int
	CompletionPct float64
	Perfect       bool
}

// TrackResult is the terminal outcome of one enrichment track.
//
// Sentinels: Success == SkippedSentinel means the track never ran because a
// prerequisite was missing; Failed == ErroredSentinel means the track hit a
// job-level error (setup failure, transport failure) rather than N item
// failures.
type TrackResult struct {
	Success int
	Failed  int
}

const (
	// SkippedSentinel marks a track that was skipped (success count slot).
	SkippedSentinel = -1

	// ErroredSentinel marks a track-level error (failure count slot).
	ErroredSentinel = -1
)

// Skipped reports whether the track never started.
func (r TrackResult) Skipped() bool { return r.Success == SkippedSentinel }

// Errored reports whether the track failed at the job level.
func (r TrackResult) Errored() bool { return r.Failed == ErroredSentinel }

// Fresh reports whether a record written at lastUpdated is still within its
// TTL at the query time now. Staleness is a pure function of the clock;
// records are never explicitly invalidated.
func Fresh(lastUpdated time.Time, ttl time.Duration, now time.Time) bool {
	return now.Sub(lastUpdated) < ttl
}
