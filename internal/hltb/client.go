// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package hltb is the client for the HowLongToBeat search API.
//
// HLTB has no stable public API; the search path rotates occasionally and
// is therefore configuration, not code. A stale path surfaces as transport
// failures on every search, which fails the track rather than silently
// matching nothing.
//
// Matching is name-based: exact normalized match first, then Levenshtein
// distance with result popularity as the tiebreaker, with one fallback
// search using an edition-suffix-stripped name when the first pass matched
// poorly. Resolved steam→hltb ID pairs are collected for persistence so
// later runs skip the fuzzy matching for known apps.
package hltb

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/goccy/go-json"

	"github.com/steamshelf/steamshelf/internal/logging"
	"github.com/steamshelf/steamshelf/internal/metrics"
	"github.com/steamshelf/steamshelf/internal/models"
)

const defaultBaseURL = "https://howlongtobeat.com"

// Retry thresholds for the fallback search: retry with a simplified name
// when the best match is more than 20% of the query length away (minimum 5
// edits).
const (
	retryDistanceRatio = 0.2
	retryDistanceMin   = 5
)

// Client talks to the HLTB search API. Safe for concurrent use.
type Client struct {
	baseURL    string
	searchPath string
	httpClient *http.Client

	mu      sync.Mutex
	idCache map[int64]int64 // steam app id -> hltb game id
	learned map[int64]int64 // mappings resolved during this run
}

// New creates an HLTB client using the given search API path
// (for example "/api/search").
func New(searchPath string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		searchPath: searchPath,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		idCache: make(map[int64]int64),
		learned: make(map[int64]int64),
	}
}

// SetIDCache seeds the steam→hltb ID mappings from a previous run.
func (c *Client) SetIDCache(mappings map[int64]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for steamID, hltbID := range mappings {
		c.idCache[steamID] = hltbID
	}
}

// LearnedIDs returns the mappings resolved during this run, for
// persistence.
func (c *Client) LearnedIDs() map[int64]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int64]int64, len(c.learned))
	for k, v := range c.learned {
		out[k] = v
	}
	return out
}

// SearchGame looks up completion times for a game by name. Found is false
// with a nil error when the search ran but nothing plausible matched; that
// outcome is persisted by the caller so the app is not re-searched every
// run. Transport failures return an error.
func (c *Client) SearchGame(ctx context.Context, name string, appID int64) (models.HLTBTimes, bool, error) {
	sanitized := NormalizeName(name)
	if sanitized == "" {
		return models.HLTBTimes{}, false, nil
	}

	// A cached ID pins the match: search normally but accept the result
	// whose game ID matches, regardless of name distance.
	c.mu.Lock()
	cachedID, hasCachedID := c.idCache[appID]
	c.mu.Unlock()

	match, distance, err := c.searchAndFind(ctx, sanitized, cachedID)
	if err != nil {
		return models.HLTBTimes{}, false, err
	}
	if match != nil && distance == 0 {
		return c.accept(appID, match), true, nil
	}

	// Fallback pass with edition suffixes stripped.
	simplified := SimplifyName(sanitized)
	threshold := max(retryDistanceMin, int(float64(len(sanitized))*retryDistanceRatio))
	if simplified != sanitized && (match == nil || distance > threshold) {
		logging.Debug().
			Str("name", sanitized).
			Str("fallback", simplified).
			Msg("hltb fallback search")
		retryMatch, retryDistance, err := c.searchAndFind(ctx, simplified, cachedID)
		if err != nil {
			return models.HLTBTimes{}, false, err
		}
		if retryMatch != nil && (match == nil || retryDistance < distance) {
			match = retryMatch
		}
	}

	if match == nil {
		if hasCachedID {
			logging.Debug().
				Int64("app_id", appID).
				Int64("hltb_id", cachedID).
				Msg("hltb cached id no longer resolvable")
		}
		return models.HLTBTimes{}, false, nil
	}
	return c.accept(appID, match), true, nil
}

// accept converts a raw match to completion times and records the resolved
// ID mapping.
func (c *Client) accept(appID int64, match *searchResult) models.HLTBTimes {
	if appID > 0 && match.GameID > 0 {
		c.mu.Lock()
		c.idCache[appID] = match.GameID
		c.learned[appID] = match.GameID
		c.mu.Unlock()
	}
	return models.HLTBTimes{
		GameName:      match.GameName,
		MainStory:     float64(match.CompMain) / 3600,
		MainExtras:    float64(match.CompPlus) / 3600,
		Completionist: float64(match.Comp100) / 3600,
	}
}

type searchResult struct {
	GameID       int64  `json:"game_id"`
	GameName     string `json:"game_name"`
	CompMain     int64  `json:"comp_main"`
	CompPlus     int64  `json:"comp_plus"`
	Comp100      int64  `json:"comp_100"`
	CompAllCount int64  `json:"comp_all_count"`
}

// searchAndFind runs one search pass and picks the best match. A pinnedID
// greater than zero short-circuits name matching when present in the
// results.
func (c *Client) searchAndFind(ctx context.Context, searchName string, pinnedID int64) (*searchResult, int, error) {
	payload := map[string]any{
		"searchType":  "games",
		"searchTerms": strings.Fields(searchName),
		"searchPage":  1,
		"size":        20,
		"searchOptions": map[string]any{
			"games": map[string]any{
				"userId":        0,
				"platform":      "",
				"sortCategory":  "popular",
				"rangeCategory": "main",
				"rangeTime":     map[string]int{"min": 0, "max": 0},
				"gameplay":      map[string]string{"perspective": "", "flow": "", "genre": "", "difficulty": ""},
				"rangeYear":     map[string]string{"min": "", "max": ""},
				"modifier":      "hide_dlc",
			},
			"users":      map[string]string{"sortCategory": "postcount"},
			"lists":      map[string]string{"sortCategory": "follows"},
			"filter":     "",
			"sort":       0,
			"randomizer": 0,
		},
		"useCache": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode hltb search: %w", err)
	}

	reqURL := c.baseURL + c.searchPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create hltb request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues("hltb", "error").Inc()
		return nil, 0, fmt.Errorf("hltb search for %q: %w", searchName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		metrics.APIRequests.WithLabelValues("hltb", "error").Inc()
		return nil, 0, fmt.Errorf("hltb search path %q rejected with status %d (the upstream path may have rotated; update hltb.search_path)", c.searchPath, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.APIRequests.WithLabelValues("hltb", "error").Inc()
		return nil, 0, fmt.Errorf("hltb search for %q: status %d", searchName, resp.StatusCode)
	}

	var parsed struct {
		Data []searchResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decode hltb response for %q: %w", searchName, err)
	}
	metrics.APIRequests.WithLabelValues("hltb", "ok").Inc()

	return findBestMatch(parsed.Data, searchName, pinnedID)
}

// findBestMatch picks the best result: pinned ID first, then exact
// normalized name, then minimal edit distance with popularity as the
// tiebreaker.
func findBestMatch(results []searchResult, searchName string, pinnedID int64) (*searchResult, int, error) {
	if len(results) == 0 {
		return nil, 0, nil
	}

	if pinnedID > 0 {
		for i := range results {
			if results[i].GameID == pinnedID {
				return &results[i], 0, nil
			}
		}
	}

	query := normalizeForCompare(searchName)
	for i := range results {
		if normalizeForCompare(results[i].GameName) == query {
			return &results[i], 0, nil
		}
	}

	type candidate struct {
		dist       int
		popularity int64
		result     *searchResult
	}
	candidates := make([]candidate, 0, len(results))
	for i := range results {
		dist := levenshtein.ComputeDistance(query, normalizeForCompare(results[i].GameName))
		candidates = append(candidates, candidate{
			dist:       dist,
			popularity: results[i].CompAllCount,
			result:     &results[i],
		})
	}
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].dist != candidates[b].dist {
			return candidates[a].dist < candidates[b].dist
		}
		return candidates[a].popularity > candidates[b].popularity
	})

	best := candidates[0]
	return best.result, best.dist, nil
}
