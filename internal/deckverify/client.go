// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package deckverify fetches Steam Deck compatibility reports from Valve's
// store endpoint, with a file cache in front so a status is fetched at most
// once per TTL window.
package deckverify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/steamshelf/steamshelf/internal/cache"
	"github.com/steamshelf/steamshelf/internal/metrics"
	"github.com/steamshelf/steamshelf/internal/models"
)

const defaultBaseURL = "https://store.steampowered.com"

const userAgent = "steamshelf/1.0"

// cacheEntry is the persisted shape of one deck status lookup.
type cacheEntry struct {
	Status   string `json:"status"`
	Category int    `json:"category"`
}

// Client fetches deck compatibility statuses. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fileCache  *cache.FileCache
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different store root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// New creates a deck compatibility client. The file cache may be nil to
// disable caching (tests).
func New(fileCache *cache.FileCache, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		fileCache: fileCache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchStatus returns the deck compatibility status for an app, consulting
// the file cache first. The returned status is always one of the
// models.Deck* constants; a report with no resolved category comes back as
// DeckUnknown, which is a valid cacheable answer.
func (c *Client) FetchStatus(ctx context.Context, appID int64) (string, error) {
	key := strconv.FormatInt(appID, 10)

	if c.fileCache != nil {
		var entry cacheEntry
		found, err := c.fileCache.Get(key, &entry)
		if err != nil {
			return "", err
		}
		if found && entry.Status != "" {
			metrics.CacheHits.WithLabelValues("deck").Inc()
			return entry.Status, nil
		}
		metrics.CacheMisses.WithLabelValues("deck").Inc()
	}

	category, err := c.fetchCategory(ctx, appID)
	if err != nil {
		return "", err
	}
	status := models.DeckStatusFromCategory(category)

	if c.fileCache != nil {
		if err := c.fileCache.Put(key, cacheEntry{Status: status, Category: category}); err != nil {
			return "", err
		}
	}
	return status, nil
}

func (c *Client) fetchCategory(ctx context.Context, appID int64) (int, error) {
	reqURL := fmt.Sprintf("%s/saleaction/ajaxgetdeckappcompatibilityreport?nAppID=%d", c.baseURL, appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues("deck", "error").Inc()
		return 0, fmt.Errorf("deck report for %d: %w", appID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.APIRequests.WithLabelValues("deck", "error").Inc()
		return 0, fmt.Errorf("deck report for %d: status %d", appID, resp.StatusCode)
	}

	// The results field is usually an object but arrives as an array for
	// some apps; both carry resolved_category.
	var parsed struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode deck report for %d: %w", appID, err)
	}

	metrics.APIRequests.WithLabelValues("deck", "ok").Inc()
	return parseResolvedCategory(parsed.Results), nil
}

func parseResolvedCategory(raw json.RawMessage) int {
	type report struct {
		ResolvedCategory int `json:"resolved_category"`
	}

	var single report
	if err := json.Unmarshal(raw, &single); err == nil {
		return single.ResolvedCategory
	}

	var many []report
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0].ResolvedCategory
	}
	return 0
}
