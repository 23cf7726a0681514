// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package storefront talks to the Steam storefront (store.steampowered.com)
// appdetails endpoint, which serves data the Web API does not: age ratings
// per rating system. Results go through a file cache because storefront
// data changes rarely and the endpoint rate limits aggressively.
package storefront

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/steamshelf/steamshelf/internal/cache"
	"github.com/steamshelf/steamshelf/internal/metrics"
)

const defaultBaseURL = "https://store.steampowered.com"

const userAgent = "steamshelf/1.0"

// steamLanguages maps ISO language codes to Steam's internal language
// names, used as the l= parameter on storefront requests.
var steamLanguages = map[string]string{
	"en": "english",
	"de": "german",
	"fr": "french",
	"es": "spanish",
	"it": "italian",
	"pt": "portuguese",
	"ru": "russian",
	"zh": "schinese",
	"ja": "japanese",
	"ko": "koreana",
}

// LanguageName resolves an ISO language code to Steam's internal language
// name. Unknown codes fall back to english.
func LanguageName(code string) string {
	if name, ok := steamLanguages[code]; ok {
		return name
	}
	return "english"
}

type cacheEntry struct {
	Rating string `json:"rating"`
}

// Client fetches storefront app details. Safe for concurrent use.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	fileCache  *cache.FileCache
}

// New creates a storefront client for the given ISO language code. The file
// cache may be nil to disable caching (tests).
func New(languageCode string, fileCache *cache.FileCache) *Client {
	return &Client{
		baseURL:  defaultBaseURL,
		language: LanguageName(languageCode),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		fileCache: fileCache,
	}
}

// FetchAgeRating returns the age rating for an app, preferring the PEGI
// rating and falling back to the storefront's required_age field. Found is
// false with a nil error when the storefront has no rating for the app.
// Both answers are cached, a miss as an empty rating, so unrated apps are
// not re-queried until the cache TTL lapses. Transport errors are never
// cached.
func (c *Client) FetchAgeRating(ctx context.Context, appID int64) (string, bool, error) {
	key := strconv.FormatInt(appID, 10)

	if c.fileCache != nil {
		var entry cacheEntry
		found, err := c.fileCache.Get(key, &entry)
		if err != nil {
			return "", false, err
		}
		if found {
			metrics.CacheHits.WithLabelValues("age_rating").Inc()
			return entry.Rating, entry.Rating != "", nil
		}
		metrics.CacheMisses.WithLabelValues("age_rating").Inc()
	}

	rating, found, err := c.fetchAgeRating(ctx, appID)
	if err != nil {
		return "", false, err
	}

	if c.fileCache != nil {
		if err := c.fileCache.Put(key, cacheEntry{Rating: rating}); err != nil {
			return "", false, err
		}
	}
	return rating, found, nil
}

func (c *Client) fetchAgeRating(ctx context.Context, appID int64) (string, bool, error) {
	reqURL := fmt.Sprintf("%s/api/appdetails?appids=%d&l=%s", c.baseURL, appID, c.language)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues("storefront", "error").Inc()
		return "", false, fmt.Errorf("appdetails for %d: %w", appID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.APIRequests.WithLabelValues("storefront", "error").Inc()
		return "", false, fmt.Errorf("appdetails for %d: status %d", appID, resp.StatusCode)
	}

	var parsed map[string]struct {
		Success bool `json:"success"`
		Data    struct {
			// required_age is a string for some apps and a number for
			// others.
			RequiredAge json.RawMessage `json:"required_age"`
			Ratings     map[string]struct {
				Rating string `json:"rating"`
			} `json:"ratings"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("decode appdetails for %d: %w", appID, err)
	}

	entry, ok := parsed[strconv.FormatInt(appID, 10)]
	if !ok || !entry.Success {
		metrics.APIRequests.WithLabelValues("storefront", "not_found").Inc()
		return "", false, nil
	}
	metrics.APIRequests.WithLabelValues("storefront", "ok").Inc()

	if pegi, ok := entry.Data.Ratings["pegi"]; ok && pegi.Rating != "" {
		return pegi.Rating, true, nil
	}

	if age := parseRequiredAge(entry.Data.RequiredAge); age > 0 {
		return strconv.Itoa(age), true, nil
	}
	return "", false, nil
}

// parseRequiredAge handles the storefront's inconsistent required_age
// encoding ("18" vs 18).
func parseRequiredAge(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}
