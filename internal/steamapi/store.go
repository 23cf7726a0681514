// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package steamapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/steamshelf/steamshelf/internal/logging"
	"github.com/steamshelf/steamshelf/internal/metrics"
	"github.com/steamshelf/steamshelf/internal/models"
)

// batchSize is the maximum number of apps per GetItems request.
const batchSize = 50

// htmlTagPattern strips markup from the supported_languages field, which
// Steam returns as HTML ("English<strong>*</strong>, German, ...").
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// FetchStoreDetails fetches store metadata for the given apps in chunks of
// 50, pausing between chunks. Rate-limit-exhausted chunks contribute nothing
// to the result; their apps are simply absent. Connection-level errors abort
// the whole fetch. The returned map holds only successfully fetched apps.
func (c *Client) FetchStoreDetails(ctx context.Context, appIDs []int64, language string) (map[int64]models.StoreDetails, error) {
	result := make(map[int64]models.StoreDetails, len(appIDs))
	if len(appIDs) == 0 {
		return result, nil
	}

	var chunks [][]int64
	for i := 0; i < len(appIDs); i += batchSize {
		end := min(i+batchSize, len(appIDs))
		chunks = append(chunks, appIDs[i:end])
	}

	for idx, chunk := range chunks {
		items, err := c.fetchBatch(ctx, chunk, language)
		if err != nil {
			// The items in an exhausted chunk stay unenriched; the run
			// carries on with the next chunk.
			if errors.Is(err, ErrRateLimited) {
				logging.Warn().
					Int("chunk", idx+1).
					Int("chunks", len(chunks)).
					Msg("store metadata chunk exhausted rate-limit retries")
				continue
			}
			return nil, fmt.Errorf("store metadata chunk %d/%d: %w", idx+1, len(chunks), err)
		}

		for _, item := range items {
			details := parseStoreItem(item)
			result[details.AppID] = details
		}
		metrics.APIRequests.WithLabelValues("steam", "ok").Inc()

		// Pause between chunks, never after the last one.
		if idx < len(chunks)-1 {
			select {
			case <-time.After(c.chunkPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return result, nil
}

func (c *Client) fetchBatch(ctx context.Context, appIDs []int64, language string) ([]storeItem, error) {
	type idEntry struct {
		AppID int64 `json:"appid"`
	}
	ids := make([]idEntry, len(appIDs))
	for i, id := range appIDs {
		ids[i] = idEntry{AppID: id}
	}

	input, err := json.Marshal(map[string]any{
		"ids": ids,
		"context": map[string]any{
			"language":     language,
			"country_code": "US",
		},
		"data_request": map[string]any{
			"include_basic_info":          true,
			"include_tag_count":           20,
			"include_reviews":             true,
			"include_release":             true,
			"include_supported_languages": true,
			"include_ratings":             true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode batch request: %w", err)
	}

	params := url.Values{}
	params.Set("input_json", string(input))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/IStoreBrowseService/GetItems/v1?%s", c.baseURL, params.Encode())

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("store metadata request failed with status %d", resp.StatusCode)
	}

	var parsed getItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode store metadata response: %w", err)
	}
	return parsed.Response.StoreItems, nil
}

type getItemsResponse struct {
	Response struct {
		StoreItems []storeItem `json:"store_items"`
	} `json:"response"`
}

type storeItem struct {
	ID        int64           `json:"id"`
	AppID     int64           `json:"appid"`
	Name      string          `json:"name"`
	BasicInfo *storeBasicInfo `json:"basic_info"`
	Tags      []namedRef      `json:"tags"`
	Reviews   *storeReviews   `json:"reviews"`
}

type storeBasicInfo struct {
	Developers         []namedRef    `json:"developers"`
	Publishers         []namedRef    `json:"publishers"`
	Genres             []genreRef    `json:"genres"`
	ReleaseDate        *storeRelease `json:"release_date"`
	SupportedLanguages string        `json:"supported_languages"`
	IsFree             bool          `json:"is_free"`
}

type namedRef struct {
	Name string `json:"name"`
}

type genreRef struct {
	Description string `json:"description"`
}

type storeRelease struct {
	SteamReleaseDate    int64 `json:"steam_release_date"`
	OriginalReleaseDate int64 `json:"original_release_date"`
}

type storeReviews struct {
	SummaryFiltered struct {
		ReviewScore      int    `json:"review_score"`
		ReviewScoreLabel string `json:"review_score_label"`
	} `json:"summary_filtered"`
}

func parseStoreItem(raw storeItem) models.StoreDetails {
	d := models.StoreDetails{
		AppID: raw.ID,
		Name:  raw.Name,
	}
	if d.AppID == 0 {
		d.AppID = raw.AppID
	}

	for _, t := range raw.Tags {
		if t.Name != "" {
			d.Tags = append(d.Tags, t.Name)
		}
	}

	if raw.Reviews != nil {
		d.ReviewScore = raw.Reviews.SummaryFiltered.ReviewScore
		d.ReviewDesc = raw.Reviews.SummaryFiltered.ReviewScoreLabel
	}

	basic := raw.BasicInfo
	if basic == nil {
		return d
	}

	d.IsFree = basic.IsFree
	for _, dev := range basic.Developers {
		if dev.Name != "" {
			d.Developers = append(d.Developers, dev.Name)
		}
	}
	for _, pub := range basic.Publishers {
		if pub.Name != "" {
			d.Publishers = append(d.Publishers, pub.Name)
		}
	}
	for _, g := range basic.Genres {
		if g.Description != "" {
			d.Genres = append(d.Genres, g.Description)
		}
	}
	if basic.ReleaseDate != nil {
		d.SteamReleaseDate = basic.ReleaseDate.SteamReleaseDate
		d.OriginalReleaseDate = basic.ReleaseDate.OriginalReleaseDate
	}
	if basic.SupportedLanguages != "" {
		cleaned := htmlTagPattern.ReplaceAllString(basic.SupportedLanguages, "")
		cleaned = strings.ReplaceAll(cleaned, "*", "")
		for _, lang := range strings.Split(cleaned, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				d.Languages = append(d.Languages, lang)
			}
		}
	}

	return d
}
