// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package protondb is the client for the ProtonDB public reports API. The
// API has no authentication and no batch endpoint; callers pace their own
// per-app requests.
package protondb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/steamshelf/steamshelf/internal/metrics"
	"github.com/steamshelf/steamshelf/internal/models"
)

const defaultBaseURL = "https://www.protondb.com/api/v1"

const userAgent = "steamshelf/1.0"

// Client talks to the ProtonDB reports API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// New creates a ProtonDB client with a 10-second request timeout.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRating fetches the compatibility summary for one app. Found is false
// with a nil error when ProtonDB has no reports for the app (HTTP 404);
// callers negative-cache that so the app is not re-queried every run.
func (c *Client) FetchRating(ctx context.Context, appID int64) (models.ProtonDBRating, bool, error) {
	reqURL := fmt.Sprintf("%s/reports/summaries/%d.json", c.baseURL, appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return models.ProtonDBRating{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues("protondb", "error").Inc()
		return models.ProtonDBRating{}, false, fmt.Errorf("protondb request for %d: %w", appID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		metrics.APIRequests.WithLabelValues("protondb", "not_found").Inc()
		return models.ProtonDBRating{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		metrics.APIRequests.WithLabelValues("protondb", "error").Inc()
		return models.ProtonDBRating{}, false, fmt.Errorf("protondb request for %d: status %d", appID, resp.StatusCode)
	}

	var parsed struct {
		Tier             string  `json:"tier"`
		Confidence       string  `json:"confidence"`
		TrendingTier     string  `json:"trendingTier"`
		Score            float64 `json:"score"`
		BestReportedTier string  `json:"bestReportedTier"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.ProtonDBRating{}, false, fmt.Errorf("decode protondb response for %d: %w", appID, err)
	}

	tier := parsed.Tier
	if tier == "" {
		tier = models.TierUnknown
	}

	metrics.APIRequests.WithLabelValues("protondb", "ok").Inc()
	return models.ProtonDBRating{
		Tier:         tier,
		Confidence:   parsed.Confidence,
		TrendingTier: parsed.TrendingTier,
		Score:        parsed.Score,
		BestReported: parsed.BestReportedTier,
	}, true, nil
}
