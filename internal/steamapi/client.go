// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package steamapi is the client for the Steam Web API: batched store
// metadata via IStoreBrowseService/GetItems and per-game achievement data
// via ISteamUserStats.
//
// Resilience:
//   - Exponential backoff on HTTP 429 (1s, 2s, 4s), then the request is
//     reported as rate-limit exhausted rather than failed
//   - Circuit breaker around transport failures
//   - 30-second request timeout, context cancellation on all paths
package steamapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/steamshelf/steamshelf/internal/config"
	"github.com/steamshelf/steamshelf/internal/logging"
	"github.com/steamshelf/steamshelf/internal/metrics"
)

const defaultBaseURL = "https://api.steampowered.com"

// ErrRateLimited is returned when a request stayed rate limited through all
// backoff attempts. Callers treat it as "no data this run", not a failure:
// the items stay unenriched and are retried on the next run.
var ErrRateLimited = errors.New("rate limit exceeded after retries")

// Client talks to the Steam Web API. Safe for concurrent use.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	maxAttempts    int
	retryBaseDelay time.Duration
	chunkPause     time.Duration
	cb             *gobreaker.CircuitBreaker[*http.Response]
}

// New creates a Steam Web API client. The API key may be empty; the store
// metadata endpoint works without one, the achievement endpoints do not.
func New(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxAttempts:    3,
		retryBaseDelay: 1 * time.Second,
		chunkPause:     config.StoreBatchDelay,
		cb:             newBreaker("steam-api"),
	}
}

// newBreaker builds the transport circuit breaker. HTTP 429 never trips it;
// only connection-level failures count.
func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

// doRequestWithRateLimit performs a GET with automatic 429 handling.
// Backoff doubles per attempt starting at retryBaseDelay; a Retry-After
// header overrides the computed delay. Returns ErrRateLimited once all
// attempts were consumed. Transport errors propagate immediately.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.cb.Execute(func() (*http.Response, error) {
			return c.httpClient.Do(req)
		})
		if err != nil {
			metrics.APIRequests.WithLabelValues("steam", "error").Inc()
			return nil, fmt.Errorf("steam api request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()
		metrics.APIRetries.WithLabelValues("steam").Inc()

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = d
			}
		}

		logging.Warn().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("steam api rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	metrics.APIRequests.WithLabelValues("steam", "rate_limited").Inc()
	return nil, ErrRateLimited
}
