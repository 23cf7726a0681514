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
	"strconv"

	"github.com/goccy/go-json"

	"github.com/steamshelf/steamshelf/internal/metrics"
)

// SchemaAchievement is one achievement definition from the game schema.
type SchemaAchievement struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Hidden      int    `json:"hidden"`
}

// PlayerAchievement is one achievement's unlock state for the configured
// account.
type PlayerAchievement struct {
	APIName    string `json:"apiname"`
	Achieved   int    `json:"achieved"`
	UnlockTime int64  `json:"unlocktime"`
}

// GameSchema fetches the achievement definitions for a game. A nil slice
// with nil error means the game has no stats at all (the API answers 400
// for those); that is a cacheable fact, not a failure.
func (c *Client) GameSchema(ctx context.Context, appID int64) ([]SchemaAchievement, error) {
	params := url.Values{}
	params.Set("appid", strconv.FormatInt(appID, 10))
	params.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/ISteamUserStats/GetSchemaForGame/v2?%s", c.baseURL, params.Encode())

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("game schema for %d: %w", appID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		metrics.APIRequests.WithLabelValues("steam", "not_found").Inc()
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("game schema for %d: status %d", appID, resp.StatusCode)
	}

	var parsed struct {
		Game struct {
			AvailableGameStats struct {
				Achievements []SchemaAchievement `json:"achievements"`
			} `json:"availableGameStats"`
		} `json:"game"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode game schema for %d: %w", appID, err)
	}
	metrics.APIRequests.WithLabelValues("steam", "ok").Inc()
	return parsed.Game.AvailableGameStats.Achievements, nil
}

// PlayerAchievements fetches the account's unlock state for a game. A nil
// slice with nil error means the game has no achievements or the profile is
// private (both surface as HTTP 400 or success=false).
func (c *Client) PlayerAchievements(ctx context.Context, appID int64, steamID string) ([]PlayerAchievement, error) {
	params := url.Values{}
	params.Set("appid", strconv.FormatInt(appID, 10))
	params.Set("steamid", steamID)
	params.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/ISteamUserStats/GetPlayerAchievements/v1?%s", c.baseURL, params.Encode())

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("player achievements for %d: %w", appID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		metrics.APIRequests.WithLabelValues("steam", "not_found").Inc()
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("player achievements for %d: status %d", appID, resp.StatusCode)
	}

	var parsed struct {
		PlayerStats struct {
			Success      bool                `json:"success"`
			Achievements []PlayerAchievement `json:"achievements"`
		} `json:"playerstats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode player achievements for %d: %w", appID, err)
	}
	if !parsed.PlayerStats.Success {
		return nil, nil
	}
	metrics.APIRequests.WithLabelValues("steam", "ok").Inc()
	return parsed.PlayerStats.Achievements, nil
}

// GlobalAchievementPercentages fetches global unlock percentages keyed by
// achievement API name. Works without an API key. Any failure yields an
// empty map; global percentages only decorate the stats and are never worth
// failing an item over.
func (c *Client) GlobalAchievementPercentages(ctx context.Context, appID int64) map[string]float64 {
	params := url.Values{}
	params.Set("gameid", strconv.FormatInt(appID, 10))
	reqURL := fmt.Sprintf("%s/ISteamUserStats/GetGlobalAchievementPercentagesForApp/v2?%s", c.baseURL, params.Encode())

	out := make(map[string]float64)

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return out
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out
	}

	var parsed struct {
		AchievementPercentages struct {
			Achievements []struct {
				Name    string  `json:"name"`
				Percent float64 `json:"percent"`
			} `json:"achievements"`
		} `json:"achievementpercentages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return out
	}
	for _, a := range parsed.AchievementPercentages.Achievements {
		if a.Name != "" {
			out[a.Name] = a.Percent
		}
	}
	return out
}
