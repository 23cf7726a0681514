// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/steamshelf/steamshelf/internal/catalog"
	"github.com/steamshelf/steamshelf/internal/config"
	"github.com/steamshelf/steamshelf/internal/logging"
	"github.com/steamshelf/steamshelf/internal/metrics"
	"github.com/steamshelf/steamshelf/internal/models"
	"github.com/steamshelf/steamshelf/internal/storefront"
)

// Track names as they appear in events, logs, and metrics.
const (
	TrackTags      = "tags"
	TrackSteam     = "steam"
	TrackProtonDB  = "protondb"
	TrackHLTB      = "hltb"
	TrackDeck      = "deck"
	TrackAgeRating = "pegi"
)

// steamJob builds the store-metadata track. The batch fetch happens once in
// setup; the item loop only consults the result and writes through. When an
// account ID is configured the track chains the achievement phase per item.
func (c *Coordinator) steamJob(items []models.WorkItem) *Job {
	var store *catalog.Store
	var details map[int64]models.StoreDetails
	chain := c.cfg.Steam.SteamID != ""

	setup := func(ctx context.Context) error {
		s, err := c.deps.OpenStore()
		if err != nil {
			return err
		}
		store = s

		ids := make([]int64, len(items))
		for i, item := range items {
			ids[i] = item.ID
		}
		details, err = c.deps.Steam.FetchStoreDetails(ctx, ids, storefront.LanguageName(c.cfg.Steam.Language))
		return err
	}
	teardown := func() {
		if store != nil {
			_ = store.Close()
		}
	}

	process := func(ctx context.Context, item models.WorkItem) error {
		d, ok := details[item.ID]
		if !ok {
			return fmt.Errorf("no store data for app %d", item.ID)
		}

		fields := map[string]any{
			"name":      d.Name,
			"app_type":  "game",
			"developer": strings.Join(d.Developers, ", "),
			"publisher": strings.Join(d.Publishers, ", "),
		}
		if d.ReviewScore > 0 {
			fields["review_score"] = d.ReviewScore
		}
		if d.SteamReleaseDate > 0 {
			fields["steam_release_date"] = d.SteamReleaseDate
		}
		if d.OriginalReleaseDate > 0 {
			fields["original_release_date"] = d.OriginalReleaseDate
		}
		if err := store.UpsertGameMetadata(ctx, item.ID, fields); err != nil {
			return err
		}
		if err := store.ReplaceGenres(ctx, item.ID, d.Genres); err != nil {
			return err
		}
		if err := store.ReplaceTags(ctx, item.ID, d.Tags); err != nil {
			return err
		}

		if chain {
			return c.enrichAchievements(ctx, store, item.ID)
		}
		return nil
	}

	// Without the achievement chain the loop is pure local writes; only
	// the chained per-item achievement calls need pacing.
	var delay = config.AchievementDelay
	if !chain {
		delay = 0
	}

	return NewJob(JobConfig{
		Track:    TrackSteam,
		Items:    items,
		Process:  process,
		Delay:    delay,
		Setup:    setup,
		Teardown: teardown,
		Listener: c.listener,
	})
}

// enrichAchievements runs the achievement phase for one app: schema, player
// progress, and derived completion stats. Games without any achievements
// are negative-cached with a zero total.
func (c *Coordinator) enrichAchievements(ctx context.Context, store *catalog.Store, appID int64) error {
	schema, err := c.deps.Steam.GameSchema(ctx, appID)
	if err != nil {
		return err
	}
	if len(schema) == 0 {
		return store.UpsertAchievementStats(ctx, appID, models.AchievementStats{})
	}

	player, err := c.deps.Steam.PlayerAchievements(ctx, appID, c.cfg.Steam.SteamID)
	if err != nil {
		return err
	}

	stats := models.AchievementStats{Total: len(schema)}
	for _, a := range player {
		if a.Achieved == 1 {
			stats.Unlocked++
		}
	}
	stats.CompletionPct = float64(stats.Unlocked) / float64(stats.Total) * 100
	stats.Perfect = stats.Unlocked == stats.Total

	if stats.Perfect {
		// Worth a line: a perfected game, with its rarest achievement.
		if rarity := c.deps.Steam.GlobalAchievementPercentages(ctx, appID); len(rarity) > 0 {
			rarest := 100.0
			for _, pct := range rarity {
				if pct < rarest {
					rarest = pct
				}
			}
			logging.Ctx(ctx).Info().
				Int64("app_id", appID).
				Float64("rarest_pct", rarest).
				Msg("perfect game")
		}
	}

	return store.UpsertAchievementStats(ctx, appID, stats)
}

// protonJob builds the compatibility-tier track. Fresh rows are hits,
// missing reports are negative-cached with the unknown tier so they are not
// re-queried until the TTL lapses.
func (c *Coordinator) protonJob(items []models.WorkItem) *Job {
	var store *catalog.Store

	setup := func(ctx context.Context) error {
		s, err := c.deps.OpenStore()
		if err != nil {
			return err
		}
		store = s
		return nil
	}
	teardown := func() {
		if store != nil {
			_ = store.Close()
		}
	}

	process := func(ctx context.Context, item models.WorkItem) error {
		if _, found, err := store.CachedProtonDB(ctx, item.ID); err != nil {
			return err
		} else if found {
			metrics.CacheHits.WithLabelValues("protondb").Inc()
			return nil
		}
		metrics.CacheMisses.WithLabelValues("protondb").Inc()

		rating, found, err := c.deps.ProtonDB.FetchRating(ctx, item.ID)
		if err != nil {
			return err
		}
		if !found {
			if err := store.UpsertProtonDB(ctx, item.ID, models.ProtonDBRating{Tier: models.TierUnknown}); err != nil {
				return err
			}
			return fmt.Errorf("no protondb reports for app %d", item.ID)
		}
		return store.UpsertProtonDB(ctx, item.ID, rating)
	}

	return NewJob(JobConfig{
		Track:    TrackProtonDB,
		Items:    items,
		Process:  process,
		Delay:    config.ProtonDBDelay,
		Setup:    setup,
		Teardown: teardown,
		Listener: c.listener,
	})
}

// hltbJob builds the completion-time track. The steam→hltb ID mappings
// learned in previous runs are loaded in setup and persisted in teardown.
// Zero-hour matches are stored (so they are not re-searched) but counted as
// failures.
func (c *Coordinator) hltbJob(items []models.WorkItem) *Job {
	var store *catalog.Store

	setup := func(ctx context.Context) error {
		s, err := c.deps.OpenStore()
		if err != nil {
			return err
		}
		store = s

		mappings, err := s.LoadHLTBIDCache(ctx)
		if err != nil {
			return err
		}
		c.deps.HLTB.SetIDCache(mappings)
		return nil
	}
	teardown := func() {
		if store == nil {
			return
		}
		if learned := c.deps.HLTB.LearnedIDs(); len(learned) > 0 {
			if err := store.SaveHLTBIDCache(context.Background(), learned); err != nil {
				logging.Warn().Err(err).Msg("failed to persist hltb id mappings")
			}
		}
		_ = store.Close()
	}

	process := func(ctx context.Context, item models.WorkItem) error {
		if cached, found, err := store.CachedHLTB(ctx, item.ID); err != nil {
			return err
		} else if found {
			metrics.CacheHits.WithLabelValues("hltb").Inc()
			if !cached.HasTimes() {
				return fmt.Errorf("app %d negative-cached without times", item.ID)
			}
			return nil
		}
		metrics.CacheMisses.WithLabelValues("hltb").Inc()

		times, found, err := c.deps.HLTB.SearchGame(ctx, item.Label, item.ID)
		if err != nil {
			return err
		}
		if !found {
			// Store the empty result so the next run skips the search.
			if err := store.UpsertHLTB(ctx, item.ID, models.HLTBTimes{}); err != nil {
				return err
			}
			return fmt.Errorf("no hltb match for %q", item.Label)
		}
		if err := store.UpsertHLTB(ctx, item.ID, times); err != nil {
			return err
		}
		if !times.HasTimes() {
			return fmt.Errorf("hltb match for %q has no times", item.Label)
		}
		return nil
	}

	return NewJob(JobConfig{
		Track:    TrackHLTB,
		Items:    items,
		Process:  process,
		Delay:    config.HLTBDelay,
		Setup:    setup,
		Teardown: teardown,
		Listener: c.listener,
	})
}

// deckJob builds the deck-compatibility track. The client consults its own
// file cache; unknown is a valid, persisted status.
func (c *Coordinator) deckJob(items []models.WorkItem) *Job {
	var store *catalog.Store

	setup := func(ctx context.Context) error {
		s, err := c.deps.OpenStore()
		if err != nil {
			return err
		}
		store = s
		return nil
	}
	teardown := func() {
		if store != nil {
			_ = store.Close()
		}
	}

	process := func(ctx context.Context, item models.WorkItem) error {
		status, err := c.deps.Deck.FetchStatus(ctx, item.ID)
		if err != nil {
			return err
		}
		return store.UpsertGameMetadata(ctx, item.ID, map[string]any{"deck_status": status})
	}

	return NewJob(JobConfig{
		Track:    TrackDeck,
		Items:    items,
		Process:  process,
		Delay:    config.DeckDelay,
		Setup:    setup,
		Teardown: teardown,
		Listener: c.listener,
	})
}

// ageRatingJob builds the age-rating track. Apps the storefront has no
// rating for count as failures and stay unrated; the empty answer is
// file-cached so they are not re-queried until the TTL lapses.
func (c *Coordinator) ageRatingJob(items []models.WorkItem) *Job {
	var store *catalog.Store

	setup := func(ctx context.Context) error {
		s, err := c.deps.OpenStore()
		if err != nil {
			return err
		}
		store = s
		return nil
	}
	teardown := func() {
		if store != nil {
			_ = store.Close()
		}
	}

	process := func(ctx context.Context, item models.WorkItem) error {
		rating, found, err := c.deps.Storefront.FetchAgeRating(ctx, item.ID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no age rating for app %d", item.ID)
		}
		return store.UpsertGameMetadata(ctx, item.ID, map[string]any{"pegi_rating": rating})
	}

	return NewJob(JobConfig{
		Track:    TrackAgeRating,
		Items:    items,
		Process:  process,
		Delay:    config.AgeRatingDelay,
		Setup:    setup,
		Teardown: teardown,
		Listener: c.listener,
	})
}
