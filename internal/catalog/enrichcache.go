// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/steamshelf/steamshelf/internal/config"
	"github.com/steamshelf/steamshelf/internal/models"
)

// This file is the row-based tier of the TTL cache layer. Freshness is a
// pure function of the row's last_updated column against the store clock;
// a stale row and an absent row are indistinguishable to callers.

// CachedProtonDB returns the cached compatibility rating for an app, if one
// exists and is younger than the 7-day TTL.
func (s *Store) CachedProtonDB(ctx context.Context, appID int64) (models.ProtonDBRating, bool, error) {
	cutoff := s.now().Add(-config.ProtonDBTTL).Unix()

	var r models.ProtonDBRating
	err := s.db.QueryRowContext(ctx, `
		SELECT tier, confidence, trending_tier, score, best_reported
		FROM protondb_ratings WHERE app_id = ? AND last_updated > ?`,
		appID, cutoff).
		Scan(&r.Tier, &r.Confidence, &r.TrendingTier, &r.Score, &r.BestReported)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProtonDBRating{}, false, nil
	}
	if err != nil {
		return models.ProtonDBRating{}, false, fmt.Errorf("read protondb cache: %w", err)
	}
	return r, true, nil
}

// UpsertProtonDB writes a compatibility rating through to the cache,
// refreshing last_updated. Writing an identical payload twice leaves the
// payload unchanged with a fresher timestamp.
func (s *Store) UpsertProtonDB(ctx context.Context, appID int64, r models.ProtonDBRating) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO protondb_ratings
		(app_id, tier, confidence, trending_tier, score, best_reported, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		appID, r.Tier, r.Confidence, r.TrendingTier, r.Score, r.BestReported, s.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert protondb for %d: %w", appID, err)
	}
	return nil
}

// CachedHLTB returns cached completion times if fresh (30-day TTL).
func (s *Store) CachedHLTB(ctx context.Context, appID int64) (models.HLTBTimes, bool, error) {
	cutoff := s.now().Add(-config.HLTBTTL).Unix()

	var t models.HLTBTimes
	err := s.db.QueryRowContext(ctx, `
		SELECT main_story, main_extras, completionist
		FROM hltb_data WHERE app_id = ? AND last_updated > ?`,
		appID, cutoff).
		Scan(&t.MainStory, &t.MainExtras, &t.Completionist)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HLTBTimes{}, false, nil
	}
	if err != nil {
		return models.HLTBTimes{}, false, fmt.Errorf("read hltb cache: %w", err)
	}
	return t, true, nil
}

// UpsertHLTB writes completion times through to the cache. Zero-hour
// matches are written too, so the next run does not re-search them.
func (s *Store) UpsertHLTB(ctx context.Context, appID int64, t models.HLTBTimes) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO hltb_data
		(app_id, main_story, main_extras, completionist, last_updated)
		VALUES (?, ?, ?, ?, ?)`,
		appID, t.MainStory, t.MainExtras, t.Completionist, s.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert hltb for %d: %w", appID, err)
	}
	return nil
}

// LoadHLTBIDCache returns the fresh steam→hltb ID mappings (30-day TTL).
func (s *Store) LoadHLTBIDCache(ctx context.Context) (map[int64]int64, error) {
	cutoff := s.now().Add(-config.HLTBTTL).Unix()
	rows, err := s.db.QueryContext(ctx,
		`SELECT steam_app_id, hltb_game_id FROM hltb_id_cache WHERE cached_at > ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load hltb id cache: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var steamID, hltbID int64
		if err := rows.Scan(&steamID, &hltbID); err != nil {
			return nil, err
		}
		out[steamID] = hltbID
	}
	return out, rows.Err()
}

// SaveHLTBIDCache stores steam→hltb ID mappings, refreshing cached_at.
func (s *Store) SaveHLTBIDCache(ctx context.Context, mappings map[int64]int64) error {
	if len(mappings) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := s.now().Unix()
	for steamID, hltbID := range mappings {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO hltb_id_cache (steam_app_id, hltb_game_id, cached_at) VALUES (?, ?, ?)`,
			steamID, hltbID, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertAchievementStats writes achievement stats through to the cache.
// A total of zero is a valid negative-cache entry meaning "this game has no
// achievements"; it prevents re-fetching on the next run.
func (s *Store) UpsertAchievementStats(ctx context.Context, appID int64, st models.AchievementStats) error {
	perfect := 0
	if st.Perfect {
		perfect = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO achievement_stats
		(app_id, total, unlocked, completion_pct, perfect, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)`,
		appID, st.Total, st.Unlocked, st.CompletionPct, perfect, s.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert achievement stats for %d: %w", appID, err)
	}
	return nil
}

// BulkInsertGameTags inserts resolved (app, tag id, tag name) rows. Callers
// batch these; a batch runs in one transaction.
func (s *Store) BulkInsertGameTags(ctx context.Context, rows []TagRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO game_tags (app_id, tag_id, tag) VALUES (?, ?, ?)`,
			r.AppID, r.TagID, r.Name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TagRow is one resolved app→tag association for bulk insert.
type TagRow struct {
	AppID int64
	TagID int64
	Name  string
}

// GameTagCount returns the total number of app→tag associations.
func (s *Store) GameTagCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_tags`).Scan(&n)
	return n, err
}

// SweepExpired deletes cache rows past their TTL. This is the explicit
// maintenance path; normal reads never delete.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	var total int64

	protonCutoff := s.now().Add(-config.ProtonDBTTL).Unix()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM protondb_ratings WHERE last_updated <= ?`, protonCutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep protondb: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	hltbCutoff := s.now().Add(-config.HLTBTTL).Unix()
	res, err = s.db.ExecContext(ctx,
		`DELETE FROM hltb_id_cache WHERE cached_at <= ?`, hltbCutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep hltb id cache: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	return total, nil
}
