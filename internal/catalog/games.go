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
	"strings"

	"github.com/steamshelf/steamshelf/internal/models"
)

// metadataColumns is the allow-list for UpsertGameMetadata. Anything else
// passed in the fields map is silently dropped.
var metadataColumns = map[string]bool{
	"name":                  true,
	"app_type":              true,
	"developer":             true,
	"publisher":             true,
	"review_score":          true,
	"steam_release_date":    true,
	"original_release_date": true,
	"pegi_rating":           true,
	"deck_status":           true,
}

// AllGames returns every game-type catalog entry as a work item.
func (s *Store) AllGames(ctx context.Context) ([]models.WorkItem, error) {
	return s.queryItems(ctx,
		`SELECT app_id, name FROM games WHERE app_type IN ('game', '')`)
}

// GamesMissingMetadata returns entries lacking developer, publisher, or any
// release date.
func (s *Store) GamesMissingMetadata(ctx context.Context) ([]models.WorkItem, error) {
	return s.queryItems(ctx, `
		SELECT app_id, name FROM games
		WHERE app_type IN ('game', '')
		AND ((developer IS NULL OR developer = '')
			OR (publisher IS NULL OR publisher = '')
			OR ((steam_release_date IS NULL OR steam_release_date = 0)
				AND (original_release_date IS NULL OR original_release_date = 0)))`)
}

// GamesWithoutHLTB returns game entries with no completion-time row at all.
func (s *Store) GamesWithoutHLTB(ctx context.Context) ([]models.WorkItem, error) {
	return s.queryItems(ctx, `
		SELECT g.app_id, g.name FROM games g
		LEFT JOIN hltb_data h ON g.app_id = h.app_id
		WHERE h.app_id IS NULL AND g.app_type IN ('game', '')`)
}

// GamesWithoutAchievements returns game entries with no achievement stats.
func (s *Store) GamesWithoutAchievements(ctx context.Context) ([]models.WorkItem, error) {
	return s.queryItems(ctx, `
		SELECT g.app_id, g.name FROM games g
		LEFT JOIN achievement_stats a ON g.app_id = a.app_id
		WHERE a.app_id IS NULL AND g.app_type IN ('game', '')`)
}

// GamesWithoutDeckStatus returns game entries with no deck compatibility
// status.
func (s *Store) GamesWithoutDeckStatus(ctx context.Context) ([]models.WorkItem, error) {
	return s.queryItems(ctx, `
		SELECT app_id, name FROM games
		WHERE (deck_status IS NULL OR deck_status = '')
		AND app_type IN ('game', '')`)
}

// GamesWithoutAgeRating returns game entries with no age rating.
func (s *Store) GamesWithoutAgeRating(ctx context.Context) ([]models.WorkItem, error) {
	return s.queryItems(ctx, `
		SELECT app_id, name FROM games
		WHERE (pegi_rating IS NULL OR pegi_rating = '')
		AND app_type IN ('game', '')`)
}

func (s *Store) queryItems(ctx context.Context, query string) ([]models.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []models.WorkItem
	for rows.Next() {
		var it models.WorkItem
		if err := rows.Scan(&it.ID, &it.Label); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InsertGame inserts a minimal catalog row. Used by tests and the tag
// import path when an app is referenced before the desktop app created it.
func (s *Store) InsertGame(ctx context.Context, appID int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO games (app_id, name, updated_at) VALUES (?, ?, ?)`,
		appID, name, s.now().Unix())
	return err
}

// GameName returns the stored name for an app.
func (s *Store) GameName(ctx context.Context, appID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM games WHERE app_id = ?`, appID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

// UpsertGameMetadata updates the given metadata columns for an existing
// game and stamps updated_at. Unknown columns are dropped. Does nothing if
// the game does not exist.
//
// Name protection: a stored non-placeholder name is never overwritten by a
// placeholder or empty incoming name. This is the one write path where
// last-write-wins is deliberately violated.
func (s *Store) UpsertGameMetadata(ctx context.Context, appID int64, fields map[string]any) error {
	safe := make(map[string]any, len(fields))
	for col, v := range fields {
		if metadataColumns[col] {
			safe[col] = v
		}
	}
	if len(safe) == 0 {
		return nil
	}

	if incoming, ok := safe["name"].(string); ok {
		existing, err := s.GameName(ctx, appID)
		if err != nil {
			return fmt.Errorf("read existing name: %w", err)
		}
		if !models.IsPlaceholderName(existing) && models.IsPlaceholderName(incoming) {
			delete(safe, "name")
			if len(safe) == 0 {
				return nil
			}
		}
	}

	cols := make([]string, 0, len(safe))
	args := make([]any, 0, len(safe)+2)
	for col, v := range safe {
		cols = append(cols, col+" = ?")
		args = append(args, v)
	}
	args = append(args, s.now().Unix(), appID)

	query := fmt.Sprintf("UPDATE games SET %s, updated_at = ? WHERE app_id = ?",
		strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert metadata for %d: %w", appID, err)
	}
	return nil
}

// ReplaceGenres replaces the genre set for a game.
func (s *Store) ReplaceGenres(ctx context.Context, appID int64, genres []string) error {
	return s.replacePairs(ctx, appID, genres,
		`DELETE FROM game_genres WHERE app_id = ?`,
		`INSERT OR REPLACE INTO game_genres (app_id, genre) VALUES (?, ?)`)
}

// ReplaceTags replaces the store-tag set for a game (names only; tag IDs
// are used by the bulk tag-import path).
func (s *Store) ReplaceTags(ctx context.Context, appID int64, tags []string) error {
	return s.replacePairs(ctx, appID, tags,
		`DELETE FROM game_tags WHERE app_id = ?`,
		`INSERT OR REPLACE INTO game_tags (app_id, tag) VALUES (?, ?)`)
}

func (s *Store) replacePairs(ctx context.Context, appID int64, values []string, deleteQ, insertQ string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, deleteQ, appID); err != nil {
		return err
	}
	for _, v := range values {
		if _, err := tx.ExecContext(ctx, insertQ, appID, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}
