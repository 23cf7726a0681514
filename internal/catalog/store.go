// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package catalog is the boundary to the local game catalog database.
//
// The store is SQLite in WAL mode. Concurrency model: every enrichment track
// opens its own *Store handle and relies on SQLite's own serialization for
// write ordering; there is no application-level locking. All methods take a
// context and are safe for sequential use from a single track goroutine.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// Store is one connection handle to the catalog database.
type Store struct {
	db *sql.DB

	// now is the clock used for freshness checks and last_updated stamps.
	// Overridden in tests.
	now func() time.Time
}

// Open opens (creating if necessary) the catalog database at path and
// applies the WAL journal mode and a busy timeout. Each enrichment track
// must call Open for itself; handles are not shared across tracks.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}

	// One writer connection avoids SQLITE_BUSY churn inside a single track.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates the tables this tool reads and writes. The broader
// catalog schema (collections, assets, profiles) is owned by the desktop
// application and not touched here.
func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS games (
	app_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	app_type TEXT NOT NULL DEFAULT 'game',
	developer TEXT,
	publisher TEXT,
	review_score INTEGER,
	steam_release_date INTEGER,
	original_release_date INTEGER,
	pegi_rating TEXT,
	deck_status TEXT,
	updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS game_genres (
	app_id INTEGER NOT NULL,
	genre TEXT NOT NULL,
	PRIMARY KEY (app_id, genre)
);

CREATE TABLE IF NOT EXISTS game_tags (
	app_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL DEFAULT 0,
	tag TEXT NOT NULL,
	PRIMARY KEY (app_id, tag)
);

CREATE TABLE IF NOT EXISTS protondb_ratings (
	app_id INTEGER PRIMARY KEY,
	tier TEXT NOT NULL,
	confidence TEXT NOT NULL DEFAULT '',
	trending_tier TEXT NOT NULL DEFAULT '',
	score REAL NOT NULL DEFAULT 0,
	best_reported TEXT NOT NULL DEFAULT '',
	last_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hltb_data (
	app_id INTEGER PRIMARY KEY,
	main_story REAL NOT NULL DEFAULT 0,
	main_extras REAL NOT NULL DEFAULT 0,
	completionist REAL NOT NULL DEFAULT 0,
	last_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hltb_id_cache (
	steam_app_id INTEGER PRIMARY KEY,
	hltb_game_id INTEGER NOT NULL,
	cached_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS achievement_stats (
	app_id INTEGER PRIMARY KEY,
	total INTEGER NOT NULL,
	unlocked INTEGER NOT NULL,
	completion_pct REAL NOT NULL,
	perfect INTEGER NOT NULL,
	last_updated INTEGER NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
