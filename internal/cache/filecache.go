// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

// Package cache provides the file-based tier of the TTL cache layer.
//
// Each entry is one JSON document on disk; freshness is derived from the
// file's modification time. A stale entry and an absent entry are
// indistinguishable to callers: Get reports a miss for both and never
// deletes anything. Explicit cleanup goes through Sweep.
package cache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// FileCache stores one JSON file per key under a single directory.
type FileCache struct {
	dir string
	ttl time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	// now is the clock used for freshness checks. Overridden in tests.
	now func() time.Time
}

// NewFile opens (creating if necessary) a file cache rooted at dir. Entries
// older than ttl are treated as absent.
func NewFile(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// path maps a key to its on-disk file. Keys that would escape the cache
// directory or collide with path syntax are hashed instead.
func (c *FileCache) path(key string) string {
	if key == "" || strings.ContainsAny(key, `/\:*?"<>|`) || strings.HasPrefix(key, ".") {
		sum := sha256.Sum256([]byte(key))
		key = fmt.Sprintf("%x", sum[:16])
	}
	return filepath.Join(c.dir, key+".json")
}

// Get reads the entry for key into out. It returns false when the entry is
// absent, older than the TTL, or unreadable as JSON. A corrupt file counts
// as a miss and is removed so the next Put can repair it.
func (c *FileCache) Get(key string, out any) (bool, error) {
	p := c.path(key)

	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		c.misses.Add(1)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat cache entry %s: %w", key, err)
	}
	if c.now().Sub(info.ModTime()) >= c.ttl {
		c.misses.Add(1)
		return false, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return false, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		_ = os.Remove(p)
		c.misses.Add(1)
		return false, nil
	}

	c.hits.Add(1)
	return true, nil
}

// Put writes the entry for key, resetting its age. The write is atomic: a
// reader never observes a partially written file.
func (c *FileCache) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	p := c.path(key)
	tmp, err := os.CreateTemp(c.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

// Sweep deletes entries past their TTL and returns how many were removed.
func (c *FileCache) Sweep() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("sweep cache dir %s: %w", c.dir, err)
	}

	cutoff := c.now().Add(-c.ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) || info.ModTime().Equal(cutoff) {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Stats reports hit and miss counts since the cache was opened.
func (c *FileCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
