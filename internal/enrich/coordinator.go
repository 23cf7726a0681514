// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package enrich

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/steamshelf/steamshelf/internal/catalog"
	"github.com/steamshelf/steamshelf/internal/config"
	"github.com/steamshelf/steamshelf/internal/deckverify"
	"github.com/steamshelf/steamshelf/internal/hltb"
	"github.com/steamshelf/steamshelf/internal/logging"
	"github.com/steamshelf/steamshelf/internal/metrics"
	"github.com/steamshelf/steamshelf/internal/models"
	"github.com/steamshelf/steamshelf/internal/protondb"
	"github.com/steamshelf/steamshelf/internal/steamapi"
	"github.com/steamshelf/steamshelf/internal/storefront"
)

// Deps carries everything a run needs. OpenStore is a factory because each
// track holds its own catalog handle for its lifetime; nil clients disable
// their tracks.
type Deps struct {
	OpenStore  func() (*catalog.Store, error)
	Steam      *steamapi.Client
	ProtonDB   *protondb.Client
	HLTB       *hltb.Client
	Deck       *deckverify.Client
	Storefront *storefront.Client
	Tags       TagSource
	Listener   Listener
}

// Coordinator drives one enrichment run: the tag import prerequisite first,
// then every eligible track in parallel, each on its own goroutine with its
// own store handle. A Coordinator is single-use.
type Coordinator struct {
	cfg      *config.Config
	deps     Deps
	listener Listener

	mu     sync.Mutex
	active []*Job

	pending   atomic.Int32
	cancelled atomic.Bool

	resultsMu sync.Mutex
	results   map[string]models.TrackResult
}

// New creates a coordinator for one run.
func New(cfg *config.Config, deps Deps) *Coordinator {
	listener := deps.Listener
	if listener == nil {
		listener = NopListener{}
	}
	return &Coordinator{
		cfg:      cfg,
		deps:     deps,
		listener: listener,
		results:  make(map[string]models.TrackResult),
	}
}

// Cancel requests cooperative cancellation of the run. Tracks stop at their
// next item boundary; tracks not yet started are skipped.
func (c *Coordinator) Cancel() {
	c.cancelled.Store(true)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, job := range c.active {
		job.Cancel()
	}
}

// Run executes the full enrichment pass and blocks until every track has
// finished. The returned map has an entry for every track, including the
// skipped ones; AllFinished is emitted with the same contents exactly once.
func (c *Coordinator) Run(ctx context.Context) (map[string]models.TrackResult, error) {
	log := logging.Ctx(ctx)

	// Tag import runs alone, before the parallel tracks, because the steam
	// track replaces per-game tag rows and both sides write the same table.
	c.record(TrackTags, c.runTagImport(ctx))

	jobs, err := c.planTracks(ctx)
	if err != nil {
		return nil, err
	}

	if len(jobs) == 0 {
		c.listener.AllFinished(c.snapshot())
		return c.snapshot(), nil
	}

	c.pending.Store(int32(len(jobs)))

	var wg sync.WaitGroup
	for track, job := range jobs {
		c.mu.Lock()
		c.active = append(c.active, job)
		c.mu.Unlock()

		wg.Add(1)
		go func(track string, job *Job) {
			defer wg.Done()
			c.record(track, job.Run(ctx))
			if c.pending.Add(-1) == 0 {
				c.listener.AllFinished(c.snapshot())
			}
		}(track, job)
	}

	log.Info().Int("tracks", len(jobs)).Msg("enrichment started")
	wg.Wait()
	return c.snapshot(), nil
}

// planTracks decides which tracks run and builds their jobs. Tracks whose
// prerequisites are not met, or that have no pending work, get an immediate
// skipped entry and never see setup.
func (c *Coordinator) planTracks(ctx context.Context) (map[string]*Job, error) {
	store, err := c.deps.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("open catalog for planning: %w", err)
	}
	defer store.Close()

	jobs := make(map[string]*Job)

	plan := func(track string, eligible bool, query func(context.Context) ([]models.WorkItem, error), build func([]models.WorkItem) *Job) error {
		if !eligible || c.cancelled.Load() {
			c.skip(ctx, track)
			return nil
		}
		items, err := query(ctx)
		if err != nil {
			return fmt.Errorf("plan %s track: %w", track, err)
		}
		if len(items) == 0 {
			c.skip(ctx, track)
			return nil
		}
		jobs[track] = build(items)
		return nil
	}

	// The steam track owns both chained phases, so its work list is the
	// union of games without metadata and, when the achievement phase can
	// run, games without achievement stats.
	steamItems := func(ctx context.Context) ([]models.WorkItem, error) {
		items, err := store.GamesMissingMetadata(ctx)
		if err != nil || c.cfg.Steam.SteamID == "" {
			return items, err
		}
		more, err := store.GamesWithoutAchievements(ctx)
		if err != nil {
			return nil, err
		}
		seen := make(map[int64]struct{}, len(items))
		for _, item := range items {
			seen[item.ID] = struct{}{}
		}
		for _, item := range more {
			if _, ok := seen[item.ID]; !ok {
				items = append(items, item)
			}
		}
		return items, nil
	}

	steps := []struct {
		track    string
		eligible bool
		query    func(context.Context) ([]models.WorkItem, error)
		build    func([]models.WorkItem) *Job
	}{
		{TrackSteam, c.deps.Steam != nil && c.cfg.Steam.APIKey != "", steamItems, c.steamJob},
		{TrackProtonDB, c.cfg.ProtonDB.Enabled && c.deps.ProtonDB != nil, store.AllGames, c.protonJob},
		{TrackHLTB, c.cfg.HLTB.Enabled && c.deps.HLTB != nil, store.GamesWithoutHLTB, c.hltbJob},
		{TrackDeck, c.deps.Deck != nil, store.GamesWithoutDeckStatus, c.deckJob},
		{TrackAgeRating, c.deps.Storefront != nil, store.GamesWithoutAgeRating, c.ageRatingJob},
	}
	for _, s := range steps {
		if err := plan(s.track, s.eligible, s.query, s.build); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// skip records a track that never ran and emits its terminal event so the
// listener sees one TrackFinished per configured track regardless.
func (c *Coordinator) skip(ctx context.Context, track string) {
	logging.Ctx(ctx).Debug().Str("track", track).Msg("track skipped")
	metrics.TracksFinished.WithLabelValues(track, "skipped").Inc()
	result := models.TrackResult{Success: models.SkippedSentinel, Failed: 0}
	c.record(track, result)
	c.listener.TrackFinished(track, result)
}

// runTagImport loads the tag export and bulk-inserts it. This is best
// effort: a missing or broken export fails the tags entry but never blocks
// the enrichment tracks.
func (c *Coordinator) runTagImport(ctx context.Context) models.TrackResult {
	if c.deps.Tags == nil || c.cancelled.Load() {
		result := models.TrackResult{Success: models.SkippedSentinel, Failed: 0}
		c.listener.TrackFinished(TrackTags, result)
		return result
	}

	failed := models.TrackResult{Success: 0, Failed: models.ErroredSentinel}
	log := logging.Ctx(ctx).With().Str("track", TrackTags).Logger()

	tags, err := c.deps.Tags.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("tag import failed")
		c.listener.TrackFinished(TrackTags, failed)
		return failed
	}

	store, err := c.deps.OpenStore()
	if err != nil {
		log.Error().Err(err).Msg("tag import failed")
		c.listener.TrackFinished(TrackTags, failed)
		return failed
	}
	defer store.Close()

	var rows []catalog.TagRow
	for appID, appTags := range tags {
		for _, tag := range appTags {
			rows = append(rows, catalog.TagRow{AppID: appID, TagID: tag.ID, Name: tag.Name})
		}
	}

	const batch = 5000
	for i := 0; i < len(rows); i += batch {
		end := min(i+batch, len(rows))
		if err := store.BulkInsertGameTags(ctx, rows[i:end]); err != nil {
			log.Error().Err(err).Int("inserted", i).Msg("tag import failed")
			c.listener.TrackFinished(TrackTags, failed)
			return failed
		}
		c.listener.TrackProgress(TrackTags, end, len(rows), "")
	}

	log.Info().Int("apps", len(tags)).Int("rows", len(rows)).Msg("tag import finished")
	result := models.TrackResult{Success: len(tags), Failed: 0}
	c.listener.TrackFinished(TrackTags, result)
	return result
}

func (c *Coordinator) record(track string, result models.TrackResult) {
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()
	c.results[track] = result
}

func (c *Coordinator) snapshot() map[string]models.TrackResult {
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()
	out := make(map[string]models.TrackResult, len(c.results))
	for track, result := range c.results {
		out[track] = result
	}
	return out
}
