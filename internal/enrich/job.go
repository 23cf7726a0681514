// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package enrich

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/steamshelf/steamshelf/internal/logging"
	"github.com/steamshelf/steamshelf/internal/metrics"
	"github.com/steamshelf/steamshelf/internal/models"
)

// ProcessFunc handles one work item. A returned error counts the item as
// failed; it never aborts the loop.
type ProcessFunc func(ctx context.Context, item models.WorkItem) error

// JobConfig is the pure-data configuration of one enrichment job. Setup and
// Teardown are optional; Setup acquires per-track resources (store handle,
// pre-batched results) and its failure fails the whole track before any
// item runs. Teardown always runs, even after setup failure or
// cancellation.
type JobConfig struct {
	Track    string
	Items    []models.WorkItem
	Process  ProcessFunc
	Delay    time.Duration
	Setup    func(ctx context.Context) error
	Teardown func()
	Listener Listener
}

// Job is the generic sequential worker shared by every enrichment track:
// setup, ordered item loop with cancellation checks and pacing, teardown,
// one terminal result. The per-source behavior lives entirely in the
// injected functions.
type Job struct {
	cfg       JobConfig
	cancelled atomic.Bool
}

// NewJob creates a job from its configuration. No I/O happens until Run.
func NewJob(cfg JobConfig) *Job {
	if cfg.Listener == nil {
		cfg.Listener = NopListener{}
	}
	return &Job{cfg: cfg}
}

// Cancel requests cooperative cancellation. The current item finishes; the
// loop stops at the next item boundary. Calling Cancel after the job
// returned has no effect.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
}

// Run executes the job and returns its terminal result. Exactly one
// TrackFinished event is emitted, in every path.
func (j *Job) Run(ctx context.Context) models.TrackResult {
	start := time.Now()
	metrics.ActiveTracks.Inc()
	defer func() {
		metrics.ActiveTracks.Dec()
		metrics.TrackDuration.WithLabelValues(j.cfg.Track).Observe(time.Since(start).Seconds())
	}()

	log := logging.Ctx(ctx).With().Str("track", j.cfg.Track).Logger()

	if j.cfg.Setup != nil {
		if err := j.cfg.Setup(ctx); err != nil {
			log.Error().Err(err).Msg("track setup failed")
			if j.cfg.Teardown != nil {
				j.cfg.Teardown()
			}
			result := models.TrackResult{Success: 0, Failed: models.ErroredSentinel}
			metrics.TracksFinished.WithLabelValues(j.cfg.Track, "failed").Inc()
			j.cfg.Listener.TrackFinished(j.cfg.Track, result)
			return result
		}
	}

	result := j.runLoop(ctx, log)

	if j.cfg.Teardown != nil {
		j.cfg.Teardown()
	}

	state := "completed"
	if j.cancelled.Load() || ctx.Err() != nil {
		state = "cancelled"
	}
	metrics.TracksFinished.WithLabelValues(j.cfg.Track, state).Inc()
	log.Info().
		Int("success", result.Success).
		Int("failed", result.Failed).
		Str("state", state).
		Msg("track finished")

	j.cfg.Listener.TrackFinished(j.cfg.Track, result)
	return result
}

func (j *Job) runLoop(ctx context.Context, log zerolog.Logger) models.TrackResult {
	var result models.TrackResult
	total := len(j.cfg.Items)

	// The limiter yields the pacing contract directly: the first item runs
	// immediately, each later item waits out the delay, and nothing waits
	// after the final item.
	var limiter *rate.Limiter
	if j.cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(j.cfg.Delay), 1)
	}

	for i, item := range j.cfg.Items {
		if j.cancelled.Load() || ctx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
			// Cancellation may have landed during the wait.
			if j.cancelled.Load() {
				break
			}
		}

		if err := j.processOne(ctx, item); err != nil {
			result.Failed++
			metrics.ItemsProcessed.WithLabelValues(j.cfg.Track, "failed").Inc()
			log.Debug().Err(err).Int64("app_id", item.ID).Str("name", item.Label).Msg("item failed")
		} else {
			result.Success++
			metrics.ItemsProcessed.WithLabelValues(j.cfg.Track, "success").Inc()
		}

		j.cfg.Listener.TrackProgress(j.cfg.Track, i+1, total, item.Label)
	}

	return result
}

// processOne invokes the process function with panic containment; a panic
// in one item must not take down the loop or the track.
func (j *Job) processOne(ctx context.Context, item models.WorkItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("item %d panicked: %v", item.ID, r)
		}
	}()
	return j.cfg.Process(ctx, item)
}
