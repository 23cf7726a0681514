// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/steamshelf/steamshelf/internal/models"
)

// recorder captures listener events for assertions.
type recorder struct {
	mu          sync.Mutex
	progress    []progressEvent
	finished    map[string][]models.TrackResult
	allFinished []map[string]models.TrackResult
}

type progressEvent struct {
	track   string
	current int
	total   int
	label   string
}

func newRecorder() *recorder {
	return &recorder{finished: make(map[string][]models.TrackResult)}
}

func (r *recorder) TrackProgress(track string, current, total int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, progressEvent{track, current, total, label})
}

func (r *recorder) TrackFinished(track string, result models.TrackResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[track] = append(r.finished[track], result)
}

func (r *recorder) AllFinished(results map[string]models.TrackResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allFinished = append(r.allFinished, results)
}

func (r *recorder) finishedOnce(t *testing.T, track string) models.TrackResult {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.finished[track]); n != 1 {
		t.Fatalf("track %s finished %d times, want 1", track, n)
	}
	return r.finished[track][0]
}

func items(ids ...int64) []models.WorkItem {
	out := make([]models.WorkItem, len(ids))
	for i, id := range ids {
		out[i] = models.WorkItem{ID: id, Label: "game"}
	}
	return out
}

func TestJobCountsSuccessesAndFailures(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	job := NewJob(JobConfig{
		Track: "test",
		Items: items(1, 2, 3),
		Process: func(_ context.Context, item models.WorkItem) error {
			if item.ID == 2 {
				return errors.New("boom")
			}
			return nil
		},
		Listener: rec,
	})

	result := job.Run(context.Background())

	want := models.TrackResult{Success: 2, Failed: 1}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}
	if got := rec.finishedOnce(t, "test"); got != want {
		t.Errorf("finished event = %+v, want %+v", got, want)
	}
	if len(rec.progress) != 3 {
		t.Fatalf("got %d progress events, want 3", len(rec.progress))
	}
	for i, ev := range rec.progress {
		if ev.current != i+1 || ev.total != 3 {
			t.Errorf("progress[%d] = %d/%d, want %d/3", i, ev.current, ev.total, i+1)
		}
	}
}

func TestJobSetupFailure(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	var processed, toreDown bool
	job := NewJob(JobConfig{
		Track: "test",
		Items: items(1, 2),
		Setup: func(context.Context) error { return errors.New("no store") },
		Process: func(context.Context, models.WorkItem) error {
			processed = true
			return nil
		},
		Teardown: func() { toreDown = true },
		Listener: rec,
	})

	result := job.Run(context.Background())

	want := models.TrackResult{Success: 0, Failed: models.ErroredSentinel}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}
	if processed {
		t.Error("process ran despite setup failure")
	}
	if !toreDown {
		t.Error("teardown skipped after setup failure")
	}
	rec.finishedOnce(t, "test")
}

func TestJobCancelStopsAtItemBoundary(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	var job *Job
	processed := 0
	job = NewJob(JobConfig{
		Track: "test",
		Items: items(1, 2, 3, 4, 5),
		Process: func(context.Context, models.WorkItem) error {
			processed++
			if processed == 2 {
				job.Cancel()
			}
			return nil
		},
		Listener: rec,
	})

	result := job.Run(context.Background())

	if processed != 2 {
		t.Fatalf("processed %d items, want 2", processed)
	}
	if got := result.Success + result.Failed; got != 2 {
		t.Errorf("success+failed = %d, want exactly the processed count 2", got)
	}
	rec.finishedOnce(t, "test")
}

func TestJobContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	processed := 0
	job := NewJob(JobConfig{
		Track: "test",
		Items: items(1, 2, 3),
		Delay: time.Hour,
		Process: func(context.Context, models.WorkItem) error {
			processed++
			cancel()
			return nil
		},
	})

	start := time.Now()
	result := job.Run(ctx)

	// The hour-long pacing wait before item 2 must be cut short.
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("run took %v, cancellation did not interrupt pacing", elapsed)
	}
	if processed != 1 {
		t.Errorf("processed %d items, want 1", processed)
	}
	if got := result.Success + result.Failed; got != 1 {
		t.Errorf("success+failed = %d, want 1", got)
	}
}

func TestJobPanicContained(t *testing.T) {
	t.Parallel()

	job := NewJob(JobConfig{
		Track: "test",
		Items: items(1, 2, 3),
		Process: func(_ context.Context, item models.WorkItem) error {
			if item.ID == 2 {
				panic("worker bug")
			}
			return nil
		},
	})

	result := job.Run(context.Background())

	want := models.TrackResult{Success: 2, Failed: 1}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}
}

func TestJobPacing(t *testing.T) {
	t.Parallel()

	const delay = 50 * time.Millisecond
	var stamps []time.Time
	job := NewJob(JobConfig{
		Track: "test",
		Items: items(1, 2, 3),
		Delay: delay,
		Process: func(context.Context, models.WorkItem) error {
			stamps = append(stamps, time.Now())
			return nil
		},
	})

	start := time.Now()
	job.Run(context.Background())

	if len(stamps) != 3 {
		t.Fatalf("processed %d items, want 3", len(stamps))
	}
	// First item runs without waiting.
	if gap := stamps[0].Sub(start); gap > delay {
		t.Errorf("first item waited %v before running", gap)
	}
	// Later items are spaced by at least the delay.
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < delay-5*time.Millisecond {
			t.Errorf("gap before item %d was %v, want >= %v", i+1, gap, delay)
		}
	}
}

func TestJobEmptyItems(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	job := NewJob(JobConfig{
		Track: "test",
		Items: nil,
		Process: func(context.Context, models.WorkItem) error {
			t.Error("process ran with no items")
			return nil
		},
		Listener: rec,
	})

	if result := job.Run(context.Background()); result != (models.TrackResult{}) {
		t.Fatalf("result = %+v, want zero", result)
	}
	rec.finishedOnce(t, "test")
}
