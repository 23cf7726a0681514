// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package hltb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
)

type fakeSearch struct {
	// results maps the joined search terms to the returned result set.
	results  map[string][]searchResult
	requests atomic.Int64
}

func (f *fakeSearch) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var payload struct {
			SearchTerms []string `json:"searchTerms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode search payload: %v", err)
		}
		key := strings.Join(payload.SearchTerms, " ")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": f.results[key],
		})
	}
}

func newSearchClient(t *testing.T, f *fakeSearch) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c := New("/api/search")
	c.baseURL = srv.URL
	return c
}

func TestSearchGameExactMatch(t *testing.T) {
	t.Parallel()

	f := &fakeSearch{results: map[string][]searchResult{
		"Hades": {
			{GameID: 10, GameName: "Hades II", CompMain: 72000, CompAllCount: 500},
			{GameID: 11, GameName: "Hades", CompMain: 79200, CompPlus: 140400, Comp100: 342000, CompAllCount: 3000},
		},
	}}
	c := newSearchClient(t, f)

	times, found, err := c.SearchGame(context.Background(), "Hades", 1145360)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if times.GameName != "Hades" {
		t.Errorf("matched %q, want exact name over higher-ranked result", times.GameName)
	}
	if times.MainStory != 22 {
		t.Errorf("main story = %v hours, want 22", times.MainStory)
	}

	// The resolved ID is collected for persistence.
	learned := c.LearnedIDs()
	if learned[1145360] != 11 {
		t.Errorf("learned = %v, want 1145360->11", learned)
	}
}

func TestSearchGameFuzzyPopularityTiebreak(t *testing.T) {
	t.Parallel()

	// Neither result matches exactly; both are distance 1 from the query,
	// so popularity must decide.
	f := &fakeSearch{results: map[string][]searchResult{
		"Celest": {
			{GameID: 20, GameName: "Celesta", CompMain: 3600, CompAllCount: 10},
			{GameID: 21, GameName: "Celeste", CompMain: 28800, CompAllCount: 9000},
		},
	}}
	c := newSearchClient(t, f)

	times, found, err := c.SearchGame(context.Background(), "Celest", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if times.GameName != "Celeste" {
		t.Errorf("matched %q, want the more popular candidate", times.GameName)
	}
}

func TestSearchGameFallbackToSimplifiedName(t *testing.T) {
	t.Parallel()

	// The full name finds nothing; the edition-stripped name does.
	f := &fakeSearch{results: map[string][]searchResult{
		"Dark Souls Remastered": {},
		"Dark Souls": {
			{GameID: 30, GameName: "Dark Souls", CompMain: 151200, CompAllCount: 4000},
		},
	}}
	c := newSearchClient(t, f)

	times, found, err := c.SearchGame(context.Background(), "Dark Souls Remastered", 570940)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected fallback match")
	}
	if times.GameName != "Dark Souls" {
		t.Errorf("matched %q", times.GameName)
	}
	if n := f.requests.Load(); n != 2 {
		t.Errorf("made %d searches, want 2 (full then simplified)", n)
	}
}

func TestSearchGameNoMatch(t *testing.T) {
	t.Parallel()

	f := &fakeSearch{results: map[string][]searchResult{}}
	c := newSearchClient(t, f)

	_, found, err := c.SearchGame(context.Background(), "Some Obscure Visual Tool", 0)
	if err != nil {
		t.Fatalf("no match must not be an error, got %v", err)
	}
	if found {
		t.Error("expected no match")
	}
}

func TestSearchGameCachedIDPinsMatch(t *testing.T) {
	t.Parallel()

	// By name the first result would win, but the cached ID pins the second.
	f := &fakeSearch{results: map[string][]searchResult{
		"Portal": {
			{GameID: 40, GameName: "Portal", CompMain: 10800, CompAllCount: 8000},
			{GameID: 41, GameName: "Portal with RTX", CompMain: 14400, CompAllCount: 100},
		},
	}}
	c := newSearchClient(t, f)
	c.SetIDCache(map[int64]int64{2012840: 41})

	times, found, err := c.SearchGame(context.Background(), "Portal", 2012840)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if times.GameName != "Portal with RTX" {
		t.Errorf("matched %q, want the cached ID to pin the match", times.GameName)
	}
}

func TestSearchGameStalePathError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("/api/search")
	c.baseURL = srv.URL

	_, _, err := c.SearchGame(context.Background(), "Hades", 0)
	if err == nil {
		t.Fatal("expected error for rejected search path")
	}
	if !strings.Contains(err.Error(), "search_path") {
		t.Errorf("error should point at the search path setting, got %v", err)
	}
}

func TestSearchGameEmptyName(t *testing.T) {
	t.Parallel()

	f := &fakeSearch{results: map[string][]searchResult{}}
	c := newSearchClient(t, f)

	_, found, err := c.SearchGame(context.Background(), "   ", 0)
	if err != nil || found {
		t.Errorf("blank name: found=%v err=%v, want miss without error", found, err)
	}
	if n := f.requests.Load(); n != 0 {
		t.Errorf("made %d searches for a blank name, want 0", n)
	}
}
