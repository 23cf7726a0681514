// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package protondb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantFound bool
		wantErr   bool
		wantTier  string
	}{
		{
			name:      "full summary",
			status:    http.StatusOK,
			body:      `{"tier":"gold","confidence":"strong","trendingTier":"platinum","score":0.82,"bestReportedTier":"platinum"}`,
			wantFound: true,
			wantTier:  "gold",
		},
		{
			name:      "missing tier defaults to unknown",
			status:    http.StatusOK,
			body:      `{"confidence":"weak"}`,
			wantFound: true,
			wantTier:  "unknown",
		},
		{
			name:   "no reports",
			status: http.StatusNotFound,
			body:   `{}`,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    ``,
			wantErr: true,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"tier":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/reports/summaries/620.json" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New()
			c.baseURL = srv.URL

			rating, found, err := c.FetchRating(context.Background(), 620)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && rating.Tier != tt.wantTier {
				t.Errorf("tier = %q, want %q", rating.Tier, tt.wantTier)
			}
		})
	}
}

func TestFetchRatingTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New()
	c.baseURL = srv.URL
	if _, _, err := c.FetchRating(context.Background(), 620); err == nil {
		t.Fatal("expected transport error")
	}
}
