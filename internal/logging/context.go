// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

// runIDKey is the context key for enrichment run IDs.
const runIDKey contextKey = "run_id"

// GenerateRunID creates a new unique run ID.
// Returns the first 8 characters of a UUID for readability.
func GenerateRunID() string {
	return uuid.New().String()[:8]
}

// ContextWithRunID returns a new context carrying the given run ID.
// Every log line emitted through Ctx during an enrichment run carries it,
// which is what lets concurrently-running tracks be told apart in output.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext retrieves the run ID from context, or "" if absent.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns a logger with the context's run ID attached, if present.
//
//	logging.Ctx(ctx).Info().Msg("Track started")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := Logger()
	if runID := RunIDFromContext(ctx); runID != "" {
		logger = logger.With().Str("run_id", runID).Logger()
	}
	return &logger
}
