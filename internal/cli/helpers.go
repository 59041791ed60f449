// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/gateway"
	"github.com/jeranaias/yukti/internal/memory"
	"github.com/jeranaias/yukti/internal/pipeline"
	"github.com/jeranaias/yukti/internal/storage"
)

// openStore opens the transcript database, or returns nil when storage is
// disabled. A store that fails to open is logged and treated as disabled:
// transcripts are a convenience and must not stop a chat.
func openStore(cfg *config.Config) *storage.Store {
	if !cfg.Storage.Enabled {
		return nil
	}
	path, err := cfg.StoragePath()
	if err != nil {
		log.Warn().Err(err).Msg("STORAGE_PATH_FAILED")
		return nil
	}
	store, err := storage.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("STORAGE_OPEN_FAILED")
		return nil
	}
	return store
}

// recorderFor persists each exchange of sessionID into store. Write errors
// are logged only.
func recorderFor(store *storage.Store, sessionID string) pipeline.RecordFunc {
	return func(ctx context.Context, ex memory.Exchange) {
		if err := store.Append(ctx, sessionID, ex); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("TRANSCRIPT_APPEND_FAILED")
		}
	}
}

// newOrchestrator wires a gateway for cfg into a fresh orchestrator,
// recording into store when it is non-nil.
func newOrchestrator(cfg *config.Config, store *storage.Store, sessionID string) *pipeline.Orchestrator {
	var opts []pipeline.Option
	if store != nil {
		opts = append(opts, pipeline.WithRecorder(recorderFor(store, sessionID)))
	}
	return pipeline.New(cfg, gateway.FromConfig(cfg), opts...)
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
