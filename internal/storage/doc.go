// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat transcripts in a local SQLite database.
//
// Conversation memory holds only a few recent exchanges; this package keeps
// the full record of every exchange per session so that a transcript can be
// listed or exported after memory has rolled over or the session has ended.
//
// # Key Types
//
//   - Store: the SQLite-backed exchange log (modernc.org/sqlite, no cgo)
//   - Transcript: one session's exchanges, exportable as Markdown or JSON
//   - SessionMeta: per-session summary returned by Sessions
//
// # Usage
//
//	store, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Append(ctx, sessionID, exchange)
//	t, err := store.Transcript(ctx, sessionID)
//	fmt.Print(t.ExportMarkdown())
package storage
