// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/yukti/internal/memory"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func exchangeAt(minute int, user, assistant string) memory.Exchange {
	return memory.Exchange{
		Timestamp: time.Date(2025, 6, 1, 10, minute, 0, 0, time.UTC),
		User:      user,
		Assistant: assistant,
	}
}

func TestStore_AppendAndHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, q := range []string{"one", "two", "three"} {
		require.NoError(t, s.Append(ctx, "sess-a", exchangeAt(i, q, "answer "+q)))
	}
	require.NoError(t, s.Append(ctx, "sess-b", exchangeAt(0, "other", "x")))

	all, err := s.History(ctx, "sess-a", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].User)
	assert.Equal(t, "answer three", all[2].Assistant)
	assert.True(t, all[0].Timestamp.Equal(exchangeAt(0, "", "").Timestamp))

	last2, err := s.History(ctx, "sess-a", 2)
	require.NoError(t, err)
	require.Len(t, last2, 2)
	assert.Equal(t, "two", last2[0].User)
	assert.Equal(t, "three", last2[1].User)
}

func TestStore_HistoryUnknownSession(t *testing.T) {
	s := openTestStore(t)
	got, err := s.History(context.Background(), "nope", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Transcript(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Transcript(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, s.Append(ctx, "sess", exchangeAt(1, "hi", "hello")))
	tr, err := s.Transcript(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, "sess", tr.SessionID)
	assert.Len(t, tr.Exchanges, 1)
}

func TestStore_Sessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "old", exchangeAt(1, "first question", "a")))
	require.NoError(t, s.Append(ctx, "old", exchangeAt(2, "second", "b")))
	require.NoError(t, s.Append(ctx, "new", exchangeAt(5, "latest", "c")))

	metas, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)

	assert.Equal(t, "new", metas[0].ID)
	assert.Equal(t, "old", metas[1].ID)
	assert.Equal(t, 2, metas[1].Exchanges)
	assert.Equal(t, "first question", metas[1].Preview)
}

func TestStore_DeleteSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "sess", exchangeAt(1, "q", "a")))
	require.NoError(t, s.DeleteSession(ctx, "sess"))

	got, err := s.History(ctx, "sess", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.ErrorIs(t, s.DeleteSession(ctx, "sess"), ErrSessionNotFound)
}

func TestStore_ReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "sess", exchangeAt(1, "q", "a")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.History(ctx, "sess", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestTranscript_ExportMarkdown(t *testing.T) {
	tr := &Transcript{
		SessionID: "abc",
		Assistant: "YuktiAI",
		Exchanges: []memory.Exchange{exchangeAt(7, "What is Go?", "A language.")},
	}

	md := tr.ExportMarkdown()
	assert.Contains(t, md, "# Session abc")
	assert.Contains(t, md, "Started: 2025-06-01T10:07:00Z")
	assert.Contains(t, md, "**You** (10:07):\n\nWhat is Go?")
	assert.Contains(t, md, "**YuktiAI** (10:07):\n\nA language.")
}

func TestTranscript_ExportJSON(t *testing.T) {
	tr := &Transcript{SessionID: "abc", Exchanges: []memory.Exchange{exchangeAt(0, "q", "a")}}

	data, err := tr.ExportJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded["session_id"])
	assert.Len(t, decoded["exchanges"], 1)
}

func TestStore_SessionsPreviewIsOneShortLine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	long := "\n" + strings.Repeat("why ", 40) + "\nsecond line"
	require.NoError(t, s.Append(ctx, "s1", exchangeAt(1, long, "a")))

	metas, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)

	p := metas[0].Preview
	assert.Equal(t, PreviewLength, utf8.RuneCountInString(p))
	assert.True(t, strings.HasPrefix(p, "why why"))
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.NotContains(t, p, "\n")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "", preview(""))
	assert.Equal(t, "short", preview("  short  \nmore"))
}
