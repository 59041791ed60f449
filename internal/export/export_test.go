// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/yukti/internal/memory"
	"github.com/jeranaias/yukti/internal/storage"
)

func sampleTranscript() *storage.Transcript {
	ts := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	return &storage.Transcript{
		SessionID: "sess_1",
		Assistant: "YuktiAI",
		Exchanges: []memory.Exchange{
			{Timestamp: ts, User: "Show me <b>Go</b> code", Assistant: "Here:\n\n```go\nfmt.Println(\"<hi>\")\n```\n\nUse `go run`."},
		},
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		name    string
		wantExt string
		wantErr bool
	}{
		{"", ".md", false},
		{"markdown", ".md", false},
		{"MD", ".md", false},
		{"json", ".json", false},
		{"html", ".html", false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		exp, err := ForFormat(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.wantExt, exp.FileExtension(), tt.name)
	}
}

func TestForPath(t *testing.T) {
	assert.IsType(t, HTMLExporter{}, ForPath("out/chat.html"))
	assert.IsType(t, JSONExporter{}, ForPath("chat.JSON"))
	assert.IsType(t, MarkdownExporter{}, ForPath("chat.txt"))
	assert.IsType(t, MarkdownExporter{}, ForPath("chat"))
}

func TestEmptyTranscript(t *testing.T) {
	for _, name := range Formats {
		exp, err := ForFormat(name)
		require.NoError(t, err)
		_, err = exp.Export(&storage.Transcript{SessionID: "x"})
		assert.ErrorIs(t, err, ErrEmptyTranscript, name)
	}
}

func TestHTMLExport_EscapesAndFormatsCode(t *testing.T) {
	body, err := HTMLExporter{}.Export(sampleTranscript())
	require.NoError(t, err)
	page := string(body)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "Show me &lt;b&gt;Go&lt;/b&gt; code")
	assert.NotContains(t, page, "<b>Go</b>")
	assert.Contains(t, page, `<pre><code class="language-go">fmt.Println(&#34;&lt;hi&gt;&#34;)</code></pre>`)
	assert.Contains(t, page, "<code>go run</code>")
	assert.Contains(t, page, "YuktiAI")
}

func TestJSONExport(t *testing.T) {
	body, err := JSONExporter{}.Export(sampleTranscript())
	require.NoError(t, err)

	var got storage.Transcript
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "sess_1", got.SessionID)
	require.Len(t, got.Exchanges, 1)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.html")

	require.NoError(t, ToFile(sampleTranscript(), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")

	mdPath := filepath.Join(dir, "chat.md")
	require.NoError(t, ToFile(sampleTranscript(), mdPath))
	data, err = os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Session sess_1")
}
