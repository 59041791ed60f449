// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/yukti/internal/memory"
	"github.com/jeranaias/yukti/internal/util"
)

// Transcript is the full record of one session.
type Transcript struct {
	SessionID string            `json:"session_id"`
	Assistant string            `json:"assistant,omitempty"`
	Exchanges []memory.Exchange `json:"exchanges"`
}

// ExportMarkdown renders the transcript as a Markdown document.
func (t *Transcript) ExportMarkdown() string {
	name := t.Assistant
	if name == "" {
		name = "Assistant"
	}

	var sb strings.Builder
	sb.WriteString("# Session " + t.SessionID + "\n\n")
	if len(t.Exchanges) > 0 {
		sb.WriteString("Started: " + t.Exchanges[0].Timestamp.Format(time.RFC3339) + "\n\n")
	}
	sb.WriteString("---\n\n")

	for _, ex := range t.Exchanges {
		stamp := ex.Timestamp.Format("15:04")
		sb.WriteString("**You** (" + stamp + "):\n\n")
		sb.WriteString(ex.User)
		sb.WriteString("\n\n**" + name + "** (" + stamp + "):\n\n")
		sb.WriteString(ex.Assistant)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON renders the transcript as indented JSON.
func (t *Transcript) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// PreviewLength bounds SessionMeta.Preview in runes.
const PreviewLength = 80

// preview reduces a first question to one listing line.
func preview(question string) string {
	return util.TruncateRunes(util.FirstLine(question), PreviewLength)
}
