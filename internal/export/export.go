// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/yukti/internal/storage"
	"github.com/jeranaias/yukti/internal/util"
)

// ErrEmptyTranscript is returned for transcripts with no exchanges.
var ErrEmptyTranscript = errors.New("transcript has no exchanges")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a transcript to one output format.
type Exporter interface {
	Export(t *storage.Transcript) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Formats lists the accepted format names.
var Formats = []string{"markdown", "json", "html"}

// ForFormat returns the exporter for name. "" and "md" mean Markdown.
func ForFormat(name string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "markdown", "md":
		return MarkdownExporter{}, nil
	case "json":
		return JSONExporter{}, nil
	case "html", "htm":
		return HTMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want %s)", name, strings.Join(Formats, ", "))
	}
}

// ForPath picks the exporter from path's extension, defaulting to Markdown.
func ForPath(path string) Exporter {
	exp, err := ForFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return MarkdownExporter{}
	}
	return exp
}

// ToFile writes t to path in the format its extension names.
func ToFile(t *storage.Transcript, path string) error {
	body, err := ForPath(path).Export(t)
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, body, 0o644)
}

func check(t *storage.Transcript) error {
	if t == nil || len(t.Exchanges) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

// =============================================================================
// MARKDOWN + JSON
// =============================================================================

// MarkdownExporter renders a readable Markdown document.
type MarkdownExporter struct{}

func (MarkdownExporter) Export(t *storage.Transcript) ([]byte, error) {
	if err := check(t); err != nil {
		return nil, err
	}
	return []byte(t.ExportMarkdown()), nil
}

func (MarkdownExporter) FileExtension() string { return ".md" }
func (MarkdownExporter) MimeType() string      { return "text/markdown; charset=utf-8" }

// JSONExporter renders the full transcript structure.
type JSONExporter struct{}

func (JSONExporter) Export(t *storage.Transcript) ([]byte, error) {
	if err := check(t); err != nil {
		return nil, err
	}
	return t.ExportJSON()
}

func (JSONExporter) FileExtension() string { return ".json" }
func (JSONExporter) MimeType() string      { return "application/json" }
