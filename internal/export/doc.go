// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders stored transcripts as Markdown, JSON or HTML.
//
// # Usage
//
//	exp, err := export.ForFormat("html")
//	body, err := exp.Export(transcript)
//
// Or pick the format from a file name:
//
//	err := export.ToFile(transcript, "chat.html")
package export
