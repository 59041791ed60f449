// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the yukti packages.
//
// # Key Functions
//
// Text:
//   - TruncateRunes: rune-safe truncation with a trailing "...", used for listing previews
//   - Clip: rune-safe truncation without a marker
//   - TruncateWidth: display-width truncation for terminal columns
//   - FirstLine: first non-empty line of a block of text
//
// Files:
//   - AtomicWriteFile: temp file, fsync, rename
//
// # Usage
//
//	preview := util.TruncateWidth(reply, 60)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
