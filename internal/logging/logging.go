// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options select the level, encoding and destinations of log output.
type Options struct {
	// Level is a zerolog level name. Empty uses DefaultLevel.
	Level string
	// DefaultLevel applies when Level is empty.
	DefaultLevel string
	// Format is "console" or "json".
	Format string
	// File, when set, receives a plain-text copy of every entry.
	File string
	// Out is the primary destination (default os.Stderr).
	Out io.Writer
	// NoColor disables ANSI colors in console output.
	NoColor bool
}

// ParseLevel maps a level name to a zerolog level. Unknown names yield InfoLevel.
func ParseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Setup installs the global logger described by opts. The returned closer
// releases the log file, if any; it is never nil.
func Setup(opts Options) (io.Closer, error) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level := opts.Level
	if level == "" {
		level = opts.DefaultLevel
	}
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339

	var primary io.Writer = out
	if !strings.EqualFold(opts.Format, "json") {
		primary = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: opts.NoColor}
	}

	writers := []io.Writer{primary}
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return closer, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return closer, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true})
		closer = f
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
