// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobal(t *testing.T) {
	t.Helper()
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestSetup_JSON(t *testing.T) {
	restoreGlobal(t)
	var buf bytes.Buffer

	closer, err := Setup(Options{Level: "info", Format: "json", Out: &buf})
	require.NoError(t, err)
	defer closer.Close()

	log.Debug().Msg("hidden")
	log.Info().Str("model", "llama3.2:3b").Msg("INIT_OK")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "INIT_OK", entry["message"])
	assert.Equal(t, "llama3.2:3b", entry["model"])
}

func TestSetup_DefaultLevel(t *testing.T) {
	restoreGlobal(t)
	var buf bytes.Buffer

	_, err := Setup(Options{DefaultLevel: "warn", Format: "json", Out: &buf})
	require.NoError(t, err)

	log.Info().Msg("quiet")
	assert.Empty(t, buf.String())
	log.Warn().Msg("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestSetup_File(t *testing.T) {
	restoreGlobal(t)
	path := filepath.Join(t.TempDir(), "logs", "yukti.log")

	closer, err := Setup(Options{Level: "info", Out: &bytes.Buffer{}, File: path, NoColor: true})
	require.NoError(t, err)
	log.Info().Msg("SERVER_START")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SERVER_START")
}
