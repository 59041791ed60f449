// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - YUKTI_OLLAMA_URL: overrides ollama.url
//   - YUKTI_MODEL: overrides ollama.model
//   - YUKTI_TEMPERATURE: overrides response.temperature
//   - YUKTI_MAX_LENGTH: overrides response.max_length
//   - YUKTI_MEMORY_SIZE: overrides memory.capacity
//   - YUKTI_LISTEN_ADDR: overrides server.addr
//   - YUKTI_LOG_LEVEL: overrides log.level
//   - YUKTI_STORAGE_PATH: overrides storage.path
//
// Numeric values that do not parse are ignored with a warning.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("YUKTI_OLLAMA_URL"); v != "" {
		c.Ollama.URL = v
	}
	if v := os.Getenv("YUKTI_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("YUKTI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Response.Temperature = f
		} else {
			badEnv("YUKTI_TEMPERATURE", v, err)
		}
	}
	if v := os.Getenv("YUKTI_MAX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Response.MaxLength = n
		} else {
			badEnv("YUKTI_MAX_LENGTH", v, err)
		}
	}
	if v := os.Getenv("YUKTI_MEMORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Memory.Capacity = n
		} else {
			badEnv("YUKTI_MEMORY_SIZE", v, err)
		}
	}
	if v := os.Getenv("YUKTI_LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("YUKTI_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("YUKTI_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
}

func badEnv(name, value string, err error) {
	log.Warn().Str("var", name).Str("value", value).Err(err).Msg("ENV_OVERRIDE_IGNORED")
}
