// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/yukti/internal/util"
)

// =============================================================================
// PROJECT METADATA
// =============================================================================

const (
	ProjectName = "YuktiAI"
	Version     = "1.0.0"
	Author      = "Harsh Raj"
)

// DefaultSystemPrompt is sent as the system instruction with every generation.
const DefaultSystemPrompt = `You are YuktiAI, an intelligent and helpful AI assistant.

CORE PRINCIPLES:
- Provide accurate, well-structured, and professional responses
- Use clear formatting with bullets, numbers, or sections when appropriate
- Never redirect users to external websites, search engines, or other tools
- Give complete answers based on your knowledge
- If uncertain, acknowledge limitations honestly
- Maintain a helpful and professional tone

Remember: You are YuktiAI - a standalone AI assistant that provides comprehensive answers without external redirections.`

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the complete yukti configuration.
type Config struct {
	Version   string          `toml:"version" json:"version"`
	Assistant AssistantConfig `toml:"assistant" json:"assistant"`
	Ollama    OllamaConfig    `toml:"ollama" json:"ollama"`
	Response  ResponseConfig  `toml:"response" json:"response"`
	Memory    MemoryConfig    `toml:"memory" json:"memory"`
	Server    ServerConfig    `toml:"server" json:"server"`
	Storage   StorageConfig   `toml:"storage" json:"storage"`
	Log       LogConfig       `toml:"log" json:"log"`
}

// AssistantConfig describes the assistant persona.
type AssistantConfig struct {
	Name         string `toml:"name" json:"name"`
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
}

// OllamaConfig points at the model server.
type OllamaConfig struct {
	URL                 string `toml:"url" json:"url"`
	Model               string `toml:"model" json:"model"`
	ProbeTimeoutSecs    int    `toml:"probe_timeout" json:"probe_timeout"`
	GenerateTimeoutSecs int    `toml:"generate_timeout" json:"generate_timeout"`
}

// ResponseConfig holds sampling and context settings.
type ResponseConfig struct {
	// MaxLength is sent to the model as num_predict.
	MaxLength   int     `toml:"max_length" json:"max_length"`
	Temperature float64 `toml:"temperature" json:"temperature"`
	// ContextTurns is how many past exchanges are replayed with each prompt.
	ContextTurns int `toml:"context_turns" json:"context_turns"`
}

// MemoryConfig bounds the per-session conversation log.
type MemoryConfig struct {
	Capacity int `toml:"capacity" json:"capacity"`
}

// ServerConfig configures `yukti serve`.
type ServerConfig struct {
	Addr               string   `toml:"addr" json:"addr"`
	RateLimit          float64  `toml:"rate_limit" json:"rate_limit"`
	RateBurst          int      `toml:"rate_burst" json:"rate_burst"`
	SessionIdleMinutes int      `toml:"session_idle_timeout" json:"session_idle_timeout"`
	AllowedOrigins     []string `toml:"allowed_origins" json:"allowed_origins"`
	MaxBodyBytes       int64    `toml:"max_body_bytes" json:"max_body_bytes"`
}

// StorageConfig controls the transcript database.
type StorageConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// LogConfig controls zerolog output. An empty Level lets each command pick
// its own default.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	File   string `toml:"file" json:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: Version,
		Assistant: AssistantConfig{
			Name:         ProjectName,
			SystemPrompt: DefaultSystemPrompt,
		},
		Ollama: OllamaConfig{
			URL:                 "http://localhost:11434",
			Model:               "llama3.2:3b",
			ProbeTimeoutSecs:    5,
			GenerateTimeoutSecs: 60,
		},
		Response: ResponseConfig{
			MaxLength:    1000,
			Temperature:  0.7,
			ContextTurns: 2,
		},
		Memory: MemoryConfig{
			Capacity: 10,
		},
		Server: ServerConfig{
			Addr:               "127.0.0.1:8787",
			RateLimit:          5,
			RateBurst:          10,
			SessionIdleMinutes: 30,
			AllowedOrigins:     []string{"*"},
			MaxBodyBytes:       64 << 10,
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Format: "console",
		},
	}
}

// ProbeTimeout is the bound on each health or model-listing call.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Ollama.ProbeTimeoutSecs) * time.Second
}

// GenerateTimeout is the bound on each generation call.
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.Ollama.GenerateTimeoutSecs) * time.Second
}

// SessionIdleTimeout is how long a server session may sit unused.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Server.SessionIdleMinutes) * time.Minute
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the yukti configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".yukti"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// StoragePath resolves the transcript database location, defaulting to
// ~/.yukti/transcripts.db.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "transcripts.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.yukti/config.toml, or config.json when there is no TOML file,
// or falls back to defaults. Environment overrides are applied last and the
// result is validated.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	return finish(Default())
}

// LoadFromPath loads a specific file. Files ending in .json are read as JSON,
// anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// LoadTOML decodes path over cfg. Keys absent from the file keep cfg's values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes path over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults restores values that a file may have blanked but that have no
// meaningful empty form. Numeric settings where zero is legal are left alone.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Assistant.Name == "" {
		cfg.Assistant.Name = defaults.Assistant.Name
	}
	if strings.TrimSpace(cfg.Assistant.SystemPrompt) == "" {
		cfg.Assistant.SystemPrompt = defaults.Assistant.SystemPrompt
	}
	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = defaults.Ollama.URL
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = defaults.Ollama.Model
	}
	if cfg.Ollama.ProbeTimeoutSecs <= 0 {
		cfg.Ollama.ProbeTimeoutSecs = defaults.Ollama.ProbeTimeoutSecs
	}
	if cfg.Ollama.GenerateTimeoutSecs <= 0 {
		cfg.Ollama.GenerateTimeoutSecs = defaults.Ollama.GenerateTimeoutSecs
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Server.SessionIdleMinutes <= 0 {
		cfg.Server.SessionIdleMinutes = defaults.Server.SessionIdleMinutes
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with a short header, owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# yukti configuration file\n")
	buf.WriteString("# Environment variables (YUKTI_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg to path as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// COPY + SUMMARY
// =============================================================================

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	return &clone
}

// Summary is the flat configuration view included in status reports.
type Summary struct {
	ProjectName       string  `json:"project_name"`
	Version           string  `json:"version"`
	AssistantName     string  `json:"assistant_name"`
	OllamaHost        string  `json:"ollama_host"`
	OllamaModel       string  `json:"ollama_model"`
	MaxResponseLength int     `json:"max_response_length"`
	Temperature       float64 `json:"temperature"`
	MemorySize        int     `json:"memory_size"`
}

// Summary flattens the settings that matter to a chat user.
func (c *Config) Summary() Summary {
	return Summary{
		ProjectName:       ProjectName,
		Version:           c.Version,
		AssistantName:     c.Assistant.Name,
		OllamaHost:        c.Ollama.URL,
		OllamaModel:       c.Ollama.Model,
		MaxResponseLength: c.Response.MaxLength,
		Temperature:       c.Response.Temperature,
		MemorySize:        c.Memory.Capacity,
	}
}

// String renders c as TOML for `yukti config show`.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "<unencodable config: " + err.Error() + ">"
	}
	return buf.String()
}
