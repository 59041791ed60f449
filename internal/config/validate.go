// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidLogLevels are the accepted values of log.level. Empty means "command default".
var ValidLogLevels = []string{"", "trace", "debug", "info", "warn", "error", "disabled"}

// ValidLogFormats are the accepted values of log.format.
var ValidLogFormats = []string{"console", "json"}

// Validate reports every invalid setting at once. It returns nil or a ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if u, err := url.Parse(c.Ollama.URL); err != nil {
		add("ollama.url", "not a valid URL: "+err.Error())
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("ollama.url", "scheme must be http or https")
	} else if u.Host == "" {
		add("ollama.url", "missing host")
	}

	if strings.TrimSpace(c.Ollama.Model) == "" {
		add("ollama.model", "must not be empty")
	}
	if c.Response.Temperature < 0 || c.Response.Temperature > 2 {
		add("response.temperature", fmt.Sprintf("must be between 0 and 2, got %g", c.Response.Temperature))
	}
	if c.Response.MaxLength <= 0 {
		add("response.max_length", fmt.Sprintf("must be positive, got %d", c.Response.MaxLength))
	}
	if c.Response.ContextTurns < 0 {
		add("response.context_turns", fmt.Sprintf("must not be negative, got %d", c.Response.ContextTurns))
	}
	if c.Memory.Capacity <= 0 {
		add("memory.capacity", fmt.Sprintf("must be positive, got %d", c.Memory.Capacity))
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", "must be host:port: "+err.Error())
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		add("server.rate_burst", "must be positive when rate_limit is set")
	}

	if !contains(ValidLogLevels, strings.ToLower(c.Log.Level)) {
		add("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	if !contains(ValidLogFormats, strings.ToLower(c.Log.Format)) {
		add("log.format", fmt.Sprintf("must be one of %s", strings.Join(ValidLogFormats, ", ")))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
