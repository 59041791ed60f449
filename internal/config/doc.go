// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates and saves yukti's settings.
//
// Settings live in ~/.yukti/config.toml (a config.json next to it is read when
// no TOML file exists). Keys missing from the file keep their defaults, then
// YUKTI_* environment variables are applied, then the result is validated.
//
// # Key Types
//
//   - Config: the full settings tree
//   - Summary: the flat view reported by status calls
//   - ValidateErrors: every problem found by Validate, joined
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Ollama.Model)
//
// A running server can follow edits to the file with Watch. Reloaded
// configuration only affects sessions created afterwards.
package config
