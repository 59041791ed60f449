// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"fmt"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/memory"
)

// State is the lifecycle stage of an Orchestrator.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText lets State appear by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// InitResult reports the outcome of Initialize.
type InitResult struct {
	Success          bool   `json:"success"`
	GatewayReachable bool   `json:"ollama_running"`
	ModelReady       bool   `json:"model_available"`
	Message          string `json:"message"`
	Model            string `json:"model,omitempty"`
	MemoryCapacity   int    `json:"memory_size,omitempty"`
}

// Status is a point-in-time health snapshot. It is computed on every call.
type Status struct {
	Initialized      bool           `json:"initialized"`
	State            State          `json:"state"`
	GatewayReachable bool           `json:"ollama_running"`
	ModelReady       bool           `json:"model_available"`
	Model            string         `json:"model"`
	Memory           memory.Stats   `json:"memory"`
	Config           config.Summary `json:"config"`
}

// SetupHint returns instructions for fixing a failed initialization, or ""
// when res succeeded.
func SetupHint(res InitResult, model string) string {
	switch {
	case res.Success:
		return ""
	case !res.GatewayReachable:
		return "1. Install Ollama from https://ollama.com/download\n" +
			"2. Start it with: ollama serve\n" +
			"3. Pull the model with: ollama pull " + model
	default:
		return "Pull the model with: ollama pull " + model
	}
}
