// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama is a typed HTTP client for the subset of the Ollama API that
// yukti talks to: the model listing at /api/tags and non-streaming text
// generation at /api/generate.
//
// Every failure is reported as a *ClientError whose Type says what went wrong
// (server down, timeout, bad status, undecodable body). Callers that need a
// fail-soft view of the server wrap this package; see internal/gateway.
//
// # Key Types
//
//   - Client: the HTTP client, safe for concurrent use
//   - GenerateRequest / GenerateResponse: /api/generate payloads
//   - ModelInfo: one entry of the /api/tags listing
//
// # Usage
//
//	client := ollama.NewClient(&ollama.ClientConfig{BaseURL: "http://localhost:11434"})
//	resp, err := client.Generate(ctx, ollama.GenerateRequest{
//	    Model:   "llama3.2:3b",
//	    Prompt:  "What is a goroutine?",
//	    Options: &ollama.Options{Temperature: 0.7, NumPredict: 1000},
//	})
//	if ollama.IsTimeout(err) {
//	    // ...
//	}
package ollama
