// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline runs one chat turn from raw user text to the reply shown
// on screen.
//
// An Orchestrator must be initialized before it answers anything.
// Initialization probes the model server and checks that the configured model
// is installed. Each Respond call then goes through these steps:
//
//  1. blank input is answered with a prompt for input
//  2. questions about the assistant are answered from the knowledge base
//  3. otherwise the last exchanges are replayed as context, the model is
//     asked, the reply is formatted and the exchange is remembered
//
// # Key Types
//
//   - Orchestrator: the per-session state machine
//   - InitResult: outcome of Initialize
//   - Status: a fresh health snapshot
//
// # Usage
//
//	orch := pipeline.New(cfg, gateway.FromConfig(cfg))
//	if res := orch.Initialize(ctx); !res.Success {
//	    fmt.Println(res.Message)
//	    fmt.Println(pipeline.SetupHint(res, cfg.Ollama.Model))
//	    return
//	}
//	fmt.Println(orch.Respond(ctx, "Explain goroutines"))
package pipeline
