// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties one pipeline.Orchestrator to one conversation.
//
// A Session is created when a user starts talking (the CLI REPL starts, or a
// client calls POST /api/sessions) and ends when the user leaves, the session
// is deleted, or it sits idle past the registry's timeout. Sessions share no
// mutable state with each other.
//
// # Key Types
//
//   - Session: one conversation and its orchestrator
//   - Registry: the live sessions of a server, with idle expiry
//
// # Usage
//
//	reg := session.NewRegistry(factory, 30*time.Minute)
//	go reg.Run(ctx, time.Minute)
//
//	s := reg.Create()
//	reply := s.Orchestrator().Respond(ctx, "hello")
package session
