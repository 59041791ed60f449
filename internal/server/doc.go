// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes chat sessions over HTTP and WebSocket.
//
// Every session owns its own orchestrator and conversation memory; clients
// create one, initialize it, then exchange messages with it.
//
// # Endpoints
//
//   - GET    /health                          - liveness and version
//   - POST   /api/sessions                    - create a session, returns id + greeting
//   - POST   /api/sessions/{id}/initialize    - probe the model server
//   - POST   /api/sessions/{id}/messages      - send one message
//   - GET    /api/sessions/{id}/status        - fresh status snapshot
//   - POST   /api/sessions/{id}/reset         - clear conversation memory
//   - GET    /api/sessions/{id}/history       - remembered exchanges
//   - GET    /api/sessions/{id}/export        - stored transcript (?format=markdown|json|html)
//   - DELETE /api/sessions/{id}               - end the session
//   - GET    /api/sessions/{id}/ws            - WebSocket chat
//   - GET    /api/transcripts                 - stored sessions, newest first
//   - DELETE /api/transcripts/{id}            - delete a stored transcript
//   - GET    /metrics                         - Prometheus metrics
//
// # Middleware
//
// Requests pass through panic recovery, request logging, CORS, per-IP rate
// limiting and a request body limit, in that order.
//
// # Usage
//
//	srv := server.New(cfg, registry, store)
//	go srv.ListenAndServe()
//	defer srv.Shutdown(ctx)
package server
