// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/yukti/internal/metrics"
	"github.com/jeranaias/yukti/internal/pipeline"
)

// Factory builds the orchestrator for a new session.
type Factory func(id string) *pipeline.Orchestrator

// Registry holds the live sessions of a server.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	timeout  time.Duration
	now      func() time.Time
}

// NewRegistry creates an empty registry. Sessions idle longer than timeout
// are removed by Sweep; a timeout of zero disables expiry.
func NewRegistry(factory Factory, timeout time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
		timeout:  timeout,
		now:      time.Now,
	}
}

// SetFactory replaces the factory used for sessions created from now on.
// Existing sessions keep their orchestrators.
func (r *Registry) SetFactory(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factory = f
}

// Create starts a new session.
func (r *Registry) Create() *Session {
	id := NewID()

	r.mu.Lock()
	factory := r.factory
	r.mu.Unlock()

	s := newSession(id, factory(id), r.now)

	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	log.Info().Str("session", id).Msg("SESSION_CREATED")
	return s
}

// Get returns the session with id and marks it active.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Delete ends a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		metrics.ActiveSessions.Set(float64(n))
		log.Info().Str("session", id).Msg("SESSION_DELETED")
	}
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle longer than the timeout and returns how many
// were removed. Attached sessions are skipped.
func (r *Registry) Sweep() int {
	if r.timeout <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	var expired []string
	for id, s := range r.sessions {
		if s.Attached() {
			continue
		}
		if now.Sub(s.LastActivity()) > r.timeout {
			expired = append(expired, id)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if len(expired) > 0 {
		metrics.ActiveSessions.Set(float64(n))
		for _, id := range expired {
			log.Info().Str("session", id).Dur("timeout", r.timeout).Msg("SESSION_EXPIRED")
		}
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
