// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/yukti/internal/pipeline"
)

// Session is one user's conversation.
type Session struct {
	ID        string
	CreatedAt time.Time

	orch *pipeline.Orchestrator
	now  func() time.Time

	mu           sync.Mutex
	lastActivity time.Time
	attached     int
}

// NewID returns a fresh session identifier.
func NewID() string {
	return "sess_" + uuid.NewString()
}

func newSession(id string, orch *pipeline.Orchestrator, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:           id,
		CreatedAt:    t,
		orch:         orch,
		now:          now,
		lastActivity: t,
	}
}

// Orchestrator returns the session's orchestrator and marks the session active.
func (s *Session) Orchestrator() *pipeline.Orchestrator {
	s.Touch()
	return s.orch
}

// Touch records activity now.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.now()
}

// LastActivity returns when the session was last used.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// IdleTime returns how long since last activity.
func (s *Session) IdleTime() time.Duration {
	return s.now().Sub(s.LastActivity())
}

// Attach marks the session as held by a long-lived connection. Attached
// sessions never expire. The returned func releases the hold.
func (s *Session) Attach() (detach func()) {
	s.mu.Lock()
	s.attached++
	s.lastActivity = s.now()
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.attached--
			s.lastActivity = s.now()
			s.mu.Unlock()
		})
	}
}

// Attached reports whether any connection holds the session.
func (s *Session) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached > 0
}
