// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memory keeps the short rolling window of exchanges that gives the
// model some conversational context.
package memory

import (
	"strings"
	"time"

	"github.com/jeranaias/yukti/internal/util"
)

// DefaultCapacity is the number of exchanges kept when none is configured.
const DefaultCapacity = 10

// contextAnswerRunes bounds how much of each past answer is replayed as context.
const contextAnswerRunes = 200

// Exchange is one completed question/answer pair.
type Exchange struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
}

// Stats summarizes how full the memory is.
type Stats struct {
	Count              int     `json:"total_conversations"`
	Capacity           int     `json:"max_memory"`
	UtilizationPercent float64 `json:"memory_usage_percent"`
}

// Conversation is a bounded, oldest-first log of exchanges.
// It is not safe for concurrent use; its owner serializes access.
type Conversation struct {
	capacity  int
	exchanges []Exchange
	now       func() time.Time
}

// New creates an empty Conversation holding at most capacity exchanges.
// A capacity of zero or less keeps nothing.
func New(capacity int) *Conversation {
	return &Conversation{capacity: capacity, now: time.Now}
}

// Record appends an exchange stamped with the current time and evicts the
// oldest entries beyond capacity. It returns the stored exchange.
func (c *Conversation) Record(user, assistant string) Exchange {
	ex := Exchange{Timestamp: c.now(), User: user, Assistant: assistant}
	if c.capacity <= 0 {
		return ex
	}

	c.exchanges = append(c.exchanges, ex)
	if over := len(c.exchanges) - c.capacity; over > 0 {
		// Copy down so the backing array does not grow without bound.
		n := copy(c.exchanges, c.exchanges[over:])
		clear(c.exchanges[n:])
		c.exchanges = c.exchanges[:n]
	}
	return ex
}

// RecentContext renders the last k exchanges as alternating
// "Previous Q:" / "Previous A:" lines. Each answer is cut to 200 runes and
// always followed by "...". Returns "" when k <= 0 or nothing is stored.
func (c *Conversation) RecentContext(k int) string {
	if k <= 0 || len(c.exchanges) == 0 {
		return ""
	}
	start := max(len(c.exchanges)-k, 0)

	lines := make([]string, 0, 2*(len(c.exchanges)-start))
	for _, ex := range c.exchanges[start:] {
		lines = append(lines,
			"Previous Q: "+ex.User,
			"Previous A: "+util.Clip(ex.Assistant, contextAnswerRunes)+util.Ellipsis,
		)
	}
	return strings.Join(lines, "\n")
}

// Clear removes every exchange. Capacity is unchanged.
func (c *Conversation) Clear() {
	c.exchanges = nil
}

// Stats reports the current fill level.
func (c *Conversation) Stats() Stats {
	s := Stats{Count: len(c.exchanges), Capacity: c.capacity}
	if c.capacity > 0 {
		s.UtilizationPercent = float64(s.Count) / float64(c.capacity) * 100
	}
	return s
}

// Exchanges returns a copy of the stored exchanges, oldest first.
func (c *Conversation) Exchanges() []Exchange {
	out := make([]Exchange, len(c.exchanges))
	copy(out, c.exchanges)
	return out
}

// Len returns the number of stored exchanges.
func (c *Conversation) Len() int {
	return len(c.exchanges)
}

// Capacity returns the configured bound.
func (c *Conversation) Capacity() int {
	return c.capacity
}
