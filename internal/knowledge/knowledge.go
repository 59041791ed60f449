// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package knowledge answers a handful of questions about the assistant itself
// without consulting the model, and supplies session greetings.
package knowledge

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/jeranaias/yukti/internal/format"
)

// AboutText is the canned answer to questions about the assistant.
const AboutText = `**About YuktiAI:**

YuktiAI is an intelligent AI assistant that provides answers.

**Key Capabilities:**
• Answer questions across multiple domains
• Provide coding solutions and explanations
• Help with academic and business queries
• Maintain conversation context
• Format responses professionally

**Current Limitations:**
• Cannot browse the internet
• Cannot access external APIs
• Knowledge cutoff applies
• Cannot perform real-time data retrieval`

// CapabilitiesText is the canned answer to "what can you do".
const CapabilitiesText = "I can help you with a wide range of topics including general knowledge, " +
	"coding, business advice, academic questions, explanations, tutorials, and more. " +
	"I provide detailed, well-formatted responses without redirecting you to external sources."

// Greetings are the opening lines used for a new session.
var Greetings = []string{
	"Hello! I'm YuktiAI, your intelligent assistant. How can I help you today?",
	"Hi there! I'm YuktiAI. What would you like to know or discuss?",
	"Welcome! I'm YuktiAI, ready to assist you with any questions you have.",
}

type entry struct {
	triggers []string
	answer   string
}

// entries are checked in order; about questions win over capability questions.
var entries = []entry{
	{[]string{"about", "what is yukti", "who are you"}, AboutText},
	{[]string{"capabilities", "what can you do"}, CapabilitiesText},
}

// Base is the static lookup table. It is safe for concurrent use.
type Base struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Base using a randomly seeded source for greetings.
func New() *Base {
	return &Base{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewWithSource creates a Base whose greeting choice comes from src.
func NewWithSource(src rand.Source) *Base {
	return &Base{rng: rand.New(src)}
}

// Search returns the canned answer for query, if one applies.
func (b *Base) Search(query string) (string, bool) {
	q := format.Normalize(query)
	for _, e := range entries {
		for _, t := range e.triggers {
			if strings.Contains(q, t) {
				return e.answer, true
			}
		}
	}
	return "", false
}

// RandomGreeting picks one of Greetings uniformly.
func (b *Base) RandomGreeting() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Greetings[b.rng.IntN(len(Greetings))]
}
