// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/format"
	"github.com/jeranaias/yukti/internal/knowledge"
	"github.com/jeranaias/yukti/internal/memory"
	"github.com/jeranaias/yukti/internal/metrics"
)

// User-facing replies produced by the orchestrator itself.
const (
	NotInitializedText = "YuktiAI is not properly initialized. Please check the setup."
	EmptyInputText     = "Please provide a question or message for me to respond to."
	NoResponseText     = "I apologize, but I couldn't generate a response. Please try again."

	initOKText        = "YuktiAI initialized successfully!"
	notRunningText    = "Ollama is not running. Please start Ollama with: ollama serve"
	modelMissingTextF = "Model %s not available. Pull it with: ollama pull %s"
)

// Gateway is the model server as the orchestrator sees it. Implementations
// must never fail loudly: probes return false and generation returns a
// displayable sentence.
type Gateway interface {
	CheckAlive(ctx context.Context) bool
	CheckModelReady(ctx context.Context) bool
	GenerateText(ctx context.Context, prompt string) string
}

// RecordFunc is called after every exchange is remembered.
type RecordFunc func(ctx context.Context, ex memory.Exchange)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder registers fn to observe remembered exchanges.
func WithRecorder(fn RecordFunc) Option {
	return func(o *Orchestrator) { o.record = fn }
}

// WithKnowledge replaces the default knowledge base.
func WithKnowledge(kb *knowledge.Base) Option {
	return func(o *Orchestrator) { o.kb = kb }
}

// Orchestrator drives one chat session. Initialize, Respond and Reset are
// serialized so a session never runs two turns at once; Status and the
// read accessors may be called concurrently with them.
type Orchestrator struct {
	cfg       *config.Config
	gateway   Gateway
	formatter *format.Formatter
	kb        *knowledge.Base
	record    RecordFunc

	turn sync.Mutex // held for a whole Initialize/Respond/Reset

	mu    sync.RWMutex // guards state and mem
	state State
	mem   *memory.Conversation
}

// New creates an uninitialized Orchestrator. cfg is cloned; later changes to
// the caller's copy do not affect this orchestrator.
func New(cfg *config.Config, gw Gateway, opts ...Option) *Orchestrator {
	cfg = cfg.Clone()
	o := &Orchestrator{
		cfg:       cfg,
		gateway:   gw,
		formatter: format.New(cfg.Assistant.Name),
		mem:       memory.New(cfg.Memory.Capacity),
		state:     StateUninitialized,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.kb == nil {
		o.kb = knowledge.New()
	}
	return o
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// Initialize checks that the model server is up and the model installed.
// It may be called again after a failure; there are no automatic retries.
func (o *Orchestrator) Initialize(ctx context.Context) InitResult {
	o.turn.Lock()
	defer o.turn.Unlock()

	o.setState(StateInitializing)
	model := o.cfg.Ollama.Model

	if !o.gateway.CheckAlive(ctx) {
		o.setState(StateFailed)
		metrics.Initializations.WithLabelValues("unreachable").Inc()
		log.Warn().Str("url", o.cfg.Ollama.URL).Msg("INIT_FAILED_UNREACHABLE")
		return InitResult{Message: notRunningText}
	}

	if !o.gateway.CheckModelReady(ctx) {
		o.setState(StateFailed)
		metrics.Initializations.WithLabelValues("model_missing").Inc()
		log.Warn().Str("model", model).Msg("INIT_FAILED_MODEL_MISSING")
		return InitResult{
			GatewayReachable: true,
			Message:          fmt.Sprintf(modelMissingTextF, model, model),
		}
	}

	o.setState(StateReady)
	metrics.Initializations.WithLabelValues("ok").Inc()
	log.Info().Str("model", model).Int("memory_size", o.cfg.Memory.Capacity).Msg("INIT_OK")
	return InitResult{
		Success:          true,
		GatewayReachable: true,
		ModelReady:       true,
		Message:          initOKText,
		Model:            model,
		MemoryCapacity:   o.cfg.Memory.Capacity,
	}
}

// =============================================================================
// RESPONSE
// =============================================================================

// Respond produces the reply to one user message. It never fails: every
// problem is expressed as the returned text.
func (o *Orchestrator) Respond(ctx context.Context, text string) string {
	o.turn.Lock()
	defer o.turn.Unlock()

	if o.State() != StateReady {
		metrics.ResponsesTotal.WithLabelValues(metrics.SourceNotReady).Inc()
		return NotInitializedText
	}

	query := strings.TrimSpace(text)
	if query == "" {
		metrics.ResponsesTotal.WithLabelValues(metrics.SourceEmpty).Inc()
		return EmptyInputText
	}

	if answer, ok := o.kb.Search(text); ok {
		o.remember(ctx, text, answer)
		metrics.ResponsesTotal.WithLabelValues(metrics.SourceKnowledge).Inc()
		log.Debug().Msg("RESPOND_KNOWLEDGE")
		return answer
	}

	raw := o.gateway.GenerateText(ctx, o.buildPrompt(query))
	if raw == "" {
		metrics.ResponsesTotal.WithLabelValues(metrics.SourceFallback).Inc()
		log.Warn().Str("model", o.cfg.Ollama.Model).Msg("RESPOND_EMPTY")
		return NoResponseText
	}

	reply := o.formatter.FormatFinal(raw, text)
	o.remember(ctx, text, reply)
	metrics.ResponsesTotal.WithLabelValues(metrics.SourceModel).Inc()
	return reply
}

// buildPrompt prefixes query with recent exchanges, when there are any.
func (o *Orchestrator) buildPrompt(query string) string {
	o.mu.RLock()
	ctxText := o.mem.RecentContext(o.cfg.Response.ContextTurns)
	o.mu.RUnlock()

	if ctxText == "" {
		return query
	}
	return "Previous context:\n" + ctxText + "\n\nCurrent question: " + query
}

func (o *Orchestrator) remember(ctx context.Context, user, assistant string) {
	o.mu.Lock()
	ex := o.mem.Record(user, assistant)
	o.mu.Unlock()

	if o.record != nil {
		o.record(ctx, ex)
	}
}

// =============================================================================
// STATUS + CONTROLS
// =============================================================================

// Status probes the model server afresh. The model check runs only when the
// server answered. Status never changes the orchestrator's state.
func (o *Orchestrator) Status(ctx context.Context) Status {
	st := Status{
		Model:  o.cfg.Ollama.Model,
		Config: o.cfg.Summary(),
	}

	st.GatewayReachable = o.gateway.CheckAlive(ctx)
	if st.GatewayReachable {
		st.ModelReady = o.gateway.CheckModelReady(ctx)
	}

	o.mu.RLock()
	st.State = o.state
	st.Memory = o.mem.Stats()
	o.mu.RUnlock()

	st.Initialized = st.State == StateReady
	return st
}

// Reset forgets every exchange. The lifecycle state is unchanged.
func (o *Orchestrator) Reset() {
	o.turn.Lock()
	defer o.turn.Unlock()

	o.mu.Lock()
	o.mem.Clear()
	o.mu.Unlock()
	log.Debug().Msg("MEMORY_CLEARED")
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Exchanges returns a copy of the remembered exchanges, oldest first.
func (o *Orchestrator) Exchanges() []memory.Exchange {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mem.Exchanges()
}

// MemoryStats reports how full the conversation memory is.
func (o *Orchestrator) MemoryStats() memory.Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mem.Stats()
}

// Greeting returns a welcome line for a new session.
func (o *Orchestrator) Greeting() string {
	return o.kb.RandomGreeting()
}

// Config returns the orchestrator's private configuration copy.
// Callers must not modify it.
func (o *Orchestrator) Config() *config.Config {
	return o.cfg
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
