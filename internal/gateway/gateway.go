// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway is the fail-soft face of the model server. It turns every
// transport, status and decoding failure of internal/ollama into either a
// false probe result or a canned, user-displayable sentence. Nothing in this
// package returns an error.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/metrics"
	"github.com/jeranaias/yukti/internal/ollama"
)

// Canned replies returned in place of generated text.
const (
	// BadResponseText is returned when the server answers with a non-2xx status
	// or a body that cannot be decoded.
	BadResponseText = "Sorry, I encountered an error while generating the response."

	// transportPrefix precedes the cause when the request never completed.
	transportPrefix = "Sorry, I encountered an error: "
)

// Default timeouts for the two kinds of call.
const (
	DefaultProbeTimeout    = 5 * time.Second
	DefaultGenerateTimeout = 60 * time.Second
)

// Result is the outcome of a generation call. Text is always safe to show to
// the user: the model's trimmed reply when OK, a canned sentence otherwise.
type Result struct {
	OK   bool
	Text string
}

// Options configure a Gateway.
type Options struct {
	Model           string
	SystemPrompt    string
	Temperature     float64
	MaxTokens       int
	ProbeTimeout    time.Duration
	GenerateTimeout time.Duration
}

// Gateway wraps an ollama.Client with fixed model and sampling settings.
type Gateway struct {
	client *ollama.Client
	opts   Options
}

// New creates a Gateway. Zero timeouts take the package defaults.
func New(client *ollama.Client, opts Options) *Gateway {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}
	return &Gateway{client: client, opts: opts}
}

// FromConfig builds a Gateway and its client from cfg.
func FromConfig(cfg *config.Config) *Gateway {
	client := ollama.NewClient(&ollama.ClientConfig{BaseURL: cfg.Ollama.URL})
	return New(client, Options{
		Model:           cfg.Ollama.Model,
		SystemPrompt:    cfg.Assistant.SystemPrompt,
		Temperature:     cfg.Response.Temperature,
		MaxTokens:       cfg.Response.MaxLength,
		ProbeTimeout:    cfg.ProbeTimeout(),
		GenerateTimeout: cfg.GenerateTimeout(),
	})
}

// Model returns the configured model name.
func (g *Gateway) Model() string {
	return g.opts.Model
}

// Client exposes the underlying transport for read-only listings.
func (g *Gateway) Client() *ollama.Client {
	return g.client
}

// =============================================================================
// PROBES
// =============================================================================

// CheckAlive reports whether the model server answers its listing endpoint.
func (g *Gateway) CheckAlive(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, g.opts.ProbeTimeout)
	defer cancel()

	if err := g.client.CheckRunning(ctx); err != nil {
		g.fail("tags", err).Str("url", g.client.BaseURL()).Msg("GATEWAY_UNREACHABLE")
		return false
	}
	metrics.GatewayRequests.WithLabelValues("tags", "ok").Inc()
	return true
}

// CheckModelReady reports whether the configured model is installed, by
// exact name match.
func (g *Gateway) CheckModelReady(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, g.opts.ProbeTimeout)
	defer cancel()

	ok, err := g.client.HasModel(ctx, g.opts.Model)
	if err != nil {
		g.fail("tags", err).Str("model", g.opts.Model).Msg("MODEL_CHECK_FAILED")
		return false
	}
	metrics.GatewayRequests.WithLabelValues("tags", "ok").Inc()
	if !ok {
		log.Warn().Str("model", g.opts.Model).Msg("MODEL_NOT_INSTALLED")
	}
	return ok
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate sends one prompt and waits for the full reply. It makes a single
// attempt; there are no retries.
func (g *Gateway) Generate(ctx context.Context, prompt string) Result {
	ctx, cancel := context.WithTimeout(ctx, g.opts.GenerateTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Generate(ctx, ollama.GenerateRequest{
		Model:  g.opts.Model,
		Prompt: prompt,
		System: g.opts.SystemPrompt,
		Options: &ollama.Options{
			Temperature: g.opts.Temperature,
			NumPredict:  g.opts.MaxTokens,
		},
	})
	elapsed := time.Since(start)
	metrics.GenerationLatency.Observe(elapsed.Seconds())

	if err != nil {
		g.fail("generate", err).Str("model", g.opts.Model).Dur("elapsed", elapsed).Msg("GENERATE_FAILED")
		return Result{Text: fallbackText(err)}
	}

	metrics.GatewayRequests.WithLabelValues("generate", "ok").Inc()
	log.Debug().
		Str("model", g.opts.Model).
		Dur("elapsed", elapsed).
		Int("eval_count", resp.EvalCount).
		Float64("tokens_per_sec", resp.TokensPerSecond()).
		Msg("GENERATE_OK")

	return Result{OK: true, Text: strings.TrimSpace(resp.Response)}
}

// GenerateText is Generate without the OK flag.
func (g *Gateway) GenerateText(ctx context.Context, prompt string) string {
	return g.Generate(ctx, prompt).Text
}

// =============================================================================
// HELPERS
// =============================================================================

// fallbackText picks the canned sentence for a failed generation. A reply
// that arrived but was unusable gets the generic sentence; a request that
// never completed names its cause.
func fallbackText(err error) string {
	var ce *ollama.ClientError
	if asClientError(err, &ce) {
		switch ce.Type {
		case ollama.ErrTypeBadStatus, ollama.ErrTypeInvalidResponse, ollama.ErrTypeModelNotFound:
			return BadResponseText
		}
	}
	return transportPrefix + err.Error()
}
