// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics declares the Prometheus collectors yukti exports on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Response sources for ResponsesTotal.
const (
	SourceKnowledge = "knowledge"
	SourceModel     = "model"
	SourceFallback  = "fallback"
	SourceEmpty     = "empty_input"
	SourceNotReady  = "not_ready"
)

var (
	// GatewayRequests counts calls to the model server by endpoint and outcome.
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yukti_gateway_requests_total",
			Help: "Total number of requests sent to the model server",
		},
		[]string{"endpoint", "outcome"},
	)

	GenerationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yukti_generation_latency_seconds",
			Help:    "Latency of text generation calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	// ResponsesTotal counts completed Respond calls by where the reply came from.
	ResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yukti_responses_total",
			Help: "Total number of replies produced, by source",
		},
		[]string{"source"},
	)

	Initializations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yukti_initializations_total",
			Help: "Total number of orchestrator initializations, by result",
		},
		[]string{"result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yukti_active_sessions",
			Help: "Number of live chat sessions",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yukti_http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "yukti_http_request_duration_seconds",
			Help: "HTTP API request duration in seconds",
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
