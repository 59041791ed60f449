// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/yukti/internal/metrics"
	"github.com/jeranaias/yukti/internal/ollama"
)

// fail counts a failed call and starts a warn event carrying the cause.
func (g *Gateway) fail(endpoint string, err error) *zerolog.Event {
	kind := ollama.ErrTypeUnknown
	var ce *ollama.ClientError
	if asClientError(err, &ce) {
		kind = ce.Type
	}
	metrics.GatewayRequests.WithLabelValues(endpoint, kind.String()).Inc()
	return log.Warn().Err(err).Str("kind", kind.String())
}

func asClientError(err error, target **ollama.ClientError) bool {
	return errors.As(err, target)
}
