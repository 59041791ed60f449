// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResponsesTotal_Increments(t *testing.T) {
	before := testutil.ToFloat64(ResponsesTotal.WithLabelValues(SourceKnowledge))
	ResponsesTotal.WithLabelValues(SourceKnowledge).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ResponsesTotal.WithLabelValues(SourceKnowledge)))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	GatewayRequests.WithLabelValues("tags", "ok").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "yukti_gateway_requests_total")
}
