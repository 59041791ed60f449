// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/memory"
	"github.com/jeranaias/yukti/internal/pipeline"
	"github.com/jeranaias/yukti/internal/session"
	"github.com/jeranaias/yukti/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type stubGateway struct {
	alive bool
	ready bool
	delay time.Duration
}

func (g stubGateway) CheckAlive(context.Context) bool      { return g.alive }
func (g stubGateway) CheckModelReady(context.Context) bool { return g.ready }
func (g stubGateway) GenerateText(ctx context.Context, _ string) string {
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return ""
		}
	}
	return "model says hi"
}

type harness struct {
	srv      *Server
	sessions *session.Registry
	store    *storage.Store
}

func newHarness(t *testing.T, gw stubGateway, mutate func(*config.Config)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.Server.RateLimit = 0
	if mutate != nil {
		mutate(cfg)
	}

	store, err := storage.Open(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	factory := func(id string) *pipeline.Orchestrator {
		return pipeline.New(cfg, gw, pipeline.WithRecorder(func(ctx context.Context, ex memory.Exchange) {
			_ = store.Append(ctx, id, ex)
		}))
	}
	reg := session.NewRegistry(factory, time.Hour)

	return &harness{srv: New(cfg, reg, store), sessions: reg, store: store}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) createSession(t *testing.T) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func (h *harness) readySession(t *testing.T) string {
	t.Helper()
	id := h.createSession(t)
	rec := h.do(t, http.MethodPost, "/api/sessions/"+id+"/initialize", "")
	require.Equal(t, http.StatusOK, rec.Code)
	return id
}

// =============================================================================
// ENDPOINT TESTS
// =============================================================================

func TestHealth(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)

	rec := h.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, config.Version, body["version"])
}

func TestCreateSession_ReturnsGreeting(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)

	rec := h.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ID, "sess_"))
	assert.NotEmpty(t, resp.Greeting)
	assert.Equal(t, 1, h.sessions.Len())
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		gw          stubGateway
		wantSuccess bool
		wantHint    string
	}{
		{"ready", stubGateway{alive: true, ready: true}, true, ""},
		{"server down", stubGateway{}, false, "ollama serve"},
		{"model missing", stubGateway{alive: true}, false, "ollama pull"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.gw, nil)
			id := h.createSession(t)

			rec := h.do(t, http.MethodPost, "/api/sessions/"+id+"/initialize", "")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp initializeResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantSuccess, resp.Success)
			if tt.wantHint == "" {
				assert.Empty(t, resp.Hint)
			} else {
				assert.Contains(t, resp.Hint, tt.wantHint)
			}
		})
	}
}

func TestMessage_BeforeInitialize(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)
	id := h.createSession(t)

	rec := h.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", `{"message":"explain channels"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.NotInitializedText, resp.Response)
}

func TestMessage_ModelReplyAndHistory(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)
	id := h.readySession(t)

	rec := h.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", `{"message":"explain channels"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Response, "model says hi")

	rec = h.do(t, http.MethodGet, "/api/sessions/"+id+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var hist historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.Exchanges, 1)
	assert.Equal(t, "explain channels", hist.Exchanges[0].User)
	assert.Equal(t, 1, hist.Memory.Count)
}

func TestMessage_BadBody(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)
	id := h.readySession(t)

	rec := h.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Error.Code)
}

func TestMessage_BodyTooLarge(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, func(c *config.Config) {
		c.Server.MaxBodyBytes = 32
	})
	id := h.readySession(t)

	body := `{"message":"` + strings.Repeat("x", 100) + `"}`
	rec := h.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUnknownSession(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)

	for _, path := range []string{"/status", "/history"} {
		rec := h.do(t, http.MethodGet, "/api/sessions/nope"+path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := h.do(t, http.MethodDelete, "/api/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)
	id := h.readySession(t)

	rec := h.do(t, http.MethodGet, "/api/sessions/"+id+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, true, st["initialized"])
	assert.Equal(t, "ready", strings.ToLower(st["state"].(string)))
	assert.Equal(t, true, st["ollama_running"])
}

func TestResetAndDelete(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)
	id := h.readySession(t)
	h.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", `{"message":"explain maps"}`)

	rec := h.do(t, http.MethodPost, "/api/sessions/"+id+"/reset", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	sess, ok := h.sessions.Get(id)
	require.True(t, ok)
	assert.Empty(t, sess.Orchestrator().Exchanges())

	rec = h.do(t, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestExport(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)
	id := h.readySession(t)
	h.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", `{"message":"explain slices"}`)

	rec := h.do(t, http.MethodGet, "/api/sessions/"+id+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "explain slices")

	rec = h.do(t, http.MethodGet, "/api/sessions/"+id+"/export?format=json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tr storage.Transcript
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	assert.Equal(t, id, tr.SessionID)
	require.Len(t, tr.Exchanges, 1)

	rec = h.do(t, http.MethodGet, "/api/sessions/"+id+"/export?format=html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<!DOCTYPE html>")

	rec = h.do(t, http.MethodGet, "/api/sessions/"+id+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/sessions/unknown/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTranscripts_ListAndDelete(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)
	id := h.readySession(t)
	h.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", `{"message":"explain defer"}`)

	rec := h.do(t, http.MethodGet, "/api/transcripts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list transcriptList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Transcripts, 1)
	assert.Equal(t, id, list.Transcripts[0].ID)
	assert.Equal(t, 1, list.Transcripts[0].Exchanges)

	rec = h.do(t, http.MethodDelete, "/api/transcripts/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/transcripts/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)
	h.do(t, http.MethodGet, "/health", "")

	rec := h.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "yukti_http_requests_total")
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestRateLimit(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, func(c *config.Config) {
		c.Server.RateLimit = 1
		c.Server.RateBurst = 2
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, h.do(t, http.MethodGet, "/health", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	h := newHarness(t, stubGateway{}, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"https://app.example.com", "*.trusted.dev"}
	})

	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.example.com", "https://app.example.com"},
		{"https://ui.trusted.dev", "https://ui.trusted.dev"},
		{"https://evil.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		h.srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"), tt.origin)
	}
}

func TestRecovery(t *testing.T) {
	handler := Chain(RecoveryMiddleware())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecovery_AfterResponseStarted(t *testing.T) {
	handler := Chain(RecoveryMiddleware())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	handler := Chain(RecoveryMiddleware())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := Chain(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.9:1234", "", "203.0.113.9"},
		{"untrusted peer ignores header", "203.0.113.9:1234", "1.2.3.4", "203.0.113.9"},
		{"trusted proxy", "127.0.0.1:1234", "1.2.3.4, 10.0.0.1", "1.2.3.4"},
		{"trusted proxy bad header", "10.1.1.1:80", "garbage", "10.1.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

// =============================================================================
// WEBSOCKET TESTS
// =============================================================================

func TestWebSocketChat(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true}, nil)
	id := h.readySession(t)

	ts := httptest.NewServer(h.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameMessage, Text: "explain interfaces"}))
	var out Frame
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, FrameResponse, out.Type)
	assert.Contains(t, out.Text, "model says hi")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("explain goroutines")))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, FrameResponse, out.Type)

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameReset}))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, FrameReset, out.Type)

	require.NoError(t, conn.WriteJSON(Frame{Type: "bogus"}))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, FrameError, out.Type)
}

func TestWebSocketChat_SlowTurnKeepsSocketOpen(t *testing.T) {
	h := newHarness(t, stubGateway{alive: true, ready: true, delay: 300 * time.Millisecond}, nil)
	h.srv.pongWait = 100 * time.Millisecond
	id := h.readySession(t)

	ts := httptest.NewServer(h.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, msg := range []string{"explain interfaces", "explain channels"} {
		require.NoError(t, conn.WriteJSON(Frame{Type: FrameMessage, Text: msg}))
		var out Frame
		require.NoError(t, conn.ReadJSON(&out), msg)
		assert.Equal(t, FrameResponse, out.Type)
		assert.Contains(t, out.Text, "model says hi")
	}

	sess, ok := h.sessions.Get(id)
	require.True(t, ok)
	assert.True(t, sess.Attached(), "open socket should hold the session")

	conn.Close()
	assert.Eventually(t, func() bool { return !sess.Attached() }, 2*time.Second, 10*time.Millisecond)
}

func TestParseFrame(t *testing.T) {
	assert.Equal(t, Frame{Type: FrameMessage, Text: "hi"}, parseFrame([]byte("hi")))
	assert.Equal(t, Frame{Type: FrameMessage, Text: "hi"}, parseFrame([]byte(`{"text":"hi"}`)))
	assert.Equal(t, Frame{Type: FrameReset}, parseFrame([]byte(`{"type":"reset"}`)))
	assert.Equal(t, Frame{Type: FrameMessage, Text: "{oops"}, parseFrame([]byte("{oops")))
}
