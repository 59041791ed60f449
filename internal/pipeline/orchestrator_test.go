// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/gateway"
	"github.com/jeranaias/yukti/internal/knowledge"
	"github.com/jeranaias/yukti/internal/memory"
	"github.com/jeranaias/yukti/internal/ollama"
)

// =============================================================================
// FAKE GATEWAY
// =============================================================================

type fakeGateway struct {
	mu         sync.Mutex
	alive      bool
	modelReady bool
	reply      string
	prompts    []string
	aliveCalls int
	modelCalls int
}

func (f *fakeGateway) CheckAlive(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aliveCalls++
	return f.alive
}

func (f *fakeGateway) CheckModelReady(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modelCalls++
	return f.modelReady
}

func (f *fakeGateway) GenerateText(_ context.Context, prompt string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply
}

func (f *fakeGateway) generateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func healthy(reply string) *fakeGateway {
	return &fakeGateway{alive: true, modelReady: true, reply: reply}
}

func readyOrchestrator(t *testing.T, gw Gateway, opts ...Option) *Orchestrator {
	t.Helper()
	o := New(config.Default(), gw, opts...)
	res := o.Initialize(context.Background())
	require.True(t, res.Success, res.Message)
	return o
}

// =============================================================================
// INITIALIZE TESTS
// =============================================================================

func TestInitialize_Success(t *testing.T) {
	o := New(config.Default(), healthy("x"))
	assert.Equal(t, StateUninitialized, o.State())

	res := o.Initialize(context.Background())
	assert.Equal(t, InitResult{
		Success:          true,
		GatewayReachable: true,
		ModelReady:       true,
		Message:          "YuktiAI initialized successfully!",
		Model:            "llama3.2:3b",
		MemoryCapacity:   10,
	}, res)
	assert.Equal(t, StateReady, o.State())
	assert.Empty(t, SetupHint(res, "llama3.2:3b"))
}

func TestInitialize_ServerDown(t *testing.T) {
	gw := &fakeGateway{}
	o := New(config.Default(), gw)

	res := o.Initialize(context.Background())
	assert.False(t, res.Success)
	assert.False(t, res.GatewayReachable)
	assert.False(t, res.ModelReady)
	assert.Contains(t, res.Message, "ollama serve")
	assert.Equal(t, StateFailed, o.State())
	assert.Equal(t, 0, gw.modelCalls, "model check is skipped when the server is down")

	assert.Equal(t, NotInitializedText, o.Respond(context.Background(), "hello"))
	assert.Contains(t, SetupHint(res, "llama3.2:3b"), "https://ollama.com/download")
}

func TestInitialize_ModelMissing(t *testing.T) {
	o := New(config.Default(), &fakeGateway{alive: true})

	res := o.Initialize(context.Background())
	assert.False(t, res.Success)
	assert.True(t, res.GatewayReachable)
	assert.False(t, res.ModelReady)
	assert.Equal(t, "Model llama3.2:3b not available. Pull it with: ollama pull llama3.2:3b", res.Message)
	assert.Equal(t, StateFailed, o.State())
	assert.Equal(t, "Pull the model with: ollama pull llama3.2:3b", SetupHint(res, "llama3.2:3b"))
}

func TestInitialize_RetryAfterFailure(t *testing.T) {
	gw := &fakeGateway{}
	o := New(config.Default(), gw)
	o.Initialize(context.Background())
	require.Equal(t, StateFailed, o.State())

	gw.mu.Lock()
	gw.alive, gw.modelReady = true, true
	gw.mu.Unlock()

	assert.True(t, o.Initialize(context.Background()).Success)
	assert.Equal(t, StateReady, o.State())
}

// =============================================================================
// RESPOND TESTS
// =============================================================================

func TestRespond_BeforeInitialize(t *testing.T) {
	gw := healthy("x")
	o := New(config.Default(), gw)
	assert.Equal(t, NotInitializedText, o.Respond(context.Background(), "hello"))
	assert.Zero(t, gw.generateCalls())
}

func TestRespond_BlankInput(t *testing.T) {
	gw := healthy("x")
	o := readyOrchestrator(t, gw)

	for _, in := range []string{"", "   ", "\n\t"} {
		assert.Equal(t, EmptyInputText, o.Respond(context.Background(), in))
	}
	assert.Zero(t, o.MemoryStats().Count)
	assert.Zero(t, gw.generateCalls())
}

func TestRespond_KnowledgeHit(t *testing.T) {
	gw := healthy("should not be used")
	var recorded []memory.Exchange
	o := readyOrchestrator(t, gw, WithRecorder(func(_ context.Context, ex memory.Exchange) {
		recorded = append(recorded, ex)
	}))

	got := o.Respond(context.Background(), "what is yukti")
	assert.Equal(t, knowledge.AboutText, got)
	assert.Zero(t, gw.generateCalls())
	assert.Equal(t, 1, o.MemoryStats().Count)
	require.Len(t, recorded, 1)
	assert.Equal(t, "what is yukti", recorded[0].User)
}

func TestRespond_ModelReplyFormattedAndRecorded(t *testing.T) {
	gw := healthy("def add(a, b): return a + b")
	o := readyOrchestrator(t, gw)

	got := o.Respond(context.Background(), "write a function that adds")
	assert.Equal(t, "**Code Solution:**\n\ndef add(a, b): return a + b.", got)

	ex := o.Exchanges()
	require.Len(t, ex, 1)
	assert.Equal(t, "write a function that adds", ex[0].User)
	assert.Equal(t, got, ex[0].Assistant)
}

func TestRespond_PromptCarriesContext(t *testing.T) {
	gw := healthy("Sure")
	o := readyOrchestrator(t, gw)
	ctx := context.Background()

	o.Respond(ctx, "  first  ")
	o.Respond(ctx, "second")
	o.Respond(ctx, "third")

	gw.mu.Lock()
	prompts := append([]string(nil), gw.prompts...)
	gw.mu.Unlock()

	require.Len(t, prompts, 3)
	assert.Equal(t, "first", prompts[0], "no context on the first turn; input is trimmed")
	assert.Equal(t, "Previous context:\nPrevious Q:   first  \nPrevious A: Sure....\n\nCurrent question: second", prompts[1])
	assert.True(t, strings.HasPrefix(prompts[2], "Previous context:\nPrevious Q:   first  \n"))
	assert.True(t, strings.HasSuffix(prompts[2], "\n\nCurrent question: third"))
}

func TestRespond_ContextTurnsConfigurable(t *testing.T) {
	cfg := config.Default()
	cfg.Response.ContextTurns = 0
	gw := healthy("ok")
	o := New(cfg, gw)
	require.True(t, o.Initialize(context.Background()).Success)

	o.Respond(context.Background(), "one")
	o.Respond(context.Background(), "two")

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Equal(t, "two", gw.prompts[1])
}

func TestRespond_EmptyModelReply(t *testing.T) {
	o := readyOrchestrator(t, healthy(""))

	assert.Equal(t, NoResponseText, o.Respond(context.Background(), "hello"))
	assert.Zero(t, o.MemoryStats().Count)
}

func TestRespond_MemoryBounded(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.Capacity = 3
	o := New(cfg, healthy("ok"))
	require.True(t, o.Initialize(context.Background()).Success)

	for i := 0; i < 5; i++ {
		o.Respond(context.Background(), "hi")
	}
	assert.Equal(t, memory.Stats{Count: 3, Capacity: 3, UtilizationPercent: 100}, o.MemoryStats())
}

// A stalled model server produces the fail-soft sentence, which is then
// formatted and remembered like any other reply.
func TestRespond_GenerationTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			json.NewEncoder(w).Encode(ollama.ListModelsResponse{Models: []ollama.ModelInfo{{Name: "llama3.2:3b"}}})
		case "/api/generate":
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}
	}))
	defer srv.Close()

	gw := gateway.New(ollama.NewClient(&ollama.ClientConfig{BaseURL: srv.URL}), gateway.Options{
		Model:           "llama3.2:3b",
		GenerateTimeout: 50 * time.Millisecond,
	})
	o := readyOrchestrator(t, gw)

	got := o.Respond(context.Background(), "tell me a story")
	assert.True(t, strings.HasPrefix(got, "Sorry, I encountered an error: "), got)
	assert.True(t, strings.HasSuffix(got, "."))

	ex := o.Exchanges()
	require.Len(t, ex, 1)
	assert.Equal(t, got, ex[0].Assistant)
}

// =============================================================================
// STATUS + RESET TESTS
// =============================================================================

func TestStatus_ReprobesWithoutChangingState(t *testing.T) {
	gw := healthy("ok")
	o := readyOrchestrator(t, gw)
	o.Respond(context.Background(), "hi")

	gw.mu.Lock()
	gw.alive = false
	gw.mu.Unlock()

	st := o.Status(context.Background())
	assert.True(t, st.Initialized)
	assert.Equal(t, StateReady, st.State)
	assert.False(t, st.GatewayReachable)
	assert.False(t, st.ModelReady)
	assert.Equal(t, 1, st.Memory.Count)
	assert.Equal(t, "llama3.2:3b", st.Config.OllamaModel)
	assert.Equal(t, StateReady, o.State())

	gw.mu.Lock()
	assert.Equal(t, 1, gw.modelCalls, "model check skipped when server is down")
	gw.mu.Unlock()
}

func TestStatus_JSONUsesStateName(t *testing.T) {
	o := New(config.Default(), &fakeGateway{})
	data, err := json.Marshal(o.Status(context.Background()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"uninitialized"`)
}

func TestReset(t *testing.T) {
	o := readyOrchestrator(t, healthy("ok"))
	o.Respond(context.Background(), "hi")
	require.Equal(t, 1, o.MemoryStats().Count)

	o.Reset()
	assert.Zero(t, o.MemoryStats().Count)
	assert.Equal(t, StateReady, o.State())
}

func TestNew_ClonesConfig(t *testing.T) {
	cfg := config.Default()
	o := New(cfg, healthy("ok"))
	cfg.Ollama.Model = "changed"
	assert.Equal(t, "llama3.2:3b", o.Config().Ollama.Model)
}

func TestGreeting(t *testing.T) {
	o := New(config.Default(), healthy("ok"))
	assert.Contains(t, knowledge.Greetings, o.Greeting())
}

func TestRespond_Concurrent(t *testing.T) {
	o := readyOrchestrator(t, healthy("ok"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Respond(context.Background(), "hi")
			o.Status(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, o.MemoryStats().Count)
}
