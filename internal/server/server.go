// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/export"
	"github.com/jeranaias/yukti/internal/memory"
	"github.com/jeranaias/yukti/internal/metrics"
	"github.com/jeranaias/yukti/internal/pipeline"
	"github.com/jeranaias/yukti/internal/session"
	"github.com/jeranaias/yukti/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxMessageLength bounds a single chat message in bytes.
	MaxMessageLength = 16 << 10

	// writeTimeout covers a full model turn.
	readTimeout  = 30 * time.Second
	writeTimeout = 120 * time.Second
	idleTimeout  = 120 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP front end over a session registry.
type Server struct {
	cfg      *config.Config
	sessions *session.Registry
	store    *storage.Store // nil when transcripts are disabled
	limiter  *RateLimiter
	router   *http.ServeMux
	handler  http.Handler
	httpSrv  *http.Server
	pongWait time.Duration
}

// New builds a server. store may be nil.
func New(cfg *config.Config, sessions *session.Registry, store *storage.Store) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		store:    store,
		router:   http.NewServeMux(),
		pongWait: wsPongWait,
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}
	s.setupRoutes()
	s.handler = Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(),
		CORSMiddleware(cfg.Server.AllowedOrigins),
		RateLimitMiddleware(s.limiter),
		BodyLimitMiddleware(cfg.Server.MaxBodyBytes),
	)(s.router)
	s.httpSrv = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", metrics.Handler())

	s.router.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.router.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	s.router.HandleFunc("POST /api/sessions/{id}/initialize", s.withSession(s.handleInitialize))
	s.router.HandleFunc("POST /api/sessions/{id}/messages", s.withSession(s.handleMessage))
	s.router.HandleFunc("GET /api/sessions/{id}/status", s.withSession(s.handleStatus))
	s.router.HandleFunc("POST /api/sessions/{id}/reset", s.withSession(s.handleReset))
	s.router.HandleFunc("GET /api/sessions/{id}/history", s.withSession(s.handleHistory))
	s.router.HandleFunc("GET /api/sessions/{id}/export", s.handleExport)
	s.router.HandleFunc("GET /api/sessions/{id}/ws", s.withSession(s.handleWebSocket))

	s.router.HandleFunc("GET /api/transcripts", s.handleListTranscripts)
	s.router.HandleFunc("DELETE /api/transcripts/{id}", s.handleDeleteTranscript)
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe blocks serving on the configured address until Shutdown.
func (s *Server) ListenAndServe() error {
	log.Info().
		Str("addr", s.cfg.Server.Addr).
		Str("model", s.cfg.Ollama.Model).
		Bool("transcripts", s.store != nil).
		Msg("SERVER_START")

	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// PruneLimiter drops idle rate-limit buckets until ctx is done.
func (s *Server) PruneLimiter(ctx context.Context, interval time.Duration) {
	if s.limiter == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Prune()
		}
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("SERVER_SHUTDOWN")
	return s.httpSrv.Shutdown(ctx)
}

// ============================================================================
// HANDLERS
// ============================================================================

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves {id} and answers 404 for unknown or expired sessions.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  config.Version,
		"sessions": s.sessions.Len(),
	})
}

type createSessionResponse struct {
	ID       string `json:"id"`
	Greeting string `json:"greeting"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, createSessionResponse{
		ID:       sess.ID,
		Greeting: sess.Orchestrator().Greeting(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type initializeResponse struct {
	pipeline.InitResult
	Hint string `json:"hint,omitempty"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	orch := sess.Orchestrator()
	res := orch.Initialize(r.Context())
	writeJSON(w, http.StatusOK, initializeResponse{
		InitResult: res,
		Hint:       pipeline.SetupHint(res, orch.Config().Ollama.Model),
	})
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Message) > MaxMessageLength {
		writeError(w, http.StatusRequestEntityTooLarge, "message too long")
		return
	}

	reply := sess.Orchestrator().Respond(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, messageResponse{Response: reply})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Orchestrator().Status(r.Context()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Orchestrator().Reset()
	w.WriteHeader(http.StatusNoContent)
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	Exchanges []memory.Exchange `json:"exchanges"`
	Memory    memory.Stats      `json:"memory"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	orch := sess.Orchestrator()
	exchanges := orch.Exchanges()
	if exchanges == nil {
		exchanges = []memory.Exchange{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		SessionID: sess.ID,
		Exchanges: exchanges,
		Memory:    orch.MemoryStats(),
	})
}

// handleExport serves the stored transcript. It does not require a live
// session, so transcripts of expired sessions stay downloadable.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "transcript storage is disabled")
		return
	}

	id := r.PathValue("id")
	t, err := s.store.Transcript(r.Context(), id)
	if errors.Is(err, storage.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "no transcript for session")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("TRANSCRIPT_LOAD_FAILED")
		writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	t.Assistant = s.cfg.Assistant.Name

	exp, err := export.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := exp.Export(t)
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("TRANSCRIPT_EXPORT_FAILED")
		writeError(w, http.StatusInternalServerError, "failed to export transcript")
		return
	}
	w.Header().Set("Content-Type", exp.MimeType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+exp.FileExtension()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type transcriptList struct {
	Transcripts []storage.SessionMeta `json:"transcripts"`
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, transcriptList{Transcripts: []storage.SessionMeta{}})
		return
	}
	metas, err := s.store.Sessions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("TRANSCRIPT_LIST_FAILED")
		writeError(w, http.StatusInternalServerError, "failed to list transcripts")
		return
	}
	if metas == nil {
		metas = []storage.SessionMeta{}
	}
	writeJSON(w, http.StatusOK, transcriptList{Transcripts: metas})
}

func (s *Server) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "transcript storage is disabled")
		return
	}
	id := r.PathValue("id")
	err := s.store.DeleteSession(r.Context(), id)
	if errors.Is(err, storage.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "no transcript for session")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("TRANSCRIPT_DELETE_FAILED")
		writeError(w, http.StatusInternalServerError, "failed to delete transcript")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// RESPONSE HELPERS
// ============================================================================

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("RESPONSE_ENCODE_FAILED")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	errType := "invalid_request_error"
	if status >= 500 {
		errType = "server_error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{
		Message: message,
		Type:    errType,
		Code:    status,
	}})
}
