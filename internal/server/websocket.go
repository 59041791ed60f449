// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/yukti/internal/session"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
)

// Frame types.
const (
	FrameMessage  = "message"
	FrameResponse = "response"
	FrameReset    = "reset"
	FrameError    = "error"
)

// Frame is the JSON envelope used on the chat socket. Clients may also send
// bare text frames, which are treated as messages.
type Frame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			ok, _ := matchOrigin(s.cfg.Server.AllowedOrigins, origin)
			return ok
		},
	}
}

// handleWebSocket runs a chat loop for one session. Turns are handled one at
// a time in arrival order. The session stays attached, and so exempt from
// idle expiry, until the socket closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("WS_UPGRADE_FAILED")
		return
	}
	defer conn.Close()
	defer sess.Attach()()

	pongWait := s.pongWait
	conn.SetReadLimit(s.cfg.Server.MaxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := r.Context()
	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, pongWait*9/10, done)

	log.Debug().Str("session", sess.ID).Msg("WS_CONNECTED")

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session", sess.ID).Msg("WS_READ_FAILED")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		in := parseFrame(data)
		var out Frame
		switch in.Type {
		case FrameMessage:
			if len(in.Text) > MaxMessageLength {
				out = Frame{Type: FrameError, Text: "message too long"}
				break
			}
			out = Frame{Type: FrameResponse, Text: sess.Orchestrator().Respond(ctx, in.Text)}
		case FrameReset:
			sess.Orchestrator().Reset()
			out = Frame{Type: FrameReset}
		default:
			out = Frame{Type: FrameError, Text: "unknown frame type: " + in.Type}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(out); err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("WS_WRITE_FAILED")
			return
		}
		// Pongs are not read while a turn runs.
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// parseFrame decodes a JSON frame, falling back to a plain-text message.
func parseFrame(data []byte) Frame {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var f Frame
		if err := json.Unmarshal(data, &f); err == nil {
			if f.Type == "" {
				f.Type = FrameMessage
			}
			return f
		}
	}
	return Frame{Type: FrameMessage, Text: string(data)}
}

func pingLoop(conn *websocket.Conn, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
