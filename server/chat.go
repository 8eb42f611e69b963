package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/runner"
)

type chatRequest struct {
	Message string `json:"message"`
	// Model optionally switches the active model before the run, validated
	// against the registry.
	Model string `json:"model,omitempty"`
}

// handleChatStream runs one chat turn and streams its events as SSE. Each
// event is one "data: {json}\n\n" frame, flushed immediately. A client
// disconnect cancels the run; completed work is still persisted.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req chatRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errBadBody)
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, errMessageRequired)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errStreamingUnsupported)
		return
	}

	if req.Model != "" {
		if err := s.selectModel(req.Model); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	run, err := s.run.Start(r.Context(), sessionID, message)
	if err != nil {
		if errors.Is(err, runner.ErrSessionBusy) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for ev := range run.Events {
		payload, _ := json.Marshal(ev)
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client is gone; the request context cancels the run and the
			// channel drains via close.
			for range run.Events {
			}
			return
		}
		flusher.Flush()
	}
}

// handleChatWS runs one chat turn over a WebSocket, mirroring the SSE feed:
// the client sends a single chat request frame and receives each event as
// one text message. CloseRead turns a client disconnect into context
// cancellation for the run.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := r.Context()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.closeWS(ctx, conn, "invalid request body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.closeWS(ctx, conn, "Message is required")
		return
	}
	if req.Model != "" {
		if err := s.selectModel(req.Model); err != nil {
			s.closeWS(ctx, conn, err.Error())
			return
		}
	}

	runCtx := conn.CloseRead(ctx)
	run, err := s.run.Start(runCtx, sessionID, message)
	if err != nil {
		s.closeWS(ctx, conn, err.Error())
		return
	}

	for ev := range run.Events {
		payload, _ := json.Marshal(ev)
		if err := conn.Write(runCtx, websocket.MessageText, payload); err != nil {
			for range run.Events {
			}
			return
		}
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

// closeWS delivers one error event and closes the connection.
func (s *Server) closeWS(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(core.NewErrorEvent(msg))
	_ = conn.Write(ctx, websocket.MessageText, payload)
	_ = conn.Close(websocket.StatusNormalClosure, "")
}
