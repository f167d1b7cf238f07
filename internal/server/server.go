// Package server exposes the session collection and turn submission over
// HTTP. It is a thin boundary: all behavior lives in turn, reconcile and
// stream.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gemchat/gemchat-go/internal/chat"
	"github.com/gemchat/gemchat-go/internal/logger"
	"github.com/gemchat/gemchat-go/internal/reconcile"
	"github.com/gemchat/gemchat-go/internal/store"
	"github.com/gemchat/gemchat-go/internal/stream"
	"github.com/gemchat/gemchat-go/internal/turn"
)

// Server handles the HTTP surface of the chat service.
type Server struct {
	store  *store.Store
	runner *turn.Runner
}

// New creates a server.
func New(st *store.Store, runner *turn.Runner) *Server {
	return &Server{store: st, runner: runner}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /sessions/{id}/messages", s.handleSendTurn)
	return mux
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Sessions())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.runner.NewChat()
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.runner.DeleteChat(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

type sendTurnRequest struct {
	Text  string           `json:"text"`
	Image *chat.InlineData `json:"image,omitempty"`
}

func (s *Server) handleSendTurn(w http.ResponseWriter, r *http.Request) {
	var req sendTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Media precedes text in display order, matching the composer.
	var parts []chat.Part
	if req.Image != nil {
		parts = append(parts, chat.MediaPart(req.Image.MimeType, req.Image.Data))
	}
	if req.Text != "" {
		parts = append(parts, chat.TextPart(req.Text))
	}

	reply, err := s.runner.Send(r.Context(), r.PathValue("id"), parts)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reply)
	case errors.Is(err, turn.ErrEmptyTurn):
		http.Error(w, "empty turn", http.StatusBadRequest)
	case errors.Is(err, reconcile.ErrUnknownSession):
		http.Error(w, "unknown session", http.StatusNotFound)
	case errors.Is(err, reconcile.ErrTurnInFlight):
		http.Error(w, "turn already in flight", http.StatusConflict)
	default:
		var streamErr *stream.StreamError
		if errors.As(err, &streamErr) {
			http.Error(w, "model exchange failed", http.StatusBadGateway)
			return
		}
		logger.L.Error("send turn failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Warn("response encode error", "error", err)
	}
}
