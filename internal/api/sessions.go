package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/deskchat/internal/session"
	"github.com/MikeSquared-Agency/deskchat/internal/sheets"
	"github.com/MikeSquared-Agency/deskchat/internal/synth"
)

type askRequest struct {
	Query string `json:"query"`
}

type askResponse struct {
	Turn    *synth.Turn       `json:"turn"`
	Session *session.Snapshot `json:"session"`
}

type sheetRequest struct {
	URL string `json:"url"`
}

type policyRequest struct {
	Policy string `json:"policy"`
}

// createSession handles POST /api/v1/sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, s.sessions.Create())
}

// getSession handles GET /api/v1/sessions/{id}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// deleteSession handles DELETE /api/v1/sessions/{id}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ask handles POST /api/v1/sessions/{id}/messages
func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// A client that goes away mid-answer must not turn into a provider
	// failure in the transcript; the answer is still recorded.
	turn, err := s.sessions.Ask(context.WithoutCancel(r.Context()), id, req.Query)
	if err != nil && !errors.Is(err, synth.ErrProviderFailure) {
		writeSessionError(w, err)
		return
	}

	snap, getErr := s.sessions.Get(id)
	if getErr != nil {
		writeSessionError(w, getErr)
		return
	}

	code := http.StatusOK
	if err != nil {
		// The raw provider error stays in the logs; the transcript only gets
		// the generic apology turn.
		code = http.StatusBadGateway
	}
	writeJSON(w, code, askResponse{Turn: turn, Session: snap})
}

// resetMessages handles DELETE /api/v1/sessions/{id}/messages
func (s *Server) resetMessages(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Reset(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// connectSheet handles PUT /api/v1/sessions/{id}/sheet
func (s *Server) connectSheet(w http.ResponseWriter, r *http.Request) {
	var req sheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	snap, err := s.sessions.ConnectSheet(context.WithoutCancel(r.Context()), chi.URLParam(r, "id"), req.URL)
	if err != nil {
		var ie *sheets.ImportError
		if errors.As(err, &ie) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   ie.UserMessage(),
				"session": snap,
			})
			return
		}
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// disconnectSheet handles DELETE /api/v1/sessions/{id}/sheet
func (s *Server) disconnectSheet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.DisconnectSheet(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// setPolicy handles PUT /api/v1/sessions/{id}/policy
func (s *Server) setPolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	snap, err := s.sessions.SetPolicy(chi.URLParam(r, "id"), req.Policy)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
