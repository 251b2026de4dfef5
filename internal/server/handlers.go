package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/stats"
)

type errorBody struct {
	Error string `json:"error"`
}

type personBody struct {
	User    string      `json:"user"`
	Stats   counterBody `json:"stats"`
	Message string      `json:"message,omitempty"`
}

type counterBody struct {
	Win  uint64 `json:"win"`
	Loss uint64 `json:"loss"`
	Draw uint64 `json:"draw"`
}

func newPersonBody(r stats.Record, message string) personBody {
	return personBody{
		User:    r.User,
		Stats:   counterBody{Win: r.Win, Loss: r.Loss, Draw: r.Draw},
		Message: message,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case errors.Is(err, stats.ErrNotFound):
		msg = "User not found"
	case stats.IsUnreachable(err):
		msg = "Database not available"
	case status == http.StatusInternalServerError:
		s.logger.Error("Request failed", "error", err)
		msg = "internal error"
	}
	s.writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, stats.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoRound), errors.Is(err, game.ErrRoundResolved), errors.Is(err, game.ErrNotPlayerTurn):
		return http.StatusConflict
	case stats.IsUnreachable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer sess.Unlock()

	s.writeJSON(w, http.StatusOK, s.game.StartOrResumeRound(r.Context(), sess))
}

func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer sess.Unlock()

	view, outcome, err := s.game.Hit(r.Context(), sess)
	switch {
	case err != nil:
		s.writeError(w, err)
	case outcome != nil:
		s.writeJSON(w, http.StatusOK, outcome)
	default:
		s.writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleStand(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer sess.Unlock()

	outcome, err := s.game.Stand(r.Context(), sess)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer sess.Unlock()

	s.game.ResetRound(sess)
	s.writeJSON(w, http.StatusOK, s.game.StartOrResumeRound(r.Context(), sess))
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer sess.Unlock()

	if err := s.game.ResetStats(r.Context(), sess); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.game.StartOrResumeRound(r.Context(), sess))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.game.HealthCheck(r.Context())
	status := http.StatusOK
	if h.Status != HealthOK {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, h)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.game.Counters().WriteText(w, s.sessions.Len()); err != nil {
		s.logger.Debug("Failed to write stats", "error", err)
	}
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	var received any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&received); err != nil {
		s.logger.Warn("Echo request rejected", "error", err)
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	s.logger.Info("Echo", "received", received)
	s.writeJSON(w, http.StatusOK, map[string]any{"received": received})
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	rec, err := s.game.GetRecord(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newPersonBody(rec, ""))
}

func (s *Server) handlePutPerson(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	rec, err := s.game.PutRecord(r.Context(), r.PathValue("name"), body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newPersonBody(rec, "Stats updated"))
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.game.DeleteRecord(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted", "user": name})
}
