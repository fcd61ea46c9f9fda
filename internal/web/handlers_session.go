package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/perceptlab/narration-survey/internal/core"
)

// maxRequestBody caps API request bodies; session and response payloads
// are tiny.
const maxRequestBody = 64 * 1024

// startSessionRequest is the body of POST /api/sessions.
type startSessionRequest struct {
	ParticipantID string `json:"participant_id"`
	SeedKey       string `json:"seed_key,omitempty"`
	TrialLimit    int    `json:"trial_limit,omitempty"`
}

// handleStartSession creates a new survey session.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "missing participant_id")
		return
	}

	info, err := s.service.StartSession(r.Context(), req.ParticipantID, req.SeedKey, req.TrialLimit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, info)
}

// handleSessionInfo returns the current state of a session.
func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session ID")
		return
	}

	info, err := s.service.Session(sessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, info)
}

// handleTrial returns one presentation step plus the current label bank.
func (s *Server) handleTrial(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session ID")
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trial index")
		return
	}

	trial, err := s.service.Trial(sessionID, index)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, trial)
}

// handleSubmitResponse records one trial answer and returns the updated
// label bank for the next trial.
func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var resp core.Response
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bank, err := s.service.SubmitResponse(r.Context(), sessionID, resp)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, map[string]any{"label_bank": bank})
}

// handleCompleteSession finalizes the session and forwards the results.
func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session ID")
		return
	}

	result, err := s.service.CompleteSession(r.Context(), sessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, result)
}

// handleExport serves the fallback CSV download for a session whose
// remote delivery failed.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session ID")
		return
	}

	data, fileName, err := s.service.ExportCSV(sessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.Write(data)
}
