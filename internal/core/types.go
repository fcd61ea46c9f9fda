// Package core provides the business logic for survey sessions.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"time"

	"github.com/perceptlab/narration-survey/internal/stimuli"
)

// SessionPhase indicates the lifecycle stage of a survey session.
type SessionPhase string

const (
	PhaseActive        SessionPhase = "active"
	PhaseComplete      SessionPhase = "complete"
	PhaseExportPending SessionPhase = "export_pending"
)

// SessionInfo is the public view of a session returned to the frontend.
type SessionInfo struct {
	ID            string       `json:"session_id"`
	ParticipantID string       `json:"participant_id"`
	Phase         SessionPhase `json:"phase"`
	TrialCount    int          `json:"trial_count"`
	Answered      int          `json:"answered"`
	StartedAt     time.Time    `json:"started_at"`
}

// TrialView is one presentation step: the record at a plan position plus
// the label bank as of that trial.
type TrialView struct {
	Index       int      `json:"index"`
	Total       int      `json:"total"`
	NarrationID string   `json:"narration_id"`
	Text        string   `json:"text"`
	LabelBank   []string `json:"label_bank"`
}

// Response is one participant answer for a single trial.
type Response struct {
	TrialIndex     int      `json:"trial_index"`
	SelectedLabels []string `json:"selected_labels"`
	NewLabels      []string `json:"new_labels"`
	MemoryRating   int      `json:"memory_rating"`
}

// answeredTrial pairs a response with the record it answered and the time
// it arrived.
type answeredTrial struct {
	record      stimuli.Record
	response    Response
	respondedAt time.Time
}

// CompletionResult reports how a finished session was persisted.
type CompletionResult struct {
	Delivered bool   `json:"delivered"`
	Fallback  bool   `json:"fallback"`
	Message   string `json:"message,omitempty"`
}
