// Package submit delivers completed survey sessions to the remote
// spreadsheet endpoint and renders the local CSV fallback used when
// delivery fails.
//
// The endpoint is an opaque JSON-accepting HTTP sink (typically a cloud
// script bound to a spreadsheet). This package owns all retry and fallback
// logic; the decode/sequence core performs no I/O.
package submit

import (
	"strings"
	"time"
)

// Payload is one completed session, serialized as a single JSON object.
type Payload struct {
	ParticipantID string     `json:"participant_id"`
	SessionID     string     `json:"session_id"`
	SeedKey       string     `json:"seed_key,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   time.Time  `json:"completed_at"`
	Trials        []TrialRow `json:"trials"`
}

// TrialRow is one answered trial within a session.
type TrialRow struct {
	Position       int       `json:"position"`
	NarrationID    string    `json:"narration_id"`
	SelectedLabels []string  `json:"selected_labels"`
	NewLabels      []string  `json:"new_labels"`
	MemoryRating   int       `json:"memory_rating"`
	RespondedAt    time.Time `json:"responded_at"`
}

// labelList joins labels for the flat CSV rendering. Semicolons keep the
// cell unambiguous since labels themselves may contain commas.
func labelList(labels []string) string {
	return strings.Join(labels, "; ")
}
