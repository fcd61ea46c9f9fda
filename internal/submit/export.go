package submit

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// exportHeader is the column layout of the fallback CSV, one row per trial.
var exportHeader = []string{
	"participant_id",
	"session_id",
	"seed_key",
	"position",
	"narration_id",
	"selected_labels",
	"new_labels",
	"memory_rating",
	"responded_at",
	"completed_at",
}

// EncodeCSV renders the payload as CSV for the local download fallback.
// encoding/csv handles quoting, so values containing commas, quotes, or
// newlines round-trip intact.
func EncodeCSV(payload Payload) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}

	for _, trial := range payload.Trials {
		row := []string{
			payload.ParticipantID,
			payload.SessionID,
			payload.SeedKey,
			strconv.Itoa(trial.Position),
			trial.NarrationID,
			labelList(trial.SelectedLabels),
			labelList(trial.NewLabels),
			strconv.Itoa(trial.MemoryRating),
			trial.RespondedAt.UTC().Format(time.RFC3339),
			payload.CompletedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFileName builds the suggested download name for a session export.
func ExportFileName(sessionID string, completedAt time.Time) string {
	return "survey_" + sessionID + "_" + completedAt.UTC().Format("20060102T150405Z") + ".csv"
}
