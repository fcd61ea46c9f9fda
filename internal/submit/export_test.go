package submit

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"
)

func samplePayload() Payload {
	started := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	return Payload{
		ParticipantID: "P07",
		SessionID:     "sess-123",
		SeedKey:       "pilot-a",
		StartedAt:     started,
		CompletedAt:   started.Add(11 * time.Minute),
		Trials: []TrialRow{
			{
				Position:       0,
				NarrationID:    "N1",
				SelectedLabels: []string{"cooking", "indoor"},
				NewLabels:      []string{"kitchen, cramped"},
				MemoryRating:   6,
				RespondedAt:    started.Add(2 * time.Minute),
			},
			{
				Position:       1,
				NarrationID:    "N2",
				SelectedLabels: nil,
				NewLabels:      nil,
				MemoryRating:   1,
				RespondedAt:    started.Add(5 * time.Minute),
			},
		},
	}
}

func TestEncodeCSV_RoundTrips(t *testing.T) {
	data, err := EncodeCSV(samplePayload())
	if err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("re-reading export: %v", err)
	}

	if len(rows) != 3 { // header + 2 trials
		t.Fatalf("export has %d rows, want 3", len(rows))
	}

	header := rows[0]
	if header[0] != "participant_id" || header[4] != "narration_id" {
		t.Errorf("unexpected header layout: %v", header)
	}

	first := rows[1]
	if first[0] != "P07" || first[4] != "N1" || first[7] != "6" {
		t.Errorf("first trial row = %v", first)
	}

	// The new label contains a comma; encoding/csv quoting must keep it
	// one cell.
	if first[6] != "kitchen, cramped" {
		t.Errorf("new_labels cell = %q, want %q", first[6], "kitchen, cramped")
	}

	second := rows[2]
	if second[5] != "" || second[6] != "" {
		t.Errorf("empty label lists should render as empty cells: %v", second)
	}
}

func TestEncodeCSV_MultipleLabelsJoined(t *testing.T) {
	payload := samplePayload()
	data, err := EncodeCSV(payload)
	if err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("re-reading export: %v", err)
	}
	if got, want := rows[1][5], "cooking; indoor"; got != want {
		t.Errorf("selected_labels cell = %q, want %q", got, want)
	}
}

func TestExportFileName(t *testing.T) {
	at := time.Date(2026, 3, 9, 14, 11, 0, 0, time.UTC)
	got := ExportFileName("sess-123", at)
	want := "survey_sess-123_20260309T141100Z.csv"
	if got != want {
		t.Errorf("ExportFileName() = %q, want %q", got, want)
	}
}
