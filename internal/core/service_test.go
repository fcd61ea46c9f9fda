package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/perceptlab/narration-survey/internal/config"
	"github.com/perceptlab/narration-survey/internal/stimuli"
	"github.com/perceptlab/narration-survey/internal/submit"
)

const sampleCSV = "narration_id,narration_text\n" +
	"N1,A chef chops onions in a cramped kitchen\n" +
	"N2,Two kids race bikes down a gravel hill\n" +
	"N3,\"A crowd cheers as the bridge, lit at night, opens\"\n"

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		TrialLimit: 0,
		SeedKey:    "unit-test",
		IdleTTL:    time.Hour,
		RatingMin:  1,
		RatingMax:  7,
		LabelBank:  []string{"cooking", "outdoor"},
	}
}

// newTestService builds a Service over the sample table, forwarding to the
// given sink URL ("" means no endpoint, so completion always falls back).
func newTestService(t *testing.T, sinkURL string) *Service {
	t.Helper()

	table := stimuli.Decode(sampleCSV)
	forwarder := submit.NewForwarder(sinkURL, 5*time.Second, 0, time.Millisecond)

	svc, err := NewService(table, forwarder, testSessionConfig())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

// answerAll walks a session through every trial in order.
func answerAll(t *testing.T, svc *Service, sessionID string, trials int) {
	t.Helper()
	for i := 0; i < trials; i++ {
		_, err := svc.SubmitResponse(context.Background(), sessionID, Response{
			TrialIndex:     i,
			SelectedLabels: []string{"cooking"},
			MemoryRating:   4,
		})
		if err != nil {
			t.Fatalf("SubmitResponse(trial %d) error = %v", i, err)
		}
	}
}

func decodeJSONBody(t *testing.T, r *http.Request, v any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		t.Errorf("decode request body: %v", err)
	}
}

func TestNewService_RejectsEmptyTable(t *testing.T) {
	forwarder := submit.NewForwarder("", time.Second, 0, time.Millisecond)
	_, err := NewService(stimuli.Decode(""), forwarder, testSessionConfig())
	if err == nil {
		t.Fatal("NewService() accepted an empty table")
	}
}

func TestStartSession(t *testing.T) {
	svc := newTestService(t, "")

	info, err := svc.StartSession(context.Background(), "P01", "", 0)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	if info.TrialCount != 3 {
		t.Errorf("TrialCount = %d, want 3", info.TrialCount)
	}
	if info.Phase != PhaseActive {
		t.Errorf("Phase = %q, want %q", info.Phase, PhaseActive)
	}
	if info.ID == "" {
		t.Error("session ID is empty")
	}
}

func TestStartSession_SameKeySameOrder(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	a, _ := svc.StartSession(ctx, "P01", "shared-key", 0)
	b, _ := svc.StartSession(ctx, "P02", "shared-key", 0)

	for i := 0; i < a.TrialCount; i++ {
		ta, err := svc.Trial(a.ID, i)
		if err != nil {
			t.Fatalf("Trial(a, %d) error = %v", i, err)
		}
		tb, err := svc.Trial(b.ID, i)
		if err != nil {
			t.Fatalf("Trial(b, %d) error = %v", i, err)
		}
		if ta.NarrationID != tb.NarrationID {
			t.Errorf("trial %d: %q vs %q with the same key", i, ta.NarrationID, tb.NarrationID)
		}
	}
}

func TestStartSession_LimitCapsTrials(t *testing.T) {
	svc := newTestService(t, "")

	info, err := svc.StartSession(context.Background(), "P01", "", 2)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if info.TrialCount != 2 {
		t.Errorf("TrialCount = %d, want 2", info.TrialCount)
	}
}

func TestTrial(t *testing.T) {
	svc := newTestService(t, "")
	info, _ := svc.StartSession(context.Background(), "P01", "", 0)

	trial, err := svc.Trial(info.ID, 0)
	if err != nil {
		t.Fatalf("Trial() error = %v", err)
	}

	if trial.NarrationID == "" || trial.Text == "" {
		t.Errorf("trial = %+v, want populated record", trial)
	}
	if len(trial.LabelBank) != 2 {
		t.Errorf("LabelBank = %v, want the two seed labels", trial.LabelBank)
	}

	if _, err := svc.Trial(info.ID, 99); !errors.Is(err, ErrTrialOutOfRange) {
		t.Errorf("Trial(99) error = %v, want ErrTrialOutOfRange", err)
	}
	if _, err := svc.Trial("no-such-session", 0); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Trial(bad session) error = %v, want ErrSessionNotFound", err)
	}
}

func TestSubmitResponse_Validation(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()
	info, _ := svc.StartSession(ctx, "P01", "", 0)

	tests := []struct {
		name string
		resp Response
		want error
	}{
		{
			name: "rating below scale",
			resp: Response{TrialIndex: 0, MemoryRating: 0},
			want: ErrRatingOutOfRange,
		},
		{
			name: "rating above scale",
			resp: Response{TrialIndex: 0, MemoryRating: 8},
			want: ErrRatingOutOfRange,
		},
		{
			name: "trial out of order",
			resp: Response{TrialIndex: 1, MemoryRating: 4},
			want: ErrTrialOutOfOrder,
		},
		{
			name: "trial out of range",
			resp: Response{TrialIndex: 12, MemoryRating: 4},
			want: ErrTrialOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SubmitResponse(ctx, info.ID, tt.resp); !errors.Is(err, tt.want) {
				t.Errorf("SubmitResponse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubmitResponse_DuplicateTrialRejected(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()
	info, _ := svc.StartSession(ctx, "P01", "", 0)

	if _, err := svc.SubmitResponse(ctx, info.ID, Response{TrialIndex: 0, MemoryRating: 4}); err != nil {
		t.Fatalf("first response error = %v", err)
	}
	if _, err := svc.SubmitResponse(ctx, info.ID, Response{TrialIndex: 0, MemoryRating: 4}); !errors.Is(err, ErrTrialOutOfOrder) {
		t.Errorf("replayed response error = %v, want ErrTrialOutOfOrder", err)
	}
}

func TestSubmitResponse_GrowsLabelBank(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()
	info, _ := svc.StartSession(ctx, "P01", "", 0)

	bank, err := svc.SubmitResponse(ctx, info.ID, Response{
		TrialIndex:   0,
		NewLabels:    []string{"night scene", "cooking"},
		MemoryRating: 5,
	})
	if err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}

	if len(bank) != 3 {
		t.Fatalf("bank = %v, want seed labels plus one new", bank)
	}

	// The next trial must offer the accumulated bank.
	trial, err := svc.Trial(info.ID, 1)
	if err != nil {
		t.Fatalf("Trial(1) error = %v", err)
	}
	found := false
	for _, label := range trial.LabelBank {
		if label == "night scene" {
			found = true
		}
	}
	if !found {
		t.Errorf("trial 1 bank = %v, missing label added on trial 0", trial.LabelBank)
	}
}

func TestCompleteSession_Delivers(t *testing.T) {
	var got submit.Payload
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodeJSONBody(t, r, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer sink.Close()

	svc := newTestService(t, sink.URL)
	ctx := context.Background()
	info, _ := svc.StartSession(ctx, "P01", "", 0)
	answerAll(t, svc, info.ID, info.TrialCount)

	result, err := svc.CompleteSession(ctx, info.ID)
	if err != nil {
		t.Fatalf("CompleteSession() error = %v", err)
	}
	if !result.Delivered || result.Fallback {
		t.Errorf("result = %+v, want delivered", result)
	}

	if got.ParticipantID != "P01" || len(got.Trials) != 3 {
		t.Errorf("sink payload = %+v", got)
	}
	for i, trial := range got.Trials {
		if trial.Position != i {
			t.Errorf("trial %d has position %d", i, trial.Position)
		}
	}

	// A delivered session has nothing left to export.
	if _, _, err := svc.ExportCSV(info.ID); !errors.Is(err, ErrNotExportable) {
		t.Errorf("ExportCSV() error = %v, want ErrNotExportable", err)
	}

	// And cannot be completed twice.
	if _, err := svc.CompleteSession(ctx, info.ID); !errors.Is(err, ErrSessionComplete) {
		t.Errorf("second CompleteSession() error = %v, want ErrSessionComplete", err)
	}
}

func TestCompleteSession_FallsBackOnDeliveryFailure(t *testing.T) {
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer sink.Close()

	svc := newTestService(t, sink.URL)
	ctx := context.Background()
	info, _ := svc.StartSession(ctx, "P01", "", 0)
	answerAll(t, svc, info.ID, info.TrialCount)

	result, err := svc.CompleteSession(ctx, info.ID)
	if err != nil {
		t.Fatalf("CompleteSession() error = %v", err)
	}
	if result.Delivered || !result.Fallback {
		t.Errorf("result = %+v, want fallback", result)
	}

	data, fileName, err := svc.ExportCSV(info.ID)
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	if !strings.HasPrefix(fileName, "survey_"+info.ID) {
		t.Errorf("export file name = %q", fileName)
	}
	if !strings.Contains(string(data), "N1") {
		t.Errorf("export missing trial rows:\n%s", data)
	}
}

func TestCompleteSession_RequiresAllAnswers(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()
	info, _ := svc.StartSession(ctx, "P01", "", 0)
	answerAll(t, svc, info.ID, 1)

	if _, err := svc.CompleteSession(ctx, info.ID); !errors.Is(err, ErrSessionNotDone) {
		t.Errorf("CompleteSession() error = %v, want ErrSessionNotDone", err)
	}
}

func TestSubmitResponse_AfterExportPendingRejected(t *testing.T) {
	svc := newTestService(t, "") // no endpoint: completion falls back
	ctx := context.Background()
	info, _ := svc.StartSession(ctx, "P01", "", 0)
	answerAll(t, svc, info.ID, info.TrialCount)

	if _, err := svc.CompleteSession(ctx, info.ID); err != nil {
		t.Fatalf("CompleteSession() error = %v", err)
	}

	_, err := svc.SubmitResponse(ctx, info.ID, Response{TrialIndex: 3, MemoryRating: 4})
	if !errors.Is(err, ErrSessionComplete) {
		t.Errorf("SubmitResponse() after completion error = %v, want ErrSessionComplete", err)
	}
}

func TestEvictIdle(t *testing.T) {
	svc := newTestService(t, "")
	info, _ := svc.StartSession(context.Background(), "P01", "", 0)

	svc.evictIdle(time.Hour)
	if svc.SessionCount() != 1 {
		t.Fatal("fresh session evicted")
	}

	svc.evictIdle(0)
	if svc.SessionCount() != 0 {
		t.Error("stale session survived eviction")
	}

	if _, err := svc.Session(info.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Session() after eviction error = %v, want ErrSessionNotFound", err)
	}
}
