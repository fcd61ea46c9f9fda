package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/perceptlab/narration-survey/internal/config"
	"github.com/perceptlab/narration-survey/internal/logging"
	"github.com/perceptlab/narration-survey/internal/session"
	"github.com/perceptlab/narration-survey/internal/stimuli"
	"github.com/perceptlab/narration-survey/internal/submit"
)

// Sentinel errors surfaced to the web layer. MapError translates them to
// user-facing messages with support codes.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionComplete  = errors.New("session already complete")
	ErrSessionNotDone   = errors.New("session has unanswered trials")
	ErrTrialOutOfRange  = errors.New("trial index out of range")
	ErrTrialOutOfOrder  = errors.New("trial answered out of order")
	ErrRatingOutOfRange = errors.New("memory rating out of range")
	ErrNotExportable    = errors.New("session has no export pending")
)

// Service owns the decoded stimulus table and the in-memory session
// registry. The table is produced once at construction and never mutated;
// each session holds its own plan and response log.
type Service struct {
	table     stimuli.Table
	forwarder *submit.Forwarder
	cfg       config.SessionConfig

	mu       sync.RWMutex
	sessions map[string]*activeSession
}

type activeSession struct {
	info      SessionInfo
	seedKey   string
	plan      []stimuli.Record
	answered  []answeredTrial
	bank      LabelBank
	payload   *submit.Payload // set once the session completes
	touchedAt time.Time
}

// NewService creates a Service over an already-decoded table. An empty
// table is rejected here so the server fails fast on a bad stimulus file
// instead of handing every participant an empty survey.
func NewService(table stimuli.Table, forwarder *submit.Forwarder, cfg config.SessionConfig) (*Service, error) {
	if table.IsEmpty() {
		return nil, fmt.Errorf("stimulus table is empty: check the narration file and its id/text columns")
	}

	return &Service{
		table:     table,
		forwarder: forwarder,
		cfg:       cfg,
		sessions:  make(map[string]*activeSession),
	}, nil
}

// TableSize returns the number of decoded narration records.
func (s *Service) TableSize() int {
	return s.table.Len()
}

// StartSession creates a session for a participant and builds its plan.
//
// seedKey overrides the configured default sequencing key; pass "" to use
// the default. limit overrides the configured trial limit when positive;
// zero or negative falls back to the configured value (0 = every record).
func (s *Service) StartSession(ctx context.Context, participantID, seedKey string, limit int) (SessionInfo, error) {
	if seedKey == "" {
		seedKey = s.cfg.SeedKey
	}
	if limit <= 0 {
		limit = s.cfg.TrialLimit
	}

	plan := session.Plan(s.table.Records, limit, seedKey)

	now := time.Now()
	sess := &activeSession{
		info: SessionInfo{
			ID:            uuid.NewString(),
			ParticipantID: participantID,
			Phase:         PhaseActive,
			TrialCount:    len(plan),
			StartedAt:     now,
		},
		seedKey:   seedKey,
		plan:      plan,
		bank:      NewLabelBank(s.cfg.LabelBank),
		touchedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.info.ID] = sess
	s.mu.Unlock()

	logging.WithFields(ctx,
		"session_id", sess.info.ID,
		"participant_id", participantID,
	).Info("session started", "trials", len(plan), "seeded", seedKey != "")

	return sess.info, nil
}

// Session returns the public view of a session.
func (s *Service) Session(sessionID string) (SessionInfo, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return SessionInfo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return sess.info, nil
}

// Trial returns the presentation step at index along with the label bank
// as accumulated so far.
func (s *Service) Trial(sessionID string, index int) (TrialView, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return TrialView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(sess.plan) {
		return TrialView{}, fmt.Errorf("trial %d: %w", index, ErrTrialOutOfRange)
	}
	sess.touchedAt = time.Now()

	rec := sess.plan[index]
	return TrialView{
		Index:       index,
		Total:       len(sess.plan),
		NarrationID: rec.ID,
		Text:        rec.Text,
		LabelBank:   sess.bank.Labels(),
	}, nil
}

// SubmitResponse records one trial answer. Trials must be answered in plan
// order, exactly once each. New labels are folded into the session's label
// bank and the updated bank is returned for the next trial.
func (s *Service) SubmitResponse(ctx context.Context, sessionID string, resp Response) ([]string, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.info.Phase != PhaseActive {
		return nil, ErrSessionComplete
	}
	if resp.TrialIndex < 0 || resp.TrialIndex >= len(sess.plan) {
		return nil, fmt.Errorf("trial %d: %w", resp.TrialIndex, ErrTrialOutOfRange)
	}
	if resp.TrialIndex != len(sess.answered) {
		return nil, fmt.Errorf("expected trial %d, got %d: %w",
			len(sess.answered), resp.TrialIndex, ErrTrialOutOfOrder)
	}
	if resp.MemoryRating < s.cfg.RatingMin || resp.MemoryRating > s.cfg.RatingMax {
		return nil, fmt.Errorf("rating %d not in [%d, %d]: %w",
			resp.MemoryRating, s.cfg.RatingMin, s.cfg.RatingMax, ErrRatingOutOfRange)
	}

	now := time.Now()
	sess.answered = append(sess.answered, answeredTrial{
		record:      sess.plan[resp.TrialIndex],
		response:    resp,
		respondedAt: now,
	})
	sess.bank = sess.bank.Add(resp.NewLabels)
	sess.info.Answered = len(sess.answered)
	sess.touchedAt = now

	logging.WithFields(ctx, "session_id", sessionID).Debug("response recorded",
		"trial", resp.TrialIndex,
		"rating", resp.MemoryRating,
		"new_labels", len(resp.NewLabels),
	)

	return sess.bank.Labels(), nil
}

// CompleteSession finalizes a fully-answered session and forwards it to
// the remote sink. On delivery failure the session is kept export-pending
// and the result tells the caller to offer the CSV download instead.
func (s *Service) CompleteSession(ctx context.Context, sessionID string) (CompletionResult, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return CompletionResult{}, err
	}

	s.mu.Lock()
	if sess.info.Phase == PhaseComplete {
		s.mu.Unlock()
		return CompletionResult{}, ErrSessionComplete
	}
	if len(sess.answered) != len(sess.plan) {
		n, total := len(sess.answered), len(sess.plan)
		s.mu.Unlock()
		return CompletionResult{}, fmt.Errorf("%d of %d trials answered: %w", n, total, ErrSessionNotDone)
	}
	if sess.payload == nil {
		payload := buildPayload(sess, time.Now())
		sess.payload = &payload
	}
	payload := *sess.payload
	sess.touchedAt = time.Now()
	s.mu.Unlock()

	logger := logging.WithFields(ctx, "session_id", sessionID)

	if err := s.forwarder.Deliver(ctx, payload); err != nil {
		logger.Warn("remote delivery failed, keeping session for export", "error", err)

		s.mu.Lock()
		sess.info.Phase = PhaseExportPending
		s.mu.Unlock()

		return CompletionResult{
			Fallback: true,
			Message:  "remote delivery failed; download the CSV export to save your responses",
		}, nil
	}

	s.mu.Lock()
	sess.info.Phase = PhaseComplete
	s.mu.Unlock()

	logger.Info("session complete", "trials", len(payload.Trials))
	return CompletionResult{Delivered: true}, nil
}

// ExportCSV renders the fallback CSV for a session whose remote delivery
// failed, or one that was completed without a configured endpoint.
func (s *Service) ExportCSV(sessionID string) ([]byte, string, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	phase := sess.info.Phase
	payload := sess.payload
	s.mu.RUnlock()

	if phase != PhaseExportPending || payload == nil {
		return nil, "", ErrNotExportable
	}

	data, err := submit.EncodeCSV(*payload)
	if err != nil {
		return nil, "", fmt.Errorf("encode export: %w", err)
	}
	return data, submit.ExportFileName(sessionID, payload.CompletedAt), nil
}

// buildPayload assembles the submission rows from the answered trials.
// Caller holds the lock.
func buildPayload(sess *activeSession, completedAt time.Time) submit.Payload {
	trials := make([]submit.TrialRow, len(sess.answered))
	for i, at := range sess.answered {
		trials[i] = submit.TrialRow{
			Position:       i,
			NarrationID:    at.record.ID,
			SelectedLabels: at.response.SelectedLabels,
			NewLabels:      at.response.NewLabels,
			MemoryRating:   at.response.MemoryRating,
			RespondedAt:    at.respondedAt,
		}
	}

	return submit.Payload{
		ParticipantID: sess.info.ParticipantID,
		SessionID:     sess.info.ID,
		SeedKey:       sess.seedKey,
		StartedAt:     sess.info.StartedAt,
		CompletedAt:   completedAt,
		Trials:        trials,
	}
}

// get looks up a session by ID.
func (s *Service) get(sessionID string) (*activeSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return sess, nil
}

// StartJanitor evicts idle sessions until ctx is cancelled. Export-pending
// sessions get the same TTL: once it passes, the fallback download is gone
// too, so the TTL should comfortably exceed any plausible survey duration.
func (s *Service) StartJanitor(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle(ttl)
		}
	}
}

func (s *Service) evictIdle(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	for id, sess := range s.sessions {
		if sess.touchedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
