package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/perceptlab/narration-survey/internal/logging"
)

// ErrNoEndpoint is returned when no remote sink is configured. Callers
// treat it like any other delivery failure and fall back to CSV export.
var ErrNoEndpoint = errors.New("no submission endpoint configured")

// Forwarder posts session payloads to the remote sink with bounded retries.
type Forwarder struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewForwarder creates a Forwarder. An empty endpoint is allowed: Deliver
// then always returns ErrNoEndpoint so the fallback path is exercised.
func NewForwarder(endpoint string, timeout time.Duration, maxRetries int, backoff time.Duration) *Forwarder {
	return &Forwarder{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Deliver posts the payload as JSON. Any 2xx status counts as delivered.
// Transport errors and non-2xx responses are retried with doubling backoff
// up to maxRetries; the last error is returned when all attempts fail.
func (f *Forwarder) Deliver(ctx context.Context, payload Payload) error {
	if f.endpoint == "" {
		return ErrNoEndpoint
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	logger := logging.WithFields(ctx, "session_id", payload.SessionID)

	var lastErr error
	wait := f.backoff
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("deliver session: %w", ctx.Err())
			case <-time.After(wait):
			}
			wait *= 2
		}

		lastErr = f.post(ctx, body)
		if lastErr == nil {
			logger.Info("session delivered", "attempt", attempt+1)
			return nil
		}
		logger.Warn("delivery attempt failed", "attempt", attempt+1, "error", lastErr)
	}

	return fmt.Errorf("deliver session after %d attempts: %w", f.maxRetries+1, lastErr)
}

// post performs one delivery attempt.
func (f *Forwarder) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused across retries.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
