package stimuli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// MaxSourceSize caps how much stimulus text is read from any source (10MB).
// Narration files are tiny; anything near this limit is a misconfiguration.
var MaxSourceSize int64 = 10 * 1024 * 1024

// Source fetches the raw stimulus text. The decoder never performs I/O
// itself; a Source is the boundary that hands it a string.
type Source struct {
	location string
	timeout  time.Duration
	client   *http.Client
}

// NewSource creates a Source for a local file path or an http(s) URL.
func NewSource(location string, timeout time.Duration) *Source {
	return &Source{
		location: location,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

// Load returns the raw text of the stimulus file.
func (s *Source) Load(ctx context.Context) (string, error) {
	if strings.HasPrefix(s.location, "http://") || strings.HasPrefix(s.location, "https://") {
		return s.loadURL(ctx)
	}
	return s.loadFile()
}

func (s *Source) loadFile() (string, error) {
	info, err := os.Stat(s.location)
	if err != nil {
		return "", fmt.Errorf("stat stimulus file: %w", err)
	}
	if info.Size() > MaxSourceSize {
		return "", fmt.Errorf("stimulus file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(s.location)
	if err != nil {
		return "", fmt.Errorf("read stimulus file: %w", err)
	}
	return string(data), nil
}

func (s *Source) loadURL(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		return "", fmt.Errorf("build stimulus request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch stimulus text: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch stimulus text: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSourceSize+1))
	if err != nil {
		return "", fmt.Errorf("read stimulus response: %w", err)
	}
	if int64(len(data)) > MaxSourceSize {
		return "", fmt.Errorf("stimulus response too large")
	}
	return string(data), nil
}
