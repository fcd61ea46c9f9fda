// Package config provides centralized configuration management for the
// survey server. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	Stimuli StimuliConfig
	Session SessionConfig
	Submit  SubmitConfig
	Rate    RateLimitConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StimuliConfig holds narration stimulus loading settings.
type StimuliConfig struct {
	// Source is the narration file location: a local path or an http(s) URL (required)
	// Supports both STIMULI_SOURCE and STIMULI_PATH env vars for compatibility
	Source string `env:"STIMULI_SOURCE" envAlt:"STIMULI_PATH" required:"true"`

	// FetchTimeout is the maximum duration for fetching a remote source (default: 30s)
	FetchTimeout time.Duration `env:"STIMULI_FETCH_TIMEOUT" default:"30s"`
}

// SessionConfig holds survey session settings.
type SessionConfig struct {
	// TrialLimit caps trials per session; 0 means present every narration (default: 0)
	TrialLimit int `env:"SESSION_TRIAL_LIMIT" default:"0"`

	// SeedKey is the default sequencing key. Empty means each session gets
	// an independent non-reproducible ordering.
	SeedKey string `env:"SESSION_SEED_KEY"`

	// IdleTTL is how long an inactive session is kept before expiry (default: 2h)
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" default:"2h"`

	// RatingMin is the lowest accepted memory rating (default: 1)
	RatingMin int `env:"SESSION_RATING_MIN" default:"1"`

	// RatingMax is the highest accepted memory rating (default: 7)
	RatingMax int `env:"SESSION_RATING_MAX" default:"7"`

	// LabelBank is a comma-separated list of category labels offered on
	// every trial before participants add their own.
	LabelBank []string `env:"SESSION_LABEL_BANK"`
}

// SubmitConfig holds result forwarding settings.
type SubmitConfig struct {
	// EndpointURL is the remote spreadsheet sink. Empty disables forwarding:
	// every completed session falls back to the local CSV export.
	EndpointURL string `env:"SHEET_ENDPOINT_URL"`

	// Timeout is the per-attempt HTTP timeout (default: 20s)
	Timeout time.Duration `env:"SUBMIT_TIMEOUT" default:"20s"`

	// MaxRetries is how many times a failed delivery is retried (default: 2)
	MaxRetries int `env:"SUBMIT_MAX_RETRIES" default:"2"`

	// RetryBackoff is the initial delay between retries; it doubles per attempt (default: 2s)
	RetryBackoff time.Duration `env:"SUBMIT_RETRY_BACKOFF" default:"2s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
