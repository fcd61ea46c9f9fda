package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/perceptlab/narration-survey/internal/config"
	"github.com/perceptlab/narration-survey/internal/core"
	"github.com/perceptlab/narration-survey/internal/logging"
	"github.com/perceptlab/narration-survey/internal/stimuli"
	"github.com/perceptlab/narration-survey/internal/submit"
	"github.com/perceptlab/narration-survey/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"stimuli_source", cfg.Stimuli.Source,
		"trial_limit", cfg.Session.TrialLimit,
		"seeded", cfg.Session.SeedKey != "",
		"endpoint_configured", cfg.Submit.EndpointURL != "",
	)

	// Fetch and decode the stimulus table once; it is immutable afterward.
	ctx := context.Background()
	source := stimuli.NewSource(cfg.Stimuli.Source, cfg.Stimuli.FetchTimeout)
	raw, err := source.Load(ctx)
	if err != nil {
		slog.Error("failed to load stimulus text", "error", err)
		os.Exit(1)
	}

	table := stimuli.Decode(raw)
	slog.Info("stimulus table decoded",
		"columns", len(table.Headers),
		"records", table.Len(),
	)

	forwarder := submit.NewForwarder(
		cfg.Submit.EndpointURL,
		cfg.Submit.Timeout,
		cfg.Submit.MaxRetries,
		cfg.Submit.RetryBackoff,
	)

	// Create service; an empty decoded table is fatal here.
	service, err := core.NewService(table, forwarder, cfg.Session)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	// Create server with config
	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	// Evict idle sessions in the background
	go service.StartJanitor(jobCtx, cfg.Session.IdleTTL)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
