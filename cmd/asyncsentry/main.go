package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/asyncsentry/asyncsentry/internal/capture"
	"github.com/asyncsentry/asyncsentry/internal/config"
	"github.com/asyncsentry/asyncsentry/internal/httpasync"
	"github.com/asyncsentry/asyncsentry/internal/metrics"
	"github.com/asyncsentry/asyncsentry/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the config (missing is fine)")
	message := flag.String("message", "test", "message to capture")
	level := flag.String("level", "warning", "level of the captured message")
	work := flag.Duration("work", 0, "simulated work between capture and drain")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := loadEnvFile(*envFile); err != nil {
		slog.Error("failed to load env file", "path", *envFile, "err", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"dsn_env", cfg.Sentry.DSNEnv,
		"http_compression", cfg.Sentry.HTTPCompression,
		"timeout", cfg.HTTP.Timeout,
		"max_concurrent", cfg.HTTP.MaxConcurrent,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := httpasync.New(cfg.HTTP)
	if err != nil {
		slog.Error("failed to build http client", "err", err)
		os.Exit(1)
	}
	rec := metrics.NewRecorder()
	wrapper := transport.Instance(client, transport.WithRecorder(rec))

	opts, err := buildOptions(cfg.Sentry)
	if err != nil {
		// Captures still go through; the transport rejects them with ErrMissingDSN.
		slog.Error("invalid DSN, events will be rejected", "err", err)
	}
	sdk := capture.NewClient(opts, wrapper)

	// Hot-reload swaps the per-send options. The HTTP client is fixed at
	// first construction and is not rebuilt.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			next, err := buildOptions(updated.Sentry)
			if err != nil {
				slog.Error("reloaded config has an invalid DSN, keeping previous options", "err", err)
				return
			}
			sdk.SetOptions(next)
			slog.Info("capture options reloaded",
				"http_compression", next.HTTPCompression,
				"environment", next.Environment,
			)
		}); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	id, err := sdk.CaptureMessage(*message, sentry.Level(*level))
	if err != nil {
		slog.Error("capture failed", "err", err)
	} else {
		slog.Info("event captured", "event_id", id, "pending", wrapper.Pending())
	}

	// Stand-in for the rest of a long-running job.
	select {
	case <-ctx.Done():
	case <-time.After(*work):
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer drainCancel()
	if err := wrapper.WaitContext(drainCtx); err != nil {
		slog.Warn("gave up waiting for in-flight requests", "pending", wrapper.Pending(), "err", err)
	}

	if snap, err := rec.Snapshot(); err == nil {
		slog.Info("asyncsentry shutting down",
			"dispatched", snap["asyncsentry_requests_dispatched_total"],
			"succeeded", snap["asyncsentry_requests_succeeded_total"],
			"failed", snap["asyncsentry_requests_failed_total"],
		)
	}
	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteFile(cfg.Metrics.Textfile); err != nil {
			slog.Error("failed to write metrics textfile", "path", cfg.Metrics.Textfile, "err", err)
		}
	}
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// loadConfig reads path, falling back to defaults when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Info("no config file, using defaults", "path", path)
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildOptions resolves the DSN and copies the per-send settings. An unset
// DSN yields options with a nil DSN and no error.
func buildOptions(s config.SentryConfig) (capture.Options, error) {
	opts := capture.Options{
		HTTPCompression: s.HTTPCompression,
		Environment:     s.Environment,
		Release:         s.Release,
		ServerName:      s.ServerName,
	}
	raw := s.DSN()
	if raw == "" {
		return opts, nil
	}
	dsn, err := sentry.NewDsn(raw)
	if err != nil {
		return opts, fmt.Errorf("parse %s: %w", s.DSNEnv, err)
	}
	opts.DSN = dsn
	return opts, nil
}
