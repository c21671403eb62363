// Package cli provides common CLI initialization utilities shared by
// cmd/waterbot and cmd/waterbot-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"waterbot/internal/config"
	"waterbot/internal/log"
	"waterbot/internal/storage"
)

// sentryFlushTimeout bounds how long shutdown waits for queued error reports.
const sentryFlushTimeout = 2 * time.Second

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and sets it as the slog
// default. A broken Sentry DSN is reported but does not stop the process.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.DefaultConfig().Level
	}

	logger, err := log.New(log.Config{
		Level:     level,
		Component: component,
		Format:    cfg.LogFormat,
		SentryDSN: cfg.SentryDSN,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Sentry disabled", log.FieldError, err)
	}
	return logger
}

// LoadAndValidateConfig loads configuration, builds the process logger for
// component and validates the configuration together with any extra checks.
// It exits the process on validation failure.
func LoadAndValidateConfig(component string, extra ...func(*config.Config) error) (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg, component)

	if err := validateConfig(cfg, extra...); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// validateConfig runs Validate first, then extra, stopping at the first error.
func validateConfig(cfg *config.Config, extra ...func(*config.Config) error) error {
	checks := append([]func(*config.Config) error{(*config.Config).Validate}, extra...)
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err,
			"path", dbPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath)
	return sqliteRepo
}

// GracefulShutdown returns a context that is cancelled on SIGINT or SIGTERM.
// The returned stop function runs cleanup at most once, bounded by timeout,
// and flushes pending Sentry events.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, func()) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown started", log.FieldOperation, log.OpShutdown)
		close(done)
	}()

	var stopped bool
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		<-done

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		log.Flush(sentryFlushTimeout)
	}
	return ctx, stop
}
