package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"waterbot/internal/config"
	"waterbot/internal/log"
)

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		PollTimeout:      30 * time.Second,
		TimeZone:         "Europe/Moscow",
		DailyGoalDefault: 2000,
		Port:             "8081",
		SQLiteDBPath:     filepath.Join(t.TempDir(), "water.db"),
		MirrorBackend:    "memory",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		extra   []func(*config.Config) error
		wantErr string
	}{
		{
			name: "base only",
		},
		{
			name:    "base failure",
			mutate:  func(c *config.Config) { c.Port = "http" },
			wantErr: "invalid port",
		},
		{
			name:    "bot without token",
			extra:   []func(*config.Config) error{(*config.Config).ValidateBot},
			wantErr: "TELEGRAM_BOT_TOKEN",
		},
		{
			name:   "bot with token",
			mutate: func(c *config.Config) { c.TelegramBotToken = "123:abc" },
			extra:  []func(*config.Config) error{(*config.Config).ValidateBot},
		},
		{
			name:    "worker without broker",
			extra:   []func(*config.Config) error{(*config.Config).ValidateWorker},
			wantErr: "AMQP_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := validateConfig(cfg, tt.extra...)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSetupLoggerInstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := baseConfig(t)
	cfg.LogLevel = "verbose"
	cfg.LogFormat = "json"

	logger := SetupLogger(cfg, log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Fatalf("expected component %q, got %q", log.ComponentWorker, logger.Component())
	}
	if slog.Default() != logger.Logger {
		t.Fatal("logger must become the slog default")
	}

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) || logger.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("an unknown level must fall back to info")
	}
}
