package main

import (
	"context"
	"errors"
	"os"
	"time"

	"waterbot/internal/amqp"
	"waterbot/internal/cli"
	"waterbot/internal/config"
	"waterbot/internal/core"
	"waterbot/internal/log"
	"waterbot/internal/sheets"
	gsheet "waterbot/internal/sheets/google"
	mem "waterbot/internal/sheets/memory"
	"waterbot/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker, (*config.Config).ValidateWorker)

	logger.Info("Starting waterbot-worker", log.FieldOperation, log.OpStartup, "mirror", cfg.MirrorBackend)

	// Choose the mirror backend (default: memory).
	var history sheets.HistoryWriter
	switch cfg.MirrorBackend {
	case "sheets":
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client",
				log.FieldErrorType, log.ErrorTypeConfiguration,
				log.FieldError, err)
			os.Exit(1)
		}
		history = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	default:
		history = mem.New()
		logger.Info("Memory mirror initialized")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client",
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(history, core.NewCalendar(cfg.Location()))

	ctx, stop := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
	})
	defer stop()

	logger.Info("Consuming intake events", "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeIntakeEvents(ctx, syncWorker.HandleIntakeEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed",
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		stop()
		os.Exit(1)
	}
}
