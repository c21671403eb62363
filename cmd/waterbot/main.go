package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"waterbot/internal/amqp"
	"waterbot/internal/bot"
	"waterbot/internal/cli"
	"waterbot/internal/config"
	"waterbot/internal/core"
	apphttp "waterbot/internal/http"
	"waterbot/internal/log"
	"waterbot/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp, (*config.Config).ValidateBot)

	logger.Info("Starting waterbot",
		log.FieldOperation, log.OpStartup,
		"timezone", cfg.TimeZone,
		"events", cfg.EventsEnabled())

	repo := cli.InitSQLite(logger.WithComponent(log.ComponentStorage), cfg.SQLiteDBPath)
	defer repo.Close()

	opts := services.Options{DefaultGoalML: cfg.DailyGoalDefault}

	// Events are optional. A nil *amqp.Client must not reach the service as
	// a non-nil interface.
	var amqpClient *amqp.Client
	if cfg.EventsEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client",
				log.FieldErrorType, log.ErrorTypeNetwork,
				log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts.Events = amqpClient
		logger.Info("Intake events enabled", "exchange", cfg.AMQPExchange)
	}

	tracker := services.NewIntakeService(repo, repo, core.NewCalendar(cfg.Location()), opts)

	interpreter := bot.NewInterpreter(tracker, logger)
	telegram, err := bot.NewTelegram(cfg.TelegramBotToken, interpreter, logger, cfg.PollTimeout)
	if err != nil {
		logger.Error("Failed to connect to Telegram",
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, tracker, repo, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 20 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Ops HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return telegram.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Waterbot stopped with error", log.FieldError, err)
		os.Exit(1)
	}
}
