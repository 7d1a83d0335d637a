package main

import (
	"context"
	"os"
	"time"

	"spendlog/internal/amqp"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	"spendlog/internal/log"
	gsheet "spendlog/internal/sheets/google"
	memsheet "spendlog/internal/sheets/memory"
	"spendlog/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting spendlog-worker")

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	var mirror worker.Mirror
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring into memory")
		mirror = memsheet.New()
	} else {
		sheet, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
		mirror = sheet
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	if err := worker.NewSyncWorker(mirror, logger).Run(ctx, consumer); err != nil {
		logger.Error("Worker stopped with error", "error", err)
	}

	_ = cli.GracefulShutdown(logger, 10*time.Second, func(ctx context.Context) error {
		return consumer.Close()
	})
	logger.Info("Worker stopped gracefully")
}
