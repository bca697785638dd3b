package main

import (
	"context"
	"errors"
	"os"

	"hesab/internal/amqp"
	"hesab/internal/cli"
	"hesab/internal/log"
	"hesab/internal/sheets"
	gsheet "hesab/internal/sheets/google"
	"hesab/internal/sheets/memory"
	"hesab/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("hesab-worker")
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by hesab-worker", log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	// Names are read from the store; events are consumed below, not published.
	res, err := cli.OpenBackend(ctx, cfg, logger, false)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	var rows sheets.LedgerWriter
	if cfg.MirrorEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}
		rows = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		rows = memory.New()
		logger.Info("Google Sheets disabled, mirroring to memory (no GOOGLE_SPREADSHEET_ID provided)")
	}

	bus, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeNetwork)
		os.Exit(1)
	}
	defer bus.Close()

	mirror := worker.NewMirrorWorker(rows, res.Store, logger)
	if err := bus.Consume(ctx, mirror.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error(), log.FieldOperation, log.OpConsume)
		os.Exit(1)
	}
	logger.Info("hesab-worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
