package main

import (
	"context"
	"errors"
	"os"

	"hesab/internal/cli"
	"hesab/internal/log"
	"hesab/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap("recurring-worker")
	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend selected, the worker will only see its own empty store")
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res, err := cli.OpenBackend(ctx, cfg, logger, true)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()
	if res.Publisher == nil {
		logger.Info("AMQP disabled, occurrences will not reach the ledger mirror")
	}

	ledger := services.NewLedgerService(res.Store, res.Publisher, logger)
	processor := services.NewRecurringProcessor(ledger, logger)

	logger.Info("Recurring transaction processor configured",
		"interval", cfg.RecurringInterval.String(), "sqlite_db", cfg.SQLiteDBPath)

	if err := processor.Run(ctx, cfg.RecurringInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring processor stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
