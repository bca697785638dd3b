package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"hesab/internal/cli"
	apphttp "hesab/internal/http"
	"hesab/internal/log"
	"hesab/internal/middleware/ratelimit"
)

func main() {
	cfg, logger := cli.Bootstrap("hesab")
	tokens := cfg.Tokens()
	if len(tokens) == 0 {
		logger.Error("CHAT_TOKENS must name at least one client token",
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res, err := cli.OpenBackend(ctx, cfg, logger, true)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	chat, err := cli.NewChat(ctx, cfg, res, logger)
	if err != nil {
		logger.Error("Failed to initialize assistant", log.FieldError, err.Error(), log.FieldProvider, cfg.LLMProvider)
		os.Exit(1)
	}
	defer chat.Close()

	srv := apphttp.NewServer(":"+cfg.Port, chat.Engine, apphttp.Options{
		Tokens:         tokens,
		RateLimit:      ratelimit.Config{RequestsPerWindow: cfg.RateLimit, Window: time.Minute},
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Ready:          map[string]apphttp.Pinger{"store": res.Store},
	}, logger)

	srv.ReadTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	}()

	logger.Info("Starting hesab server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend, log.FieldProvider, cfg.LLMProvider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
