// Package cli holds the bootstrap shared by the hesab commands: environment,
// logging, configuration, storage and the assistant engine.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hesab/internal/assistant"
	"hesab/internal/backend"
	"hesab/internal/cache"
	"hesab/internal/config"
	"hesab/internal/intent"
	"hesab/internal/llm"
	"hesab/internal/log"
	"hesab/internal/services"
	"hesab/internal/session"
)

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and installs it as default.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the configuration, sets up logging and validates.
// It exits the process when the configuration is invalid.
func Bootstrap(name string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "process", name,
			log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	logger.Info("Starting "+name, log.FieldOperation, log.OpStartup, log.FieldBackend, cfg.DataBackend)
	return cfg, logger
}

// OpenBackend builds the configured store stack.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger, events bool) (*backend.Result, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	f := backend.NewFactory(logger)
	if !events {
		f = f.WithoutEvents()
	}
	return f.Create(ctx, bc)
}

// NewResolver builds the intent resolver for the configured provider.
func NewResolver(ctx context.Context, cfg *config.Config, logger *log.Logger) (intent.Resolver, error) {
	if cfg.LLMProvider == "rules" {
		logger.Info("Using rule based intent resolver", log.FieldProvider, cfg.LLMProvider)
		return intent.NewRuleResolver(), nil
	}
	completer, err := llm.New(ctx, cfg.LLMProvider, llm.Settings{
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Timeout:     cfg.LLMTimeout,
		Temperature: llm.Float(cfg.LLMTemperature),
		MaxTokens:   cfg.LLMMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create completer: %w", err)
	}
	logger.Info("Using model intent resolver", log.FieldProvider, cfg.LLMProvider, log.FieldModel, cfg.LLMModel)
	return intent.NewModelResolver(completer, cfg.LLMTemperature, cfg.LLMMaxTokens, logger), nil
}

// Chat is a wired assistant with the sweeper of its history store.
type Chat struct {
	Engine  *assistant.Engine
	Ledger  *services.LedgerService
	History *session.MemoryStore
	sweeper *cache.Manager
}

// NewChat wires the engine over res. Close stops the history sweeper.
func NewChat(ctx context.Context, cfg *config.Config, res *backend.Result, logger *log.Logger) (*Chat, error) {
	resolver, err := NewResolver(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	ledger := services.NewLedgerService(res.Store, res.Publisher, logger)
	history := session.NewMemoryStore(cfg.HistoryLimit, cfg.MaxSessions, cfg.SessionTTL)

	sweeper := cache.NewManager(logger)
	sweeper.Register(history)
	sweeper.Start(ctx, 10*time.Minute)

	engine := assistant.NewEngine(ledger, resolver, history, assistant.Options{
		HistoryContext: cfg.HistoryContext,
		Timeout:        cfg.LLMTimeout,
		Location:       cfg.Location(),
	}, logger)
	return &Chat{Engine: engine, Ledger: ledger, History: history, sweeper: sweeper}, nil
}

func (c *Chat) Close() {
	c.sweeper.Stop()
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
