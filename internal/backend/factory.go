// Package backend builds the storage stack a process runs on: the store
// selected by configuration, the category cache in front of it, and the
// optional event publisher.
package backend

import (
	"context"
	"errors"
	"fmt"

	"hesab/internal/amqp"
	"hesab/internal/cache"
	"hesab/internal/log"
	"hesab/internal/seed"
	"hesab/internal/services"
	"hesab/internal/storage"
	"hesab/internal/storage/memory"
)

// Result is a ready backend. Cleanup releases everything it holds.
type Result struct {
	Store storage.Store
	// Publisher is nil when publishing is disabled.
	Publisher services.Publisher
	// Events is the bus client, nil when AMQP is disabled or unreachable.
	Events  *amqp.Client
	Cleanup func() error
}

// Factory creates backends based on configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
	// Publishing disabled by the caller, as the admin CLI does.
	noEvents bool
}

// NewFactory creates a new backend factory.
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// WithoutEvents returns a factory that never connects to the bus.
func (f *DefaultFactory) WithoutEvents() *DefaultFactory {
	c := *f
	c.noEvents = true
	return &c
}

// Create opens the store, seeds the default categories and, when configured,
// connects the publisher. An unreachable bus downgrades to store-only mode.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var base storage.Store
	switch config.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		base = repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", log.FieldBackend, config.Type.String(), "path", config.SQLiteDBPath)
	case Memory:
		base = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend", log.FieldBackend, config.Type.String())
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	store, err := cache.NewCategoryStore(base, config.CategoryCacheTTL)
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("create category cache: %w", err)
	}
	n, err := seed.Seed(ctx, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("seed default categories: %w", err)
	}
	f.logger.DebugContext(ctx, "Seeded default categories", log.FieldCount, n)

	res := &Result{Store: store}
	if config.AMQPURL != "" && !f.noEvents {
		client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger events",
				log.NewFields().WithOperation(log.OpStartup).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
		} else {
			res.Events = client
			res.Publisher = client
			f.logger.InfoContext(ctx, "AMQP client initialized", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	} else {
		f.logger.InfoContext(ctx, "AMQP disabled, ledger events will not be published")
	}

	res.Cleanup = func() error {
		var errs []error
		if res.Events != nil {
			errs = append(errs, res.Events.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return res, nil
}
