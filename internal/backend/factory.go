package backend

import (
	"context"
	"fmt"

	"spendlog/internal/amqp"
	"spendlog/internal/log"
	"spendlog/internal/repository"
	"spendlog/internal/repository/memory"
	"spendlog/internal/repository/supabase"
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

var _ Factory = (*DefaultFactory)(nil)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// dial opens the change-event publisher; replaced in tests.
	dial func(url, exchange, queue string) (services.Publisher, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial: func(url, exchange, queue string) (services.Publisher, error) {
			return amqp.NewClient(url, exchange, queue)
		},
	}
}

// CreateBackend opens the configured store and wires the services on top.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	publisher := f.openPublisher(config)
	expenses := services.NewExpenseService(store, publisher, f.logger)

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Expenses:  expenses,
		Dashboard: services.NewDashboardService(store),
		Cleanup:   expenses.Close,
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (repository.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case SupabaseBackend:
		repo, err := supabase.New(config.SupabaseURL, config.SupabaseKey, config.SupabaseTable)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Supabase repository: %w", err)
		}
		f.logger.Info("Opened Supabase store", "table", config.SupabaseTable)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Using in-memory store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// openPublisher returns nil when AMQP is not configured or unreachable.
func (f *DefaultFactory) openPublisher(config Config) services.Publisher {
	if !config.EventsEnabled() {
		return nil
	}
	pub, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return pub
}
