package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/repository"
)

// Publisher delivers change events. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService fronts the store and announces every successful write.
type ExpenseService struct {
	store     repository.Store
	publisher Publisher
	logger    *log.Logger
}

// NewExpenseService wires store and an optional publisher (nil disables events).
func NewExpenseService(store repository.Store, publisher Publisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentExpense),
	}
}

func (s *ExpenseService) List(ctx context.Context, q core.ListQuery) (core.ExpensePage, error) {
	return s.store.List(ctx, q)
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.store.Get(ctx, id)
}

func (s *ExpenseService) All(ctx context.Context) ([]core.Expense, error) {
	return s.store.All(ctx)
}

// Create stores the expense, then publishes expense.created. Store errors
// are returned unwrapped.
func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	e, err := s.store.Create(ctx, in)
	if err != nil {
		return core.Expense{}, err
	}
	s.logger.InfoContext(ctx, "Expense created",
		log.NewFields().WithExpense(e.ID, e.Title, e.Category.String(), e.Amount.String()).ToSlice()...)
	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventCreated, e))
	return e, nil
}

func (s *ExpenseService) Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	e, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return core.Expense{}, err
	}
	s.logger.InfoContext(ctx, "Expense updated",
		log.NewFields().WithExpense(e.ID, e.Title, e.Category.String(), e.Amount.String()).ToSlice()...)
	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventUpdated, e))
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldExpenseID, id)
	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventDeleted, core.Expense{ID: id}))
	return nil
}

func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish never fails the caller: the write is already stored.
func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldExpenseID, ev.ID,
			log.FieldEventKind, string(ev.Kind),
			log.FieldError, err)
	}
}

// Close closes the store and the publisher when it holds a connection.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
