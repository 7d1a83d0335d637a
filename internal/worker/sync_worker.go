// Package worker applies expense change events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"time"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/log"
)

// Mirror is the spreadsheet side of the sync. *google.Client satisfies it.
type Mirror interface {
	Upsert(ctx context.Context, e core.Expense) error
	Delete(ctx context.Context, id string) error
}

// Consumer feeds events to a handler until ctx ends. *amqp.Client satisfies it.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// SyncWorker handles synchronization of expense events to Google Sheets
type SyncWorker struct {
	mirror Mirror
	logger *log.Logger
	// retryDelay separates consume attempts after the channel drops.
	retryDelay time.Duration
}

func NewSyncWorker(mirror Mirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		mirror:     mirror,
		logger:     logger.WithComponent(log.ComponentWorker),
		retryDelay: 5 * time.Second,
	}
}

// HandleEvent processes a single change event. A returned error requeues it.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		log.FieldExpenseID, ev.ID,
		log.FieldEventKind, string(ev.Kind))

	switch ev.Kind {
	case amqp.EventCreated, amqp.EventUpdated:
		if ev.Expense == nil {
			return fmt.Errorf("%s event for %s has no snapshot", ev.Kind, ev.ID)
		}
		if err := w.mirror.Upsert(ctx, *ev.Expense); err != nil {
			return fmt.Errorf("sync expense to sheets: %w", err)
		}
	case amqp.EventDeleted:
		if err := w.mirror.Delete(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete expense from sheets: %w", err)
		}
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event kind", log.FieldEventKind, string(ev.Kind))
		return nil
	}

	w.logger.InfoContext(ctx, "Synced expense event",
		log.FieldExpenseID, ev.ID,
		log.FieldEventKind, string(ev.Kind))
	return nil
}

// Run consumes events until ctx is cancelled, restarting the consumer
// whenever the delivery channel drops.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer) error {
	for {
		err := consumer.Consume(ctx, w.HandleEvent)
		if ctx.Err() != nil {
			return nil
		}
		w.logger.ErrorContext(ctx, "Consumer stopped, restarting",
			log.FieldError, err,
			"retry_in", w.retryDelay.String())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}
