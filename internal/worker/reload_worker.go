// Package worker keeps the reporting snapshot fresh. It reloads on every
// ledger change announced over AMQP and on a fixed interval as a backstop
// for lost messages and out-of-band edits to the store.
package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"villaledger/internal/amqp"
	applog "villaledger/internal/log"
)

// Reloader is satisfied by *report.Facade.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Consumer is satisfied by *amqp.Client.
type Consumer interface {
	ConsumeLedgerChanged(ctx context.Context, handler func(context.Context, *amqp.LedgerChangedMessage) error) error
}

type ReloadWorker struct {
	reloader Reloader
	consumer Consumer
	interval time.Duration
	logger   *applog.Logger
}

// NewReloadWorker creates a worker. consumer may be nil and interval may be
// zero; Run then only does the part that is configured.
func NewReloadWorker(reloader Reloader, consumer Consumer, interval time.Duration, logger *applog.Logger) *ReloadWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ReloadWorker{
		reloader: reloader,
		consumer: consumer,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleLedgerChanged reloads the snapshot for one change notification.
// A failed reload is logged and the message acknowledged: redelivery
// would only repeat the same full reload, and the periodic refresh retries.
func (w *ReloadWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		applog.FieldCollection, msg.Collection,
		applog.FieldOperation, msg.Operation,
		applog.FieldRecordID, msg.ID)

	if err := w.reloader.Reload(ctx); err != nil {
		w.logger.WarnContext(ctx, "Reload after ledger change failed",
			applog.FieldCollection, msg.Collection,
			applog.FieldError, err.Error())
	}
	return nil
}

// Run blocks until ctx is cancelled or the consumer stops with an error.
func (w *ReloadWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			err := w.consumer.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		w.logger.Info("No message consumer configured, relying on periodic reloads")
	}

	if w.interval > 0 {
		g.Go(func() error {
			w.periodic(ctx)
			return nil
		})
	}

	return g.Wait()
}

func (w *ReloadWorker) periodic(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Periodic reload started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.reloader.Reload(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic reload failed", applog.FieldError, err.Error())
			}
		}
	}
}
