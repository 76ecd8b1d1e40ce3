// Package worker keeps external mirrors of the movement feed in sync with
// the remote store. It reacts to ledger change events by refetching the
// source collections and rewriting the mirror, never by applying the event
// payload directly.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"mibalance/internal/amqp"
	"mibalance/internal/core"
	"mibalance/internal/export"
)

// MovementSource provides the raw collections the feed is built from.
// *ledger.Client satisfies it.
type MovementSource interface {
	ListIncomes(ctx context.Context) ([]core.Income, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
}

// EventStream delivers ledger change events. *amqp.Client satisfies it.
type EventStream interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(*amqp.LedgerEvent) error) error
}

type ExportWorker struct {
	source MovementSource
	mirror export.MovementMirror
}

func NewExportWorker(source MovementSource, mirror export.MovementMirror) *ExportWorker {
	return &ExportWorker{source: source, mirror: mirror}
}

// HandleEvent processes one ledger change event. Reminder events are ignored;
// they never appear in the movement feed. Returning an error requeues the
// event, so a transient fetch failure is retried.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	switch event.Collection {
	case "ingresos", "gastos":
	default:
		slog.DebugContext(ctx, "Ignoring event for unmirrored collection",
			"collection", event.Collection, "action", event.Action)
		return nil
	}

	slog.InfoContext(ctx, "Syncing movement mirror",
		"collection", event.Collection,
		"action", event.Action,
		"record_id", event.ID)

	return w.Sync(ctx)
}

// Sync refetches both collections and rewrites the mirror from scratch.
func (w *ExportWorker) Sync(ctx context.Context) error {
	incomes, err := w.source.ListIncomes(ctx)
	if err != nil {
		return fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := w.source.ListExpenses(ctx)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}

	movements := core.MergeMovements(incomes, expenses)
	if err := w.mirror.ReplaceMovements(ctx, movements); err != nil {
		return fmt.Errorf("replace movements: %w", err)
	}

	slog.InfoContext(ctx, "Mirror synced", "movements", len(movements))
	return nil
}

// Run consumes events until the context is cancelled.
func (w *ExportWorker) Run(ctx context.Context, stream EventStream) error {
	return stream.ConsumeLedgerEvents(ctx, func(event *amqp.LedgerEvent) error {
		return w.HandleEvent(ctx, event)
	})
}
