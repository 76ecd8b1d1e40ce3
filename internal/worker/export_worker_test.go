package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"mibalance/internal/amqp"
	"mibalance/internal/core"
)

type fakeSource struct {
	incomes  []core.Income
	expenses []core.Expense
	failNext bool
}

var errFetch = errors.New("fetch failed")

func (f *fakeSource) ListIncomes(ctx context.Context) ([]core.Income, error) {
	if f.failNext {
		f.failNext = false
		return nil, errFetch
	}
	return f.incomes, nil
}

func (f *fakeSource) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return f.expenses, nil
}

type fakeMirror struct {
	replaced [][]core.Movement
}

func (f *fakeMirror) ReplaceMovements(ctx context.Context, ms []core.Movement) error {
	f.replaced = append(f.replaced, ms)
	return nil
}

func TestHandleEventRewritesMirror(t *testing.T) {
	source := &fakeSource{
		incomes: []core.Income{
			{ID: "1", Amount: core.Money{Cents: 10000}, Description: "sueldo", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		expenses: []core.Expense{
			{ID: "2", Amount: core.Money{Cents: 4000}, Category: core.Comida, Description: "mercado", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		},
	}
	mirror := &fakeMirror{}
	w := NewExportWorker(source, mirror)

	event := amqp.NewLedgerEvent("gastos", "created", "2")
	if err := w.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(mirror.replaced) != 1 {
		t.Fatalf("mirror writes: %d", len(mirror.replaced))
	}
	got := mirror.replaced[0]
	if len(got) != 2 {
		t.Fatalf("movements: %+v", got)
	}
	// Feed order: newest first.
	if got[0].Type != core.MovementExpense || got[1].Type != core.MovementIncome {
		t.Fatalf("order: %+v", got)
	}
}

func TestHandleEventIgnoresReminders(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewExportWorker(&fakeSource{}, mirror)

	event := amqp.NewLedgerEvent("recordatorios", "updated", "1")
	if err := w.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mirror.replaced) != 0 {
		t.Fatalf("reminder event must not touch the mirror")
	}
}

func TestHandleEventPropagatesFetchFailure(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewExportWorker(&fakeSource{failNext: true}, mirror)

	event := amqp.NewLedgerEvent("ingresos", "created", "1")
	if err := w.HandleEvent(context.Background(), event); !errors.Is(err, errFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if len(mirror.replaced) != 0 {
		t.Fatalf("failed fetch must not rewrite the mirror")
	}
}
