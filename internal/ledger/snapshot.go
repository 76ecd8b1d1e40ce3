package ledger

import (
	"context"

	"golang.org/x/sync/errgroup"

	"mibalance/internal/core"
)

// Snapshot is one consistent-enough read of everything the dashboard needs.
type Snapshot struct {
	Incomes   []core.Income
	Expenses  []core.Expense
	Balance   core.BalanceSummary
	Reminders []core.Reminder
}

// Snapshot fetches the four collections concurrently and joins them
// fail-fast: if any read fails the whole snapshot fails and nothing partial
// is returned.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		incomes, err := c.ListIncomes(gctx)
		if err != nil {
			return err
		}
		snap.Incomes = incomes
		return nil
	})
	g.Go(func() error {
		expenses, err := c.ListExpenses(gctx)
		if err != nil {
			return err
		}
		snap.Expenses = expenses
		return nil
	})
	g.Go(func() error {
		balance, err := c.FetchBalance(gctx)
		if err != nil {
			return err
		}
		snap.Balance = balance
		return nil
	})
	g.Go(func() error {
		reminders, err := c.ListReminders(gctx)
		if err != nil {
			return err
		}
		snap.Reminders = reminders
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
