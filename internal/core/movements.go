package core

import (
	"sort"
	"time"
)

const (
	MovementIncome  MovementType = "Ingreso"
	MovementExpense MovementType = "Gasto"
)

type (
	// MovementType tags a movement with its origin collection.
	MovementType string

	// Movement is a unified view of either an income or an expense, built
	// only for chronological display. It is never persisted.
	Movement struct {
		ID          string
		Type        MovementType
		Amount      Money
		Category    Category // empty for incomes
		Description string
		Date        time.Time
	}
)

// MergeMovements merges the two collections into a single sequence sorted
// by date descending. Every input record maps to exactly one tagged
// movement. The sort is stable over the concatenation (incomes first), so
// records sharing a date keep their fetch order.
func MergeMovements(incomes []Income, expenses []Expense) []Movement {
	out := make([]Movement, 0, len(incomes)+len(expenses))
	for _, in := range incomes {
		out = append(out, Movement{
			ID:          in.ID,
			Type:        MovementIncome,
			Amount:      in.Amount,
			Description: in.Description,
			Date:        in.Date,
		})
	}
	for _, ex := range expenses {
		out = append(out, Movement{
			ID:          ex.ID,
			Type:        MovementExpense,
			Amount:      ex.Amount,
			Category:    ex.Category,
			Description: ex.Description,
			Date:        ex.Date,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// LatestMovements returns the first n movements of an already-sorted
// sequence. Shorter inputs are returned whole.
func LatestMovements(ms []Movement, n int) []Movement {
	if n < 0 {
		n = 0
	}
	if len(ms) <= n {
		return ms
	}
	return ms[:n]
}
