package core

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestMergeMovementsOrderAndTagging(t *testing.T) {
	incomes := []Income{
		{ID: "i1", Amount: Money{Cents: 10000}, Description: "sueldo", Date: day(1)},
		{ID: "i2", Amount: Money{Cents: 2000}, Description: "venta", Date: day(5)},
	}
	expenses := []Expense{
		{ID: "e1", Amount: Money{Cents: 4000}, Category: Comida, Description: "super", Date: day(2)},
		{ID: "e2", Amount: Money{Cents: 500}, Category: Transporte, Description: "bus", Date: day(4)},
	}

	ms := MergeMovements(incomes, expenses)
	if len(ms) != 4 {
		t.Fatalf("length: got %d want 4", len(ms))
	}
	for i := 1; i < len(ms); i++ {
		if ms[i].Date.After(ms[i-1].Date) {
			t.Fatalf("not sorted descending at %d", i)
		}
	}
	wantIDs := []string{"i2", "e2", "e1", "i1"}
	for i, id := range wantIDs {
		if ms[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, ms[i].ID, id)
		}
	}
	for _, m := range ms {
		switch m.ID[0] {
		case 'i':
			if m.Type != MovementIncome {
				t.Fatalf("%s tagged %s", m.ID, m.Type)
			}
		case 'e':
			if m.Type != MovementExpense {
				t.Fatalf("%s tagged %s", m.ID, m.Type)
			}
		}
	}
}

func TestMergeMovementsTieBreakIsStable(t *testing.T) {
	// Same date everywhere: fetch order must be preserved, incomes first.
	incomes := []Income{
		{ID: "i1", Date: day(1)},
		{ID: "i2", Date: day(1)},
	}
	expenses := []Expense{
		{ID: "e1", Date: day(1)},
		{ID: "e2", Date: day(1)},
	}
	ms := MergeMovements(incomes, expenses)
	want := []string{"i1", "i2", "e1", "e2"}
	for i, id := range want {
		if ms[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, ms[i].ID, id)
		}
	}
}

func TestMergeMovementsEmptyInputs(t *testing.T) {
	if got := MergeMovements(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
	only := MergeMovements([]Income{{ID: "i1", Date: day(1)}}, nil)
	if len(only) != 1 || only[0].Type != MovementIncome {
		t.Fatalf("unexpected result: %+v", only)
	}
}

func TestLatestMovementsIsPrefix(t *testing.T) {
	incomes := []Income{
		{ID: "i1", Date: day(1)}, {ID: "i2", Date: day(2)}, {ID: "i3", Date: day(3)},
	}
	expenses := []Expense{
		{ID: "e1", Date: day(4)}, {ID: "e2", Date: day(5)}, {ID: "e3", Date: day(6)},
	}
	ms := MergeMovements(incomes, expenses)

	for _, n := range []int{0, 1, 5, 6, 10} {
		top := LatestMovements(ms, n)
		wantLen := n
		if wantLen > len(ms) {
			wantLen = len(ms)
		}
		if len(top) != wantLen {
			t.Fatalf("n=%d: got len %d want %d", n, len(top), wantLen)
		}
		for i := range top {
			if top[i].ID != ms[i].ID {
				t.Fatalf("n=%d: not a prefix at %d", n, i)
			}
		}
	}
	if got := LatestMovements(ms, -1); len(got) != 0 {
		t.Fatalf("negative n: got %d", len(got))
	}
}
