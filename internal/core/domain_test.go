package core

import (
	"testing"
	"time"
)

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories() {
		if !c.Valid() {
			t.Fatalf("category %q should be valid", c)
		}
	}
	for _, c := range []Category{"", "Food", "comida", "Varios"} {
		if c.Valid() {
			t.Fatalf("category %q should be invalid", c)
		}
	}
}

func TestNewIncomeValidate(t *testing.T) {
	good := NewIncome{Amount: Money{Cents: 100}, Description: "sueldo"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewIncome{
		{Amount: Money{Cents: 0}, Description: "x"},
		{Amount: Money{Cents: -1}, Description: "x"},
		{Amount: Money{Cents: 100}, Description: "   "},
	}
	for i, n := range bads {
		if err := n.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNewExpenseValidate(t *testing.T) {
	good := NewExpense{Amount: Money{Cents: 50}, Category: Comida, Description: "almuerzo"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewExpense{
		{Amount: Money{Cents: 0}, Category: Comida, Description: "x"},
		{Amount: Money{Cents: 50}, Category: "Food", Description: "x"},
		{Amount: Money{Cents: 50}, Category: Comida, Description: ""},
	}
	for i, n := range bads {
		if err := n.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNewReminderValidate(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	good := NewReminder{Title: "pagar alquiler", Date: date}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	// Amount is optional; zero means none.
	withAmount := NewReminder{Title: "cuota", Date: date, Amount: Money{Cents: 1500}}
	if err := withAmount.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewReminder{
		{Title: "", Date: date},
		{Title: "x", Date: time.Time{}},
		{Title: "x", Date: date, Amount: Money{Cents: -10}},
	}
	for i, n := range bads {
		if err := n.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestReminderToggledIsItsOwnInverse(t *testing.T) {
	for _, done := range []bool{false, true} {
		r := Reminder{ID: "1", Title: "luz", Done: done}
		if got := r.Toggled().Done; got == done {
			t.Fatalf("toggle did not flip Done from %v", done)
		}
		if got := r.Toggled().Toggled().Done; got != done {
			t.Fatalf("double toggle changed Done: got %v want %v", got, done)
		}
	}
}
