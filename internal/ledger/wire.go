package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mibalance/internal/core"
)

// The store assigns ids; they are opaque to the client and may arrive as
// JSON numbers or strings.
type wireID string

func (w *wireID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*w = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*w = wireID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*w = wireID(n.String())
	return nil
}

type (
	incomeWire struct {
		ID          wireID      `json:"id"`
		Monto       json.Number `json:"monto"`
		Description string      `json:"description"`
		Fecha       string      `json:"fecha"`
	}

	expenseWire struct {
		ID          wireID      `json:"id"`
		Monto       json.Number `json:"monto"`
		Categoria   string      `json:"categoria"`
		Description string      `json:"description"`
		Fecha       string      `json:"fecha"`
	}

	reminderWire struct {
		ID         wireID       `json:"id"`
		Titulo     string       `json:"titulo"`
		Fecha      string       `json:"fecha"`
		Monto      *json.Number `json:"monto,omitempty"`
		Completado bool         `json:"completado"`
	}

	balanceWire struct {
		Ingresos json.Number `json:"ingresos"`
		Gastos   json.Number `json:"gastos"`
		Balance  json.Number `json:"balance"`
	}

	createIncomeBody struct {
		Monto       json.Number `json:"monto"`
		Description string      `json:"description"`
	}

	createExpenseBody struct {
		Monto       json.Number `json:"monto"`
		Categoria   string      `json:"categoria"`
		Description string      `json:"description"`
	}

	createReminderBody struct {
		Titulo     string       `json:"titulo"`
		Fecha      string       `json:"fecha"`
		Monto      *json.Number `json:"monto,omitempty"`
		Completado bool         `json:"completado"`
	}

	patchReminderBody struct {
		Completado bool `json:"completado"`
	}
)

var fechaLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseFecha(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range fechaLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized fecha %q", s)
}

func amountFromNumber(n json.Number) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(n.String())
	if err != nil {
		return core.Money{}, fmt.Errorf("amount %q: %w", n.String(), err)
	}
	return core.Money{Cents: cents}, nil
}

func signedAmountFromNumber(n json.Number) (core.Money, error) {
	cents, err := core.ParseSignedDecimalToCents(n.String())
	if err != nil {
		return core.Money{}, fmt.Errorf("amount %q: %w", n.String(), err)
	}
	return core.Money{Cents: cents}, nil
}

func number(m core.Money) json.Number {
	return json.Number(m.DecimalString())
}

func (w incomeWire) toCore() (core.Income, error) {
	amount, err := amountFromNumber(w.Monto)
	if err != nil {
		return core.Income{}, err
	}
	date, err := parseFecha(w.Fecha)
	if err != nil {
		return core.Income{}, err
	}
	return core.Income{
		ID:          string(w.ID),
		Amount:      amount,
		Description: w.Description,
		Date:        date,
	}, nil
}

func (w expenseWire) toCore() (core.Expense, error) {
	amount, err := amountFromNumber(w.Monto)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := parseFecha(w.Fecha)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:          string(w.ID),
		Amount:      amount,
		Category:    core.Category(w.Categoria),
		Description: w.Description,
		Date:        date,
	}, nil
}

func (w reminderWire) toCore() (core.Reminder, error) {
	date, err := parseFecha(w.Fecha)
	if err != nil {
		return core.Reminder{}, err
	}
	var amount core.Money
	if w.Monto != nil {
		amount, err = amountFromNumber(*w.Monto)
		if err != nil {
			return core.Reminder{}, err
		}
	}
	return core.Reminder{
		ID:     string(w.ID),
		Title:  w.Titulo,
		Date:   date,
		Amount: amount,
		Done:   w.Completado,
	}, nil
}

func (w balanceWire) toCore() (core.BalanceSummary, error) {
	in, err := amountFromNumber(w.Ingresos)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("ingresos: %w", err)
	}
	out, err := amountFromNumber(w.Gastos)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("gastos: %w", err)
	}
	bal, err := signedAmountFromNumber(w.Balance)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("balance: %w", err)
	}
	return core.BalanceSummary{Incomes: in, Expenses: out, Balance: bal}, nil
}
