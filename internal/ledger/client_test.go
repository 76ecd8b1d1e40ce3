package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"mibalance/internal/core"
)

func TestListIncomesParsesWire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ingresos" || r.Method != http.MethodGet {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `[
			{"id": 1, "monto": 100, "description": "sueldo", "fecha": "2024-01-01T00:00:00Z"},
			{"id": "abc", "monto": 40.5, "description": "venta", "fecha": "2024-01-02"}
		]`)
	}))
	defer srv.Close()

	incomes, err := New(srv.URL).ListIncomes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(incomes) != 2 {
		t.Fatalf("got %d incomes", len(incomes))
	}
	if incomes[0].ID != "1" || incomes[0].Amount.Cents != 10000 {
		t.Fatalf("first income: %+v", incomes[0])
	}
	// Decimal precision survives: 40.5 is exactly 4050 cents, never 4049.
	if incomes[1].ID != "abc" || incomes[1].Amount.Cents != 4050 {
		t.Fatalf("second income: %+v", incomes[1])
	}
}

func TestCreateExpenseSendsCategoriaAndDecimal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/gastos" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if string(body["monto"]) != "12.34" {
			t.Fatalf("monto on the wire: %s", body["monto"])
		}
		if string(body["categoria"]) != `"Comida"` {
			t.Fatalf("categoria on the wire: %s", body["categoria"])
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 7, "monto": 12.34, "categoria": "Comida", "description": "almuerzo", "fecha": "2024-02-01T10:00:00Z"}`)
	}))
	defer srv.Close()

	created, err := New(srv.URL).CreateExpense(context.Background(), core.NewExpense{
		Amount:      core.Money{Cents: 1234},
		Category:    core.Comida,
		Description: "almuerzo",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "7" || created.Amount.Cents != 1234 {
		t.Fatalf("created: %+v", created)
	}
}

func TestCreateRejectsInvalidInputLocally(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.CreateIncome(context.Background(), core.NewIncome{Description: "x"}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := c.CreateExpense(context.Background(), core.NewExpense{Amount: core.Money{Cents: 1}, Category: "Food", Description: "x"}); !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	// Validation failures never reach the wire.
	if hits.Load() != 0 {
		t.Fatalf("server was hit %d times", hits.Load())
	}
}

func TestToggleReminderSendsNegation(t *testing.T) {
	var got patchReminderBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/recordatorios/5" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := New(srv.URL).ToggleReminder(context.Background(), "5", false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !got.Completado {
		t.Fatalf("expected completado=true for currentlyDone=false")
	}
}

func TestStatusErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL).DeleteReminder(context.Background(), "9")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusInternalServerError || se.Op != "delete reminder" {
		t.Fatalf("status error: %+v", se)
	}
}

func TestSnapshotJoinsAllFour(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ingresos":
			io.WriteString(w, `[{"id":1,"monto":100,"description":"a","fecha":"2024-01-01"}]`)
		case "/gastos":
			io.WriteString(w, `[{"id":2,"monto":40,"categoria":"Comida","description":"b","fecha":"2024-01-02"}]`)
		case "/balance":
			io.WriteString(w, `{"ingresos":100,"gastos":40,"balance":60}`)
		case "/recordatorios":
			io.WriteString(w, `[]`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	snap, err := New(srv.URL).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Incomes) != 1 || len(snap.Expenses) != 1 || len(snap.Reminders) != 0 {
		t.Fatalf("snapshot collections: %+v", snap)
	}
	if snap.Balance.Balance.Cents != 6000 {
		t.Fatalf("balance: %+v", snap.Balance)
	}
}

func TestSnapshotFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/balance" {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Snapshot(context.Background())
	if err == nil {
		t.Fatalf("expected join failure")
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 StatusError, got %v", err)
	}
}
