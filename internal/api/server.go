// Package api serves the remote ledger's REST surface: the four collections
// (ingresos, gastos, balance, recordatorios) backed by the SQLite store.
// Successful mutations publish a change event so downstream mirrors can
// refetch; event failures never fail the request.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mibalance/internal/core"
	"mibalance/internal/storage"
)

// EventPublisher notifies downstream consumers that a collection changed.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, collection, action, id string) error
}

type Server struct {
	http.Server
	repo   *storage.Repository
	events EventPublisher // optional
	now    func() time.Time
}

func NewServer(addr string, repo *storage.Repository, events EventPublisher) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:   repo,
		events: events,
		now:    time.Now,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /ingresos", s.handleListIncomes)
	mux.HandleFunc("POST /ingresos", s.handleCreateIncome)
	mux.HandleFunc("GET /gastos", s.handleListExpenses)
	mux.HandleFunc("POST /gastos", s.handleCreateExpense)
	mux.HandleFunc("GET /balance", s.handleBalance)
	mux.HandleFunc("GET /recordatorios", s.handleListReminders)
	mux.HandleFunc("POST /recordatorios", s.handleCreateReminder)
	mux.HandleFunc("PATCH /recordatorios/{id}", s.handlePatchReminder)
	mux.HandleFunc("DELETE /recordatorios/{id}", s.handleDeleteReminder)

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type (
	incomeJSON struct {
		ID          string      `json:"id"`
		Monto       json.Number `json:"monto"`
		Description string      `json:"description"`
		Fecha       string      `json:"fecha"`
	}

	expenseJSON struct {
		ID          string      `json:"id"`
		Monto       json.Number `json:"monto"`
		Categoria   string      `json:"categoria"`
		Description string      `json:"description"`
		Fecha       string      `json:"fecha"`
	}

	reminderJSON struct {
		ID         string       `json:"id"`
		Titulo     string       `json:"titulo"`
		Fecha      string       `json:"fecha"`
		Monto      *json.Number `json:"monto,omitempty"`
		Completado bool         `json:"completado"`
	}

	balanceJSON struct {
		Ingresos json.Number `json:"ingresos"`
		Gastos   json.Number `json:"gastos"`
		Balance  json.Number `json:"balance"`
	}

	errorJSON struct {
		Error string `json:"error"`
	}
)

func incomeToJSON(in core.Income) incomeJSON {
	return incomeJSON{
		ID:          in.ID,
		Monto:       json.Number(in.Amount.DecimalString()),
		Description: in.Description,
		Fecha:       in.Date.Format(time.RFC3339),
	}
}

func expenseToJSON(ex core.Expense) expenseJSON {
	return expenseJSON{
		ID:          ex.ID,
		Monto:       json.Number(ex.Amount.DecimalString()),
		Categoria:   string(ex.Category),
		Description: ex.Description,
		Fecha:       ex.Date.Format(time.RFC3339),
	}
}

func reminderToJSON(r core.Reminder) reminderJSON {
	out := reminderJSON{
		ID:         r.ID,
		Titulo:     r.Title,
		Fecha:      r.Date.Format(time.RFC3339),
		Completado: r.Done,
	}
	if r.Amount.Cents > 0 {
		n := json.Number(r.Amount.DecimalString())
		out.Monto = &n
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.UseNumber()
	return dec.Decode(v)
}

func (s *Server) publish(ctx context.Context, collection, action, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, collection, action, id); err != nil {
		slog.WarnContext(ctx, "Publish ledger event failed",
			"collection", collection, "action", action, "record_id", id, "error", err)
	}
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.repo.ListIncomes(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List incomes failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list incomes")
		return
	}
	out := make([]incomeJSON, 0, len(incomes))
	for _, in := range incomes {
		out = append(out, incomeToJSON(in))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Monto       json.Number `json:"monto"`
		Description string      `json:"description"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := newIncomeFromBody(body.Monto, body.Description)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := s.repo.CreateIncome(r.Context(), n, s.now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Create income failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create income")
		return
	}
	s.publish(r.Context(), "ingresos", "created", created.ID)
	writeJSON(w, http.StatusCreated, incomeToJSON(created))
}

func newIncomeFromBody(monto json.Number, description string) (core.NewIncome, error) {
	cents, err := core.ParseDecimalToCents(monto.String())
	if err != nil {
		return core.NewIncome{}, fmt.Errorf("monto: %w", err)
	}
	n := core.NewIncome{Amount: core.Money{Cents: cents}, Description: description}
	if err := n.Validate(); err != nil {
		return core.NewIncome{}, err
	}
	return n, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.repo.ListExpenses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list expenses")
		return
	}
	out := make([]expenseJSON, 0, len(expenses))
	for _, ex := range expenses {
		out = append(out, expenseToJSON(ex))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Monto       json.Number `json:"monto"`
		Categoria   string      `json:"categoria"`
		Description string      `json:"description"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cents, err := core.ParseDecimalToCents(body.Monto.String())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "monto: "+err.Error())
		return
	}
	n := core.NewExpense{
		Amount:      core.Money{Cents: cents},
		Category:    core.Category(body.Categoria),
		Description: body.Description,
	}
	if err := n.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := s.repo.CreateExpense(r.Context(), n, s.now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Create expense failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create expense")
		return
	}
	s.publish(r.Context(), "gastos", "created", created.ID)
	writeJSON(w, http.StatusCreated, expenseToJSON(created))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.repo.Balance(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Balance failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not compute balance")
		return
	}
	writeJSON(w, http.StatusOK, balanceJSON{
		Ingresos: json.Number(bal.Incomes.DecimalString()),
		Gastos:   json.Number(bal.Expenses.DecimalString()),
		Balance:  json.Number(bal.Balance.DecimalString()),
	})
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.repo.ListReminders(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List reminders failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list reminders")
		return
	}
	out := make([]reminderJSON, 0, len(reminders))
	for _, rem := range reminders {
		out = append(out, reminderToJSON(rem))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Titulo     string       `json:"titulo"`
		Fecha      string       `json:"fecha"`
		Monto      *json.Number `json:"monto"`
		Completado bool         `json:"completado"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := parseFecha(body.Fecha)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "fecha: "+err.Error())
		return
	}
	var amount core.Money
	if body.Monto != nil {
		cents, err := core.ParseDecimalToCents(body.Monto.String())
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "monto: "+err.Error())
			return
		}
		amount = core.Money{Cents: cents}
	}
	n := core.NewReminder{Title: body.Titulo, Date: date, Amount: amount}
	if err := n.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := s.repo.CreateReminder(r.Context(), n)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create reminder failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create reminder")
		return
	}
	s.publish(r.Context(), "recordatorios", "created", created.ID)
	writeJSON(w, http.StatusCreated, reminderToJSON(created))
}

func (s *Server) handlePatchReminder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Completado *bool `json:"completado"`
	}
	if err := decodeBody(r, &body); err != nil || body.Completado == nil {
		writeError(w, http.StatusBadRequest, "completado is required")
		return
	}
	updated, err := s.repo.SetReminderDone(r.Context(), id, *body.Completado)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Patch reminder failed", "error", err, "record_id", id)
		writeError(w, http.StatusInternalServerError, "could not update reminder")
		return
	}
	s.publish(r.Context(), "recordatorios", "updated", id)
	writeJSON(w, http.StatusOK, reminderToJSON(updated))
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.repo.DeleteReminder(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete reminder failed", "error", err, "record_id", id)
		writeError(w, http.StatusInternalServerError, "could not delete reminder")
		return
	}
	s.publish(r.Context(), "recordatorios", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

var fechaLayouts = []string{time.RFC3339, "2006-01-02"}

func parseFecha(s string) (time.Time, error) {
	for _, layout := range fechaLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
