package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mibalance/internal/core"
	"mibalance/internal/reconcile"
)

type notice struct {
	Kind string // "success" or "error"
	Text string
}

type movementView struct {
	Type        string
	Description string
	Category    string
	Amount      string
	Date        string
}

type incomeView struct {
	Description string
	Amount      string
	Date        string
}

type expenseView struct {
	Description string
	Category    string
	Amount      string
	Date        string
}

type reminderView struct {
	ID     string
	Title  string
	Date   string
	Amount string
	Done   bool
}

func movementViews(ms []core.Movement) []movementView {
	out := make([]movementView, 0, len(ms))
	for _, m := range ms {
		out = append(out, movementView{
			Type:        string(m.Type),
			Description: m.Description,
			Category:    string(m.Category),
			Amount:      m.Amount.FormatUSD(),
			Date:        m.Date.Format("2006-01-02"),
		})
	}
	return out
}

func reminderViews(rs []core.Reminder) []reminderView {
	out := make([]reminderView, 0, len(rs))
	for _, r := range rs {
		v := reminderView{
			ID:    r.ID,
			Title: r.Title,
			Date:  r.Date.Format("2006-01-02"),
			Done:  r.Done,
		}
		if r.Amount.Cents > 0 {
			v.Amount = r.Amount.FormatUSD()
		}
		out = append(out, v)
	}
	return out
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "error.html", struct {
		Theme   string
		Message string
	}{Theme: s.theme, Message: msg})
}

// handleDashboard builds the landing page from a single consistent snapshot.
// If any collection cannot be fetched the whole page fails; a partial ledger
// is worse than an honest error.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot failed", "error", err)
		s.renderError(w, r, http.StatusBadGateway, "No se pudieron cargar los datos del servidor.")
		return
	}

	movements := core.LatestMovements(core.MergeMovements(snap.Incomes, snap.Expenses), s.recentN)

	data := struct {
		Theme     string
		Notice    *notice
		Ingresos  string
		Gastos    string
		Balance   string
		Negative  bool
		Movements []movementView
		Reminders []reminderView
	}{
		Theme:     s.theme,
		Ingresos:  snap.Balance.Incomes.FormatUSD(),
		Gastos:    snap.Balance.Expenses.FormatUSD(),
		Balance:   snap.Balance.Balance.FormatUSD(),
		Negative:  snap.Balance.Balance.Cents < 0,
		Movements: movementViews(movements),
		Reminders: reminderViews(snap.Reminders),
	}
	s.render(w, r, http.StatusOK, "dashboard.html", data)
}

type incomesPageData struct {
	Theme   string
	Notice  *notice
	Incomes []incomeView
}

func (s *Server) incomesData(incomes []core.Income, n *notice) incomesPageData {
	views := make([]incomeView, 0, len(incomes))
	for _, in := range incomes {
		views = append(views, incomeView{
			Description: in.Description,
			Amount:      in.Amount.FormatUSD(),
			Date:        in.Date.Format("2006-01-02"),
		})
	}
	return incomesPageData{Theme: s.theme, Notice: n, Incomes: views}
}

func (s *Server) handleIncomesPage(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.svc.ListIncomes(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List incomes failed", "error", err)
		s.renderError(w, r, http.StatusBadGateway, "No se pudieron cargar los ingresos.")
		return
	}
	s.render(w, r, http.StatusOK, "ingresos.html", s.incomesData(incomes, nil))
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	// The pre-mutation view: a failed save must render exactly this.
	before, err := s.svc.ListIncomes(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List incomes failed", "error", err)
		s.renderError(w, r, http.StatusBadGateway, "No se pudieron cargar los ingresos.")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "ingresos.html",
			s.incomesData(before, &notice{Kind: "error", Text: "Formato de solicitud no válido."}))
		return
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("monto")))
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "ingresos.html",
			s.incomesData(before, &notice{Kind: "error", Text: "Monto no válido."}))
		return
	}
	n := core.NewIncome{
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(r.Form.Get("description")),
	}
	if err := n.Validate(); err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "ingresos.html",
			s.incomesData(before, &notice{Kind: "error", Text: "Datos no válidos: " + err.Error()}))
		return
	}

	var after []core.Income
	err = s.reconciler.Do(r.Context(), reconcile.Action{
		Key: "ingresos:create",
		Mutate: func(ctx context.Context) error {
			_, err := s.svc.CreateIncome(ctx, n)
			return err
		},
		Refetch: func(ctx context.Context) error {
			var e error
			after, e = s.svc.ListIncomes(ctx)
			return e
		},
	})
	s.finishMutation(w, r, err, "ingresos.html",
		func(n *notice) any { return s.incomesData(before, n) },
		func(n *notice) any { return s.incomesData(after, n) },
		"Ingreso registrado.")
}

type expensesPageData struct {
	Theme      string
	Notice     *notice
	Categories []string
	Expenses   []expenseView
}

func (s *Server) expensesData(expenses []core.Expense, n *notice) expensesPageData {
	views := make([]expenseView, 0, len(expenses))
	for _, ex := range expenses {
		views = append(views, expenseView{
			Description: ex.Description,
			Category:    string(ex.Category),
			Amount:      ex.Amount.FormatUSD(),
			Date:        ex.Date.Format("2006-01-02"),
		})
	}
	cats := make([]string, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		cats = append(cats, string(c))
	}
	return expensesPageData{Theme: s.theme, Notice: n, Categories: cats, Expenses: views}
}

func (s *Server) handleExpensesPage(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.ListExpenses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "error", err)
		s.renderError(w, r, http.StatusBadGateway, "No se pudieron cargar los gastos.")
		return
	}
	s.render(w, r, http.StatusOK, "gastos.html", s.expensesData(expenses, nil))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	before, err := s.svc.ListExpenses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "error", err)
		s.renderError(w, r, http.StatusBadGateway, "No se pudieron cargar los gastos.")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "gastos.html",
			s.expensesData(before, &notice{Kind: "error", Text: "Formato de solicitud no válido."}))
		return
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("monto")))
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "gastos.html",
			s.expensesData(before, &notice{Kind: "error", Text: "Monto no válido."}))
		return
	}
	n := core.NewExpense{
		Amount:      core.Money{Cents: cents},
		Category:    core.Category(r.Form.Get("categoria")),
		Description: sanitizeInput(r.Form.Get("description")),
	}
	if err := n.Validate(); err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "gastos.html",
			s.expensesData(before, &notice{Kind: "error", Text: "Datos no válidos: " + err.Error()}))
		return
	}

	var after []core.Expense
	err = s.reconciler.Do(r.Context(), reconcile.Action{
		Key: "gastos:create",
		Mutate: func(ctx context.Context) error {
			_, err := s.svc.CreateExpense(ctx, n)
			return err
		},
		Refetch: func(ctx context.Context) error {
			var e error
			after, e = s.svc.ListExpenses(ctx)
			return e
		},
	})
	s.finishMutation(w, r, err, "gastos.html",
		func(n *notice) any { return s.expensesData(before, n) },
		func(n *notice) any { return s.expensesData(after, n) },
		"Gasto registrado.")
}

type remindersPageData struct {
	Theme     string
	Notice    *notice
	Reminders []reminderView
}

func (s *Server) remindersData(reminders []core.Reminder, n *notice) remindersPageData {
	return remindersPageData{Theme: s.theme, Notice: n, Reminders: reminderViews(reminders)}
}

func (s *Server) handleRemindersPage(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.svc.ListReminders(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List reminders failed", "error", err)
		s.renderError(w, r, http.StatusBadGateway, "No se pudieron cargar los recordatorios.")
		return
	}
	s.render(w, r, http.StatusOK, "recordatorios.html", s.remindersData(reminders, nil))
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	before, err := s.svc.ListReminders(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List reminders failed", "error", err)
		s.renderError(w, r, http.StatusBadGateway, "No se pudieron cargar los recordatorios.")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "recordatorios.html",
			s.remindersData(before, &notice{Kind: "error", Text: "Formato de solicitud no válido."}))
		return
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(r.Form.Get("fecha")))
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "recordatorios.html",
			s.remindersData(before, &notice{Kind: "error", Text: "Fecha no válida."}))
		return
	}
	var amount core.Money
	if v := strings.TrimSpace(r.Form.Get("monto")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			s.render(w, r, http.StatusUnprocessableEntity, "recordatorios.html",
				s.remindersData(before, &notice{Kind: "error", Text: "Monto no válido."}))
			return
		}
		amount = core.Money{Cents: cents}
	}
	n := core.NewReminder{
		Title:  sanitizeInput(r.Form.Get("titulo")),
		Date:   date,
		Amount: amount,
	}
	if err := n.Validate(); err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "recordatorios.html",
			s.remindersData(before, &notice{Kind: "error", Text: "Datos no válidos: " + err.Error()}))
		return
	}

	var after []core.Reminder
	err = s.reconciler.Do(r.Context(), reconcile.Action{
		Key: "recordatorios:create",
		Mutate: func(ctx context.Context) error {
			_, err := s.svc.CreateReminder(ctx, n)
			return err
		},
		Refetch: func(ctx context.Context) error {
			var e error
			after, e = s.svc.ListReminders(ctx)
			return e
		},
	})
	s.finishMutation(w, r, err, "recordatorios.html",
		func(n *notice) any { return s.remindersData(before, n) },
		func(n *notice) any { return s.remindersData(after, n) },
		"Recordatorio creado.")
}

func (s *Server) handleToggleReminder(w http.ResponseWriter, r *http.Request) {
	s.mutateReminder(w, r, "toggle", "Recordatorio actualizado.",
		func(ctx context.Context, current core.Reminder) error {
			return s.svc.ToggleReminder(ctx, current.ID, current.Done)
		})
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	s.mutateReminder(w, r, "delete", "Recordatorio eliminado.",
		func(ctx context.Context, current core.Reminder) error {
			return s.svc.DeleteReminder(ctx, current.ID)
		})
}

// mutateReminder runs a per-record reminder mutation. The record's current
// state comes from a fresh list, not from form fields, so a stale page cannot
// act on a record it no longer sees.
func (s *Server) mutateReminder(w http.ResponseWriter, r *http.Request, verb, successText string,
	mutate func(ctx context.Context, current core.Reminder) error) {

	id := r.PathValue("id")

	before, err := s.svc.ListReminders(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List reminders failed", "error", err)
		s.renderError(w, r, http.StatusBadGateway, "No se pudieron cargar los recordatorios.")
		return
	}

	var current *core.Reminder
	for i := range before {
		if before[i].ID == id {
			current = &before[i]
			break
		}
	}
	if current == nil {
		s.render(w, r, http.StatusNotFound, "recordatorios.html",
			s.remindersData(before, &notice{Kind: "error", Text: "El recordatorio ya no existe."}))
		return
	}

	var after []core.Reminder
	err = s.reconciler.Do(r.Context(), reconcile.Action{
		Key: "recordatorios:" + verb + ":" + id,
		Mutate: func(ctx context.Context) error {
			return mutate(ctx, *current)
		},
		Refetch: func(ctx context.Context) error {
			var e error
			after, e = s.svc.ListReminders(ctx)
			return e
		},
	})
	s.finishMutation(w, r, err, "recordatorios.html",
		func(n *notice) any { return s.remindersData(before, n) },
		func(n *notice) any { return s.remindersData(after, n) },
		successText)
}

// finishMutation maps a reconciler outcome onto a rendered page. Failures
// render the pre-mutation view untouched; only a successful mutation shows
// refetched data.
func (s *Server) finishMutation(w http.ResponseWriter, r *http.Request, err error, tmpl string,
	beforeData func(*notice) any, afterData func(*notice) any, successText string) {

	var mutErr *reconcile.MutationError
	var refErr *reconcile.RefetchError
	switch {
	case err == nil:
		s.render(w, r, http.StatusOK, tmpl, afterData(&notice{Kind: "success", Text: successText}))
	case errors.Is(err, reconcile.ErrActionInFlight):
		s.render(w, r, http.StatusConflict, tmpl,
			beforeData(&notice{Kind: "error", Text: "La operación anterior sigue en curso."}))
	case errors.As(err, &refErr):
		// The save went through; only the refresh failed.
		s.render(w, r, http.StatusOK, tmpl,
			beforeData(&notice{Kind: "error", Text: "Guardado, pero no se pudo actualizar la vista. Recarga la página."}))
	case errors.As(err, &mutErr):
		slog.ErrorContext(r.Context(), "Mutation failed", "error", err, "url", r.URL.Path)
		s.render(w, r, http.StatusBadGateway, tmpl,
			beforeData(&notice{Kind: "error", Text: "No se pudo guardar el cambio."}))
	default:
		slog.ErrorContext(r.Context(), "Mutation failed", "error", err, "url", r.URL.Path)
		s.render(w, r, http.StatusInternalServerError, tmpl,
			beforeData(&notice{Kind: "error", Text: "No se pudo guardar el cambio."}))
	}
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1 // remove character
		}
		return r
	}, s)
	return result
}
